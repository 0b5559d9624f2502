package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/asset-custody/internal/models"
)

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `id, name, email, password_hash, role, active, created_at`

func scanUser(s rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING `+userColumns,
		name, email, passwordHash, role,
	)
	return scanUser(row)
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// ==========================
// Get By Email
// ==========================
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// ==========================
// Update User
// ==========================

// Update changes profile fields. An empty passwordHash keeps the current password.
func (r *UserRepo) Update(ctx context.Context, id int, name, email, role string, active bool, passwordHash string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`UPDATE users
		 SET name = $1, email = $2, role = $3, active = $4,
		     password_hash = COALESCE(NULLIF($5, ''), password_hash)
		 WHERE id = $6
		 RETURNING `+userColumns,
		name, email, role, active, passwordHash, id,
	)
	return scanUser(row)
}

// ==========================
// Delete User
// ==========================
func (r *UserRepo) Delete(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ==========================
// List Users
// ==========================
func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

// Count returns the number of users; zero means the admin account must be bootstrapped.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
