package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crucial707/asset-custody/internal/models"
	"github.com/doug-martin/goqu/v9"
)

// ==========================
// CollaboratorRepo
// ==========================
type CollaboratorRepo struct {
	DB *sql.DB
}

func NewCollaboratorRepo(db *sql.DB) *CollaboratorRepo {
	return &CollaboratorRepo{DB: db}
}

// CollaboratorFilter drives Find. Query matches name or RUT.
type CollaboratorFilter struct {
	Query        string
	ProjectID    int
	SupervisorID int
	ActiveOnly   bool
	Limit        int
}

func collaboratorSelect() *goqu.SelectDataset {
	return dialect.From(goqu.T("collaborators").As("c")).
		LeftJoin(goqu.T("positions").As("pos"), goqu.On(goqu.Ex{"pos.id": goqu.I("c.position_id")})).
		LeftJoin(goqu.T("projects").As("p"), goqu.On(goqu.Ex{"p.id": goqu.I("c.project_id")})).
		LeftJoin(goqu.T("collaborators").As("sup"), goqu.On(goqu.Ex{"sup.id": goqu.I("c.supervisor_id")})).
		Select(
			goqu.I("c.id"), goqu.I("c.name"), goqu.I("c.rut"),
			goqu.COALESCE(goqu.I("c.gender"), ""),
			goqu.I("c.position_id"), goqu.I("c.project_id"), goqu.I("c.supervisor_id"),
			goqu.I("c.active"),
			goqu.COALESCE(goqu.I("pos.name"), ""),
			goqu.COALESCE(goqu.I("p.name"), ""),
			goqu.COALESCE(goqu.I("p.city"), ""),
			goqu.COALESCE(goqu.I("p.region"), ""),
			goqu.COALESCE(goqu.I("sup.name"), ""),
			goqu.I("c.created_at"),
		)
}

func scanCollaborator(s rowScanner) (models.Collaborator, error) {
	var (
		c                         models.Collaborator
		position, project, super sql.NullInt64
	)
	err := s.Scan(&c.ID, &c.Name, &c.RUT, &c.Gender, &position, &project, &super, &c.Active,
		&c.PositionName, &c.ProjectName, &c.City, &c.Region, &c.SupervisorName, &c.CreatedAt)
	c.PositionID = intPtr(position)
	c.ProjectID = intPtr(project)
	c.SupervisorID = intPtr(super)
	return c, err
}

// ==========================
// Find (autocomplete, search and filtered list)
// ==========================
func (r *CollaboratorRepo) Find(ctx context.Context, f CollaboratorFilter) ([]models.Collaborator, error) {
	ds := collaboratorSelect()
	if f.Query != "" {
		like := "%" + f.Query + "%"
		ds = ds.Where(goqu.Or(goqu.I("c.name").ILike(like), goqu.I("c.rut").ILike(like)))
	}
	if f.ProjectID > 0 {
		ds = ds.Where(goqu.Ex{"c.project_id": f.ProjectID})
	}
	if f.SupervisorID > 0 {
		ds = ds.Where(goqu.Ex{"c.supervisor_id": f.SupervisorID})
	}
	if f.ActiveOnly {
		ds = ds.Where(goqu.Ex{"c.active": true})
	}
	ds = ds.Order(goqu.I("c.name").Asc(), goqu.I("c.id").Asc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build collaborator query: %w", err)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Collaborator{}
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ==========================
// Get By ID
// ==========================
func (r *CollaboratorRepo) GetByID(ctx context.Context, id int) (models.Collaborator, error) {
	query, args, err := collaboratorSelect().Where(goqu.Ex{"c.id": id}).Prepared(true).ToSQL()
	if err != nil {
		return models.Collaborator{}, fmt.Errorf("build collaborator query: %w", err)
	}
	c, err := scanCollaborator(r.DB.QueryRowContext(ctx, query, args...))
	return c, mapErr(err)
}

// CollaboratorInput is the writable part of a collaborator. The RUT must
// already be validated and formatted.
type CollaboratorInput struct {
	Name         string
	RUT          string
	Gender       string
	PositionID   *int
	ProjectID    *int
	SupervisorID *int
}

// ==========================
// Create Collaborator
// ==========================
func (r *CollaboratorRepo) Create(ctx context.Context, in CollaboratorInput) (int, error) {
	var id int
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO collaborators (name, rut, gender, position_id, project_id, supervisor_id, active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		 RETURNING id`,
		in.Name, in.RUT, nullString(in.Gender), nullInt(in.PositionID), nullInt(in.ProjectID), nullInt(in.SupervisorID),
	).Scan(&id)
	return id, mapErr(err)
}

// ==========================
// Update Collaborator
// ==========================
func (r *CollaboratorRepo) Update(ctx context.Context, id int, in CollaboratorInput) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE collaborators
		 SET name = $1, rut = $2, gender = $3, position_id = $4, project_id = $5, supervisor_id = $6
		 WHERE id = $7`,
		in.Name, in.RUT, nullString(in.Gender), nullInt(in.PositionID), nullInt(in.ProjectID), nullInt(in.SupervisorID), id,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==========================
// Projects, supervisors and positions
// ==========================

// Projects lists projects with their number of active collaborators.
func (r *CollaboratorRepo) Projects(ctx context.Context) ([]models.Project, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.name, COALESCE(p.city, ''), COALESCE(p.region, ''), COUNT(c.id)
		 FROM projects p
		 LEFT JOIN collaborators c ON c.project_id = p.id AND c.active
		 GROUP BY p.id, p.name, p.city, p.region
		 ORDER BY p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.City, &p.Region, &p.Total); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Supervisors lists collaborators that supervise at least one active collaborator.
func (r *CollaboratorRepo) Supervisors(ctx context.Context) ([]models.NamedCount, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT s.id, s.name, COUNT(c.id)
		 FROM collaborators s
		 JOIN collaborators c ON c.supervisor_id = s.id AND c.active
		 GROUP BY s.id, s.name
		 ORDER BY s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.NamedCount{}
	for rows.Next() {
		var n models.NamedCount
		if err := rows.Scan(&n.ID, &n.Name, &n.Total); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Positions lists job positions for select inputs.
func (r *CollaboratorRepo) Positions(ctx context.Context) ([]models.Option, error) {
	return r.options(ctx, `SELECT id, name FROM positions ORDER BY name`)
}

// ProjectOptions lists project names for select inputs.
func (r *CollaboratorRepo) ProjectOptions(ctx context.Context) ([]models.Option, error) {
	return r.options(ctx, `SELECT id, name FROM projects ORDER BY name`)
}

func (r *CollaboratorRepo) options(ctx context.Context, query string) ([]models.Option, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Option{}
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
