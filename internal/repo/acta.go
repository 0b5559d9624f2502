package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/asset-custody/internal/models"
)

// ActaRepo stores the records of generated delivery documents.
type ActaRepo struct {
	DB *sql.DB
}

func NewActaRepo(db *sql.DB) *ActaRepo {
	return &ActaRepo{DB: db}
}

// Create inserts the record and fills in ID and CreatedAt.
func (r *ActaRepo) Create(ctx context.Context, a *models.Acta) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO actas (folio, collaborator_id, acta_date, document_path, description, cost_center, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		a.Folio, a.CollaboratorID, a.ActaDate, a.DocumentPath, a.Description, nullString(a.CostCenter), nullInt(a.CreatedBy),
	).Scan(&a.ID, &a.CreatedAt)
	return mapErr(err)
}

const actaSelect = `SELECT a.id, a.folio, a.collaborator_id, c.name, c.rut, a.acta_date, a.document_path,
	a.description, COALESCE(a.cost_center, ''), a.created_by, a.created_at
	FROM actas a JOIN collaborators c ON c.id = a.collaborator_id`

func scanActa(s rowScanner) (models.Acta, error) {
	var (
		a  models.Acta
		by sql.NullInt64
	)
	err := s.Scan(&a.ID, &a.Folio, &a.CollaboratorID, &a.CollaboratorName, &a.CollaboratorRUT, &a.ActaDate,
		&a.DocumentPath, &a.Description, &a.CostCenter, &by, &a.CreatedAt)
	a.CreatedBy = intPtr(by)
	return a, err
}

func (r *ActaRepo) GetByID(ctx context.Context, id int) (models.Acta, error) {
	a, err := scanActa(r.DB.QueryRowContext(ctx, actaSelect+` WHERE a.id = $1`, id))
	return a, mapErr(err)
}

// List returns the acta history newest first. collaboratorID 0 lists all.
func (r *ActaRepo) List(ctx context.Context, collaboratorID int) ([]models.Acta, error) {
	rows, err := r.DB.QueryContext(ctx,
		actaSelect+` WHERE ($1 = 0 OR a.collaborator_id = $1) ORDER BY a.created_at DESC, a.id DESC`,
		collaboratorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Acta{}
	for rows.Next() {
		a, err := scanActa(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
