package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/asset-custody/internal/models"
)

// MovementRepo reads the movement log. Rows are written only by the ledger.
type MovementRepo struct {
	DB *sql.DB
}

func NewMovementRepo(db *sql.DB) *MovementRepo {
	return &MovementRepo{DB: db}
}

const movementSelect = `SELECT m.id, m.asset_id, m.kind, m.recorded_at, m.user_id, m.responsible_user,
	m.collaborator_id, COALESCE(m.assigned_to, ''), COALESCE(m.location, ''),
	COALESCE(m.condition_out, ''), COALESCE(m.condition_in, ''), COALESCE(m.notes, ''),
	COALESCE(m.login_user, ''), COALESCE(m.supervisor, ''), COALESCE(m.project_label, ''),
	m.shared, m.assigned_on, m.returned_on,
	a.category, COALESCE(a.brand, ''), COALESCE(a.model, ''), COALESCE(a.serial, '')
	FROM movements m JOIN assets a ON a.id = m.asset_id`

// Latest returns the most recent movements across all assets.
func (r *MovementRepo) Latest(ctx context.Context, limit int) ([]models.Movement, error) {
	return r.query(ctx, movementSelect+` ORDER BY m.recorded_at DESC, m.id DESC LIMIT $1`, limit)
}

// ByAsset returns every movement of one asset, newest first.
func (r *MovementRepo) ByAsset(ctx context.Context, assetID int) ([]models.Movement, error) {
	return r.query(ctx, movementSelect+` WHERE m.asset_id = $1 ORDER BY m.recorded_at DESC, m.id DESC`, assetID)
}

// ByCollaborator returns the latest movements that named a collaborator.
func (r *MovementRepo) ByCollaborator(ctx context.Context, collaboratorID, limit int) ([]models.Movement, error) {
	return r.query(ctx,
		movementSelect+` WHERE m.collaborator_id = $1 ORDER BY m.recorded_at DESC, m.id DESC LIMIT $2`,
		collaboratorID, limit)
}

func (r *MovementRepo) query(ctx context.Context, query string, args ...any) ([]models.Movement, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Movement{}
	for rows.Next() {
		var (
			m                  models.Movement
			user, collaborator sql.NullInt64
			assigned, returned sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.AssetID, &m.Kind, &m.RecordedAt, &user, &m.ResponsibleUser,
			&collaborator, &m.AssignedTo, &m.Location,
			&m.ConditionOut, &m.ConditionIn, &m.Notes,
			&m.LoginUser, &m.Supervisor, &m.ProjectLabel,
			&m.Shared, &assigned, &returned,
			&m.AssetCategory, &m.AssetBrand, &m.AssetModel, &m.AssetSerial); err != nil {
			return nil, err
		}
		m.UserID = intPtr(user)
		m.CollaboratorID = intPtr(collaborator)
		m.AssignedOn = timePtr(assigned)
		m.ReturnedOn = timePtr(returned)
		out = append(out, m)
	}
	return out, rows.Err()
}
