package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/crucial707/asset-custody/internal/models"
)

// SetCollaboratorActive flips the active flag. Deactivation is refused with a
// PendingAssetsError while the collaborator holds any open assignment.
func (l *Ledger) SetCollaboratorActive(ctx context.Context, collaboratorID int, active bool) (bool, error) {
	if collaboratorID <= 0 {
		return false, &ValidationError{Field: "collaborator_id", Message: "required"}
	}

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return false, storageErr("begin", err)
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx, `SELECT id FROM collaborators WHERE id = $1 FOR UPDATE`, collaboratorID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, &CollaboratorNotFoundError{Ref: strconv.Itoa(collaboratorID)}
	}
	if err != nil {
		return false, storageErr("lock collaborator", err)
	}

	if !active {
		pending, err := heldBy(ctx, tx, collaboratorID)
		if err != nil {
			return false, err
		}
		if len(pending) > 0 {
			return false, &PendingAssetsError{CollaboratorID: collaboratorID, Assets: pending}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE collaborators SET active = $1 WHERE id = $2`, active, collaboratorID); err != nil {
		return false, storageErr("update collaborator", err)
	}
	if err := tx.Commit(); err != nil {
		return false, storageErr("commit", err)
	}
	return active, nil
}

// HeldBy lists the assets a collaborator currently holds through open assignments.
func (l *Ledger) HeldBy(ctx context.Context, collaboratorID int) ([]models.PendingAsset, error) {
	return heldBy(ctx, l.db, collaboratorID)
}

func heldBy(ctx context.Context, q querier, collaboratorID int) ([]models.PendingAsset, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT a.id, a.category, a.name, COALESCE(a.brand, ''), COALESCE(a.model, ''),
		 COALESCE(a.serial, ''), a.state, aa.assigned_on
		 FROM asset_assignments aa JOIN assets a ON a.id = aa.asset_id
		 WHERE aa.collaborator_id = $1 AND aa.status = 'ASSIGNED'
		 ORDER BY aa.assigned_on DESC, a.id`,
		collaboratorID,
	)
	if err != nil {
		return nil, storageErr("read pending assets", err)
	}
	defer rows.Close()

	out := []models.PendingAsset{}
	for rows.Next() {
		var p models.PendingAsset
		if err := rows.Scan(&p.ID, &p.Category, &p.Name, &p.Brand, &p.Model, &p.Serial, &p.State, &p.AssignedOn); err != nil {
			return nil, storageErr("read pending assets", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read pending assets", err)
	}
	return out, nil
}
