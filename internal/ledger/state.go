package ledger

import (
	"context"
	"database/sql"
	"strings"

	"github.com/crucial707/asset-custody/internal/models"
)

// SetAssetState moves an asset between the states the ledger does not derive
// from assignments. The reason is stored with the history row.
func (l *Ledger) SetAssetState(ctx context.Context, assetID int, state, reason string, userID *int) (models.AssetSnapshot, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	reason = strings.TrimSpace(reason)

	if assetID <= 0 {
		return models.AssetSnapshot{}, &ValidationError{Field: "asset_id", Message: "required"}
	}
	switch state {
	case models.AssetFree, models.AssetMaintenance, models.AssetRetired, models.AssetObsolete:
	case models.AssetAssigned:
		return models.AssetSnapshot{}, &ValidationError{Field: "state", Message: "ASSIGNED is set by checkout movements only"}
	default:
		return models.AssetSnapshot{}, &ValidationError{Field: "state", Message: "must be FREE, MAINTENANCE, RETIRED or OBSOLETE"}
	}
	if reason == "" {
		return models.AssetSnapshot{}, &ValidationError{Field: "reason", Message: "required"}
	}

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return models.AssetSnapshot{}, storageErr("begin", err)
	}
	defer tx.Rollback()

	current, err := lockAsset(ctx, tx, assetID)
	if err != nil {
		return models.AssetSnapshot{}, err
	}
	open, err := openEvents(ctx, tx, assetID)
	if err != nil {
		return models.AssetSnapshot{}, err
	}
	if len(open) > 0 {
		return models.AssetSnapshot{}, &ConflictError{Reason: "asset has open assignments; check it in first"}
	}

	if current != state {
		if _, err := tx.ExecContext(ctx,
			`UPDATE assets SET state = $1, holder_label = NULL, collaborator_id = NULL, updated_at = NOW() WHERE id = $2`,
			state, assetID,
		); err != nil {
			return models.AssetSnapshot{}, storageErr("update asset state", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO asset_history (asset_id, field, old_value, new_value, reason, changed_by)
			 VALUES ($1, 'state', $2, $3, $4, $5)`,
			assetID, current, state, reason, intOrNil(userID),
		); err != nil {
			return models.AssetSnapshot{}, storageErr("insert asset history", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.AssetSnapshot{}, storageErr("commit", err)
	}
	return models.AssetSnapshot{ID: assetID, State: state}, nil
}
