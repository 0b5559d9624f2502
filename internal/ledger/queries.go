package ledger

import (
	"context"
	"database/sql"

	"github.com/crucial707/asset-custody/internal/models"
)

// OpenAssignments returns the open assignment rows of an asset, oldest first.
func (l *Ledger) OpenAssignments(ctx context.Context, assetID int) ([]models.Assignment, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT aa.id, aa.asset_id, aa.collaborator_id, COALESCE(c.name, ''), aa.project_id,
		 aa.shared, aa.assigned_on, aa.returned_on, aa.status, COALESCE(aa.notes, '')
		 FROM asset_assignments aa LEFT JOIN collaborators c ON c.id = aa.collaborator_id
		 WHERE aa.asset_id = $1 AND aa.status = 'ASSIGNED'
		 ORDER BY aa.assigned_on, aa.id`,
		assetID,
	)
	if err != nil {
		return nil, storageErr("list open assignments", err)
	}
	defer rows.Close()

	out := []models.Assignment{}
	for rows.Next() {
		var (
			a            models.Assignment
			collaborator sql.NullInt64
			project      sql.NullInt64
			returned     sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.AssetID, &collaborator, &a.CollaboratorName, &project,
			&a.Shared, &a.AssignedOn, &returned, &a.Status, &a.Notes); err != nil {
			return nil, storageErr("list open assignments", err)
		}
		if collaborator.Valid {
			v := int(collaborator.Int64)
			a.CollaboratorID = &v
		}
		if project.Valid {
			v := int(project.Int64)
			a.ProjectID = &v
		}
		if returned.Valid {
			a.ReturnedOn = &returned.Time
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list open assignments", err)
	}
	return out, nil
}

// Drift lists assets whose snapshot state disagrees with their open
// assignments. An empty result means the projection is consistent.
func (l *Ledger) Drift(ctx context.Context) ([]models.Drift, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT a.id, a.state, COUNT(aa.id)
		 FROM assets a LEFT JOIN asset_assignments aa ON aa.asset_id = a.id AND aa.status = 'ASSIGNED'
		 GROUP BY a.id, a.state
		 HAVING (a.state = 'ASSIGNED' AND COUNT(aa.id) = 0) OR (a.state <> 'ASSIGNED' AND COUNT(aa.id) > 0)
		 ORDER BY a.id`,
	)
	if err != nil {
		return nil, storageErr("check drift", err)
	}
	defer rows.Close()

	out := []models.Drift{}
	for rows.Next() {
		var d models.Drift
		if err := rows.Scan(&d.AssetID, &d.State, &d.OpenEvents); err != nil {
			return nil, storageErr("check drift", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("check drift", err)
	}
	return out, nil
}
