package models

import "time"

// Assignment event statuses.
const (
	AssignmentOpen     = "ASSIGNED"
	AssignmentReturned = "RETURNED"
)

// Assignment is a row of the custody ledger. Rows are never deleted.
type Assignment struct {
	ID               int        `json:"id"`
	AssetID          int        `json:"asset_id"`
	CollaboratorID   *int       `json:"collaborator_id"`
	CollaboratorName string     `json:"collaborator_name,omitempty"`
	ProjectID        *int       `json:"project_id,omitempty"`
	Shared           bool       `json:"shared"`
	AssignedOn       time.Time  `json:"assigned_on"`
	ReturnedOn       *time.Time `json:"returned_on"`
	Status           string     `json:"status"`
	Notes            string     `json:"notes,omitempty"`
}

// PendingAsset is an asset still held by a collaborator.
type PendingAsset struct {
	ID         int       `json:"id"`
	Category   string    `json:"category"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand,omitempty"`
	Model      string    `json:"model,omitempty"`
	Serial     string    `json:"serial,omitempty"`
	State      string    `json:"state"`
	AssignedOn time.Time `json:"assigned_on"`
}

// Drift is an asset whose snapshot disagrees with its open assignments.
type Drift struct {
	AssetID    int    `json:"asset_id"`
	State      string `json:"state"`
	OpenEvents int    `json:"open_events"`
}
