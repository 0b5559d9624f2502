package models

import "time"

// Asset states. The snapshot state ASSIGNED is owned by the assignment ledger.
const (
	AssetFree        = "FREE"
	AssetAssigned    = "ASSIGNED"
	AssetMaintenance = "MAINTENANCE"
	AssetRetired     = "RETIRED"
	AssetObsolete    = "OBSOLETE"
)

// HolderShared is the holder label of an asset with more than one open assignment.
const HolderShared = "SHARED"

// Asset is a physical item plus its denormalized custody snapshot.
type Asset struct {
	ID             int        `json:"id"`
	Category       string     `json:"category"`
	Name           string     `json:"name"`
	Brand          string     `json:"brand,omitempty"`
	Model          string     `json:"model,omitempty"`
	Serial         *string    `json:"serial,omitempty"`
	ICCID          string     `json:"iccid,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Hostname       string     `json:"hostname,omitempty"`
	NbSSD          string     `json:"nb_ssd,omitempty"`
	NbRAM          string     `json:"nb_ram,omitempty"`
	NbOS           string     `json:"nb_os,omitempty"`
	State          string     `json:"state"`
	Location       string     `json:"location,omitempty"`
	HolderLabel    *string    `json:"holder_label"`
	CollaboratorID *int       `json:"collaborator_id,omitempty"`
	LoginUser      string     `json:"login_user,omitempty"`
	Supervisor     string     `json:"supervisor,omitempty"`
	ProjectLabel   string     `json:"project_label,omitempty"`
	AssignedOn     *time.Time `json:"assigned_on,omitempty"`
	ReturnedOn     *time.Time `json:"returned_on,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Populated by list queries from the open assignments.
	OpenAssignments int    `json:"open_assignments"`
	CurrentHolders  string `json:"current_holders,omitempty"`
}

// AssetSnapshot is the custody projection written by the ledger.
type AssetSnapshot struct {
	ID          int     `json:"id"`
	State       string  `json:"state"`
	HolderLabel *string `json:"holder_label"`
	OpenEvents  int     `json:"open_events"`
}

// AssetChange is one row of the technical field history of an asset.
type AssetChange struct {
	ID        int       `json:"id"`
	AssetID   int       `json:"asset_id"`
	Field     string    `json:"field"`
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
	Reason    string    `json:"reason,omitempty"`
	ChangedBy *int      `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}
