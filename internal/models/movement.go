package models

import "time"

// Movement kinds.
const (
	MovementCheckout = "CHECKOUT"
	MovementCheckin  = "CHECKIN"
)

// Movement is an immutable log row of a checkout or check-in request.
type Movement struct {
	ID              int        `json:"id"`
	AssetID         int        `json:"asset_id"`
	Kind            string     `json:"kind"`
	RecordedAt      time.Time  `json:"recorded_at"`
	UserID          *int       `json:"user_id,omitempty"`
	ResponsibleUser string     `json:"responsible_user"`
	CollaboratorID  *int       `json:"collaborator_id,omitempty"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	Location        string     `json:"location,omitempty"`
	ConditionOut    string     `json:"condition_out,omitempty"`
	ConditionIn     string     `json:"condition_in,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	LoginUser       string     `json:"login_user,omitempty"`
	Supervisor      string     `json:"supervisor,omitempty"`
	ProjectLabel    string     `json:"project_label,omitempty"`
	Shared          bool       `json:"shared"`
	AssignedOn      *time.Time `json:"assigned_on,omitempty"`
	ReturnedOn      *time.Time `json:"returned_on,omitempty"`

	AssetCategory string `json:"asset_category,omitempty"`
	AssetBrand    string `json:"asset_brand,omitempty"`
	AssetModel    string `json:"asset_model,omitempty"`
	AssetSerial   string `json:"asset_serial,omitempty"`
}
