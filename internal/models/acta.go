package models

import "time"

// Acta is a generated delivery document.
type Acta struct {
	ID               int       `json:"id"`
	Folio            string    `json:"folio"`
	CollaboratorID   int       `json:"collaborator_id"`
	CollaboratorName string    `json:"collaborator_name,omitempty"`
	CollaboratorRUT  string    `json:"collaborator_rut,omitempty"`
	ActaDate         time.Time `json:"acta_date"`
	DocumentPath     string    `json:"document_path"`
	Description      string    `json:"description"`
	CostCenter       string    `json:"cost_center,omitempty"`
	CreatedBy        *int      `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
