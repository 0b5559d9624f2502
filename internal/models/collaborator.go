package models

import "time"

// Collaborator is a person who can hold assets.
type Collaborator struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	RUT            string    `json:"rut"`
	Gender         string    `json:"gender,omitempty"`
	PositionID     *int      `json:"position_id,omitempty"`
	ProjectID      *int      `json:"project_id,omitempty"`
	SupervisorID   *int      `json:"supervisor_id,omitempty"`
	Active         bool      `json:"active"`
	PositionName   string    `json:"position_name,omitempty"`
	ProjectName    string    `json:"project_name,omitempty"`
	City           string    `json:"city,omitempty"`
	Region         string    `json:"region,omitempty"`
	SupervisorName string    `json:"supervisor_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Project groups collaborators; Total counts active collaborators.
type Project struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	City   string `json:"city,omitempty"`
	Region string `json:"region,omitempty"`
	Total  int    `json:"total_collaborators"`
}

// NamedCount is a supervisor (or any named group) with a collaborator count.
type NamedCount struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Total int    `json:"total_collaborators"`
}

// Option is an id/name pair for select lists.
type Option struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
