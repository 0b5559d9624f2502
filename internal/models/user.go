package models

import "time"

// Roles. Admin manages users; status records movements and edits inventory; report reads reports and exports; viewer is read-only.
const (
	RoleAdmin  = "admin"
	RoleReport = "report"
	RoleStatus = "status"
	RoleViewer = "viewer"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleReport, RoleStatus, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
