package handlers

import (
	"net/http"
	"strings"

	"github.com/crucial707/asset-custody/internal/auth"
	"github.com/crucial707/asset-custody/internal/middleware"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/crucial707/asset-custody/internal/repo"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Repo      *repo.UserRepo
	AuditRepo *repo.AuditRepo
}

// ==========================
// Create User (role defaults to viewer)
// ==========================
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name" validate:"required,min=2,max=255"`
		Email    string `json:"email" validate:"required,email,max=255"`
		Password string `json:"password" validate:"required,min=8,max=72"`
		Role     string `json:"role" validate:"omitempty,oneof=admin report status viewer"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if !validateInput(w, input) {
		return
	}
	role := input.Role
	if role == "" {
		role = models.RoleViewer
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	user, err := h.Repo.Create(r.Context(), input.Name, input.Email, hash, role)
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}

	logAudit(r, h.AuditRepo, "create", "user", user.ID, user.Email)
	writeJSON(w, http.StatusCreated, user)
}

// ==========================
// List Users
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Repo.List(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": users,
		"total": len(users),
	})
}

// ==========================
// Get User
// ==========================
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user")
	if !ok {
		return
	}
	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Update User (absent fields keep their value)
// ==========================
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user")
	if !ok {
		return
	}

	var input struct {
		Name     *string `json:"name" validate:"omitempty,min=2,max=255"`
		Email    *string `json:"email" validate:"omitempty,email,max=255"`
		Role     *string `json:"role" validate:"omitempty,oneof=admin report status viewer"`
		Active   *bool   `json:"active"`
		Password string  `json:"password" validate:"omitempty,min=8,max=72"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if !validateInput(w, input) {
		return
	}

	current, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}
	name, email, role, active := current.Name, current.Email, current.Role, current.Active
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Role != nil {
		role = *input.Role
	}
	if input.Active != nil {
		active = *input.Active
	}
	if self, ok := middleware.GetUserID(r.Context()); ok && self == id && (!active || role != current.Role) {
		JSONError(w, "cannot change your own role or active flag", http.StatusBadRequest)
		return
	}

	hash := ""
	if input.Password != "" {
		if hash, err = auth.HashPassword(input.Password); err != nil {
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
	}

	user, err := h.Repo.Update(r.Context(), id, name, email, role, active, hash)
	if err != nil {
		writeRepoError(w, err, "user")
		return
	}

	logAudit(r, h.AuditRepo, "update", "user", id, "")
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Delete User
// ==========================
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "user")
	if !ok {
		return
	}
	if self, ok := middleware.GetUserID(r.Context()); ok && self == id {
		JSONError(w, "cannot delete your own user", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "user")
		return
	}

	logAudit(r, h.AuditRepo, "delete", "user", id, "")
	w.WriteHeader(http.StatusNoContent)
}
