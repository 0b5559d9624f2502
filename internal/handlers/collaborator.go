package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/repo"
	"github.com/crucial707/asset-custody/internal/rut"
)

// ==========================
// CollaboratorHandler
// ==========================
type CollaboratorHandler struct {
	Repo      *repo.CollaboratorRepo
	Movements *repo.MovementRepo
	Ledger    *ledger.Ledger
	AuditRepo *repo.AuditRepo
}

const historyMovementLimit = 300

type collaboratorInput struct {
	Name         string `json:"name" validate:"required,min=2,max=255"`
	RUT          string `json:"rut" validate:"required,rut"`
	Gender       string `json:"gender" validate:"omitempty,oneof=M F X"`
	PositionID   *int   `json:"position_id" validate:"omitempty,gt=0"`
	ProjectID    *int   `json:"project_id" validate:"omitempty,gt=0"`
	SupervisorID *int   `json:"supervisor_id" validate:"omitempty,gt=0"`
}

func (in *collaboratorInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Gender = strings.ToUpper(strings.TrimSpace(in.Gender))
}

func (in collaboratorInput) toRepo() repo.CollaboratorInput {
	return repo.CollaboratorInput{
		Name:         in.Name,
		RUT:          rut.Format(in.RUT),
		Gender:       in.Gender,
		PositionID:   in.PositionID,
		ProjectID:    in.ProjectID,
		SupervisorID: in.SupervisorID,
	}
}

// ==========================
// Autocomplete, search and list
// ==========================

// Autocomplete returns up to 20 active collaborators matching q.
func (h *CollaboratorHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	h.find(w, r, repo.CollaboratorFilter{
		Query:      strings.TrimSpace(r.URL.Query().Get("q")),
		ActiveOnly: true,
		Limit:      20,
	})
}

// Search returns up to 50 collaborators, active or not, matching q.
func (h *CollaboratorHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.find(w, r, repo.CollaboratorFilter{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit: 50,
	})
}

// ListCollaborators filters by q, project_id, supervisor_id and active=true.
func (h *CollaboratorHandler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	active, _ := strconv.ParseBool(q.Get("active"))
	h.find(w, r, repo.CollaboratorFilter{
		Query:        strings.TrimSpace(q.Get("q")),
		ProjectID:    queryInt(r, "project_id", 0, 1, 0),
		SupervisorID: queryInt(r, "supervisor_id", 0, 1, 0),
		ActiveOnly:   active,
		Limit:        queryInt(r, "limit", 500, 1, 2000),
	})
}

func (h *CollaboratorHandler) find(w http.ResponseWriter, r *http.Request, f repo.CollaboratorFilter) {
	list, err := h.Repo.Find(r.Context(), f)
	if err != nil {
		writeRepoError(w, err, "collaborator")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ==========================
// Lookups
// ==========================

func (h *CollaboratorHandler) Projects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Repo.Projects(r.Context())
	if err != nil {
		writeRepoError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *CollaboratorHandler) Supervisors(w http.ResponseWriter, r *http.Request) {
	supervisors, err := h.Repo.Supervisors(r.Context())
	if err != nil {
		writeRepoError(w, err, "supervisor")
		return
	}
	writeJSON(w, http.StatusOK, supervisors)
}

// Options returns the positions and project names used by collaborator forms.
func (h *CollaboratorHandler) Options(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Repo.Positions(r.Context())
	if err != nil {
		writeRepoError(w, err, "position")
		return
	}
	projects, err := h.Repo.ProjectOptions(r.Context())
	if err != nil {
		writeRepoError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"projects":  projects,
	})
}

// ==========================
// Create / Get / Update
// ==========================

func (h *CollaboratorHandler) CreateCollaborator(w http.ResponseWriter, r *http.Request) {
	var input collaboratorInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.normalize()
	if !validateInput(w, input) {
		return
	}

	id, err := h.Repo.Create(r.Context(), input.toRepo())
	if err != nil {
		writeRepoError(w, err, "collaborator with this RUT")
		return
	}
	c, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "collaborator")
		return
	}

	logAudit(r, h.AuditRepo, "create", "collaborator", id, c.RUT)
	writeJSON(w, http.StatusCreated, c)
}

func (h *CollaboratorHandler) GetCollaborator(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "collaborator")
	if !ok {
		return
	}
	c, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "collaborator")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CollaboratorHandler) UpdateCollaborator(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "collaborator")
	if !ok {
		return
	}
	var input collaboratorInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.normalize()
	if !validateInput(w, input) {
		return
	}
	if input.SupervisorID != nil && *input.SupervisorID == id {
		JSONValidationError(w, "validation failed", map[string]string{"supervisor_id": "cannot supervise themselves"}, http.StatusBadRequest)
		return
	}

	if err := h.Repo.Update(r.Context(), id, input.toRepo()); err != nil {
		writeRepoError(w, err, "collaborator")
		return
	}
	c, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "collaborator")
		return
	}

	logAudit(r, h.AuditRepo, "update", "collaborator", id, "")
	writeJSON(w, http.StatusOK, c)
}

// ==========================
// Activate / Deactivate
// ==========================

func (h *CollaboratorHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate answers 409 with the pending assets when the collaborator still holds any.
func (h *CollaboratorHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *CollaboratorHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := urlID(w, r, "collaborator")
	if !ok {
		return
	}
	if _, err := h.Ledger.SetCollaboratorActive(r.Context(), id, active); err != nil {
		writeLedgerError(w, err)
		return
	}

	action := "deactivate"
	if active {
		action = "activate"
	}
	logAudit(r, h.AuditRepo, action, "collaborator", id, "")
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "active": active})
}

// ==========================
// History
// ==========================

// History returns the collaborator, the assets they currently hold and their
// latest movements.
func (h *CollaboratorHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "collaborator")
	if !ok {
		return
	}
	c, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "collaborator")
		return
	}
	held, err := h.Ledger.HeldBy(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	movements, err := h.Movements.ByCollaborator(r.Context(), id, historyMovementLimit)
	if err != nil {
		writeRepoError(w, err, "movement")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collaborator": c,
		"assets":       held,
		"movements":    movements,
	})
}
