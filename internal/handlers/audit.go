package handlers

import (
	"net/http"

	"github.com/crucial707/asset-custody/internal/repo"
)

// AuditHandler serves audit log endpoints.
type AuditHandler struct {
	Repo *repo.AuditRepo
}

// ListAudit returns recent audit log entries. Query: resource_type, limit (default 50, max 200), offset.
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1, 200)
	offset := queryInt(r, "offset", 0, 0, 0)

	entries, err := h.Repo.List(r.Context(), r.URL.Query().Get("resource_type"), limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
