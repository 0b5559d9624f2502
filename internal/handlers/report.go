package handlers

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/asset-custody/internal/repo"
	"github.com/go-chi/chi/v5"
)

// ReportHandler serves dashboard KPIs and CSV exports.
type ReportHandler struct {
	Repo *repo.ReportRepo
	Now  func() time.Time
}

func (h *ReportHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	k, err := h.Repo.KPIs(r.Context(), now)
	if err != nil {
		writeRepoError(w, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (h *ReportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, repo.ExportNames())
}

// Export streams one named export as CSV.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ex, err := h.Repo.Export(r.Context(), name)
	if errors.Is(err, repo.ErrNotFound) {
		JSONError(w, "unknown export "+name, http.StatusNotFound)
		return
	}
	if err != nil {
		writeRepoError(w, err, "export")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ex.Filename+`"`)
	cw := csv.NewWriter(w)
	if err := cw.Write(ex.Header); err != nil {
		slog.Error("csv export failed", "export", name, "err", err)
		return
	}
	if err := cw.WriteAll(ex.Rows); err != nil {
		slog.Error("csv export failed", "export", name, "err", err)
	}
}
