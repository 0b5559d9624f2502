package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/middleware"
	"github.com/crucial707/asset-custody/internal/repo"
	"github.com/crucial707/asset-custody/internal/rut"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// JSONError sends a JSON error response with a single "error" field.
func JSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// JSONValidationError sends a JSON error response with "error" and optional "fields" for field-level details.
// status is typically http.StatusBadRequest (400).
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string, status int) {
	out := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		out["fields"] = fields
	}
	writeJSON(w, status, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. It writes the error response
// itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, io.EOF):
		JSONError(w, "request body is empty", http.StatusBadRequest)
	default:
		JSONError(w, "invalid JSON", http.StatusBadRequest)
	}
	return false
}

// ==========================
// Validation
// ==========================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("rut", func(fl validator.FieldLevel) bool {
		return rut.Valid(fl.Field().String())
	})
	return v
}

// validateInput runs struct validation and writes a 400 with per-field tags on failure.
func validateInput(w http.ResponseWriter, input interface{}) bool {
	err := validate.Struct(input)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields[fe.Field()] = msg
	}
	JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
	return false
}

// ==========================
// Request helpers
// ==========================

func urlID(w http.ResponseWriter, r *http.Request, what string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		JSONError(w, "invalid "+what+" id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt parses a query parameter, falling back when it is absent or below
// min and clamping it to max when max is positive.
func queryInt(r *http.Request, key string, fallback, min, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < min {
		return fallback
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// callerID returns the authenticated user id, or nil for anonymous calls.
func callerID(r *http.Request) *int {
	if id, ok := middleware.GetUserID(r.Context()); ok {
		return &id
	}
	return nil
}

func logAudit(r *http.Request, auditRepo *repo.AuditRepo, action, resourceType string, resourceID int, details string) {
	if auditRepo == nil {
		return
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return
	}
	if err := auditRepo.Log(r.Context(), userID, action, resourceType, resourceID, details); err != nil {
		slog.Warn("audit log write failed", "action", action, "resource", resourceType, "id", resourceID, "err", err)
	}
}

// writeRepoError maps repository sentinels to status codes.
func writeRepoError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		JSONError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrDuplicate):
		JSONError(w, what+" already exists", http.StatusConflict)
	case errors.Is(err, repo.ErrInUse):
		JSONError(w, what+" is referenced by other records", http.StatusConflict)
	default:
		slog.Error("repository call failed", "resource", what, "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}

// writeLedgerError maps ledger errors to status codes and returns the outcome
// label used for metrics.
func writeLedgerError(w http.ResponseWriter, err error) string {
	var (
		verr     *ledger.ValidationError
		notFound *ledger.CollaboratorNotFoundError
		conflict *ledger.ConflictError
		pending  *ledger.PendingAssetsError
		storage  *ledger.StorageError
	)
	switch {
	case errors.As(err, &verr):
		JSONValidationError(w, "validation failed", map[string]string{verr.Field: verr.Message}, http.StatusBadRequest)
		return "invalid"
	case errors.Is(err, ledger.ErrAssetNotFound):
		JSONError(w, "asset not found", http.StatusNotFound)
		return "not_found"
	case errors.As(err, &notFound):
		JSONError(w, notFound.Error(), http.StatusNotFound)
		return "not_found"
	case errors.As(err, &conflict):
		JSONError(w, conflict.Reason, http.StatusConflict)
		return "conflict"
	case errors.As(err, &pending):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":          pending.Error(),
			"pending_assets": pending.Assets,
		})
		return "conflict"
	case errors.As(err, &storage):
		slog.Error("ledger storage failure", "op", storage.Op, "err", storage.Err)
	default:
		slog.Error("ledger call failed", "err", err)
	}
	JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	return "error"
}
