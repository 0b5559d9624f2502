package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestWriteLedgerError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		outcome string
	}{
		{"validation", &ledger.ValidationError{Field: "kind", Message: "required"}, http.StatusBadRequest, "invalid"},
		{"asset", ledger.ErrAssetNotFound, http.StatusNotFound, "not_found"},
		{"collaborator", &ledger.CollaboratorNotFoundError{Ref: "ana", Ambiguous: true}, http.StatusNotFound, "not_found"},
		{"conflict", &ledger.ConflictError{Reason: "asset is held"}, http.StatusConflict, "conflict"},
		{"pending", &ledger.PendingAssetsError{CollaboratorID: 7, Assets: []models.PendingAsset{{ID: 30}}}, http.StatusConflict, "conflict"},
		{"storage", &ledger.StorageError{Op: "commit", Err: errors.New("connection reset")}, http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			outcome := writeLedgerError(rr, tt.err)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.outcome, outcome)
			assert.NotContains(t, rr.Body.String(), "connection reset")
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", 100) + `"}`
	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte(body)))
	rr := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rr, req.Body, 16)

	var dst map[string]string
	assert.False(t, decodeJSON(rr, req, &dst))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestValidateInput_Fields(t *testing.T) {
	input := struct {
		RUT  string `json:"rut" validate:"required,rut"`
		Name string `json:"name" validate:"required,min=2"`
	}{RUT: "11.111.111-1", Name: "A"}

	rr := httptest.NewRecorder()
	assert.False(t, validateInput(rr, input))
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	assert.Equal(t, map[string]string{"name": "min=2"}, resp.Fields)
}
