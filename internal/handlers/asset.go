package handlers

import (
	"net/http"
	"strings"

	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/repo"
)

type AssetHandler struct {
	Repo      *repo.AssetRepo
	Movements *repo.MovementRepo
	Ledger    *ledger.Ledger
	AuditRepo *repo.AuditRepo
}

// Categories tracked without a serial number.
var serialOptional = map[string]bool{
	"peripheral": true,
	"mouse":      true,
	"keyboard":   true,
}

//
// ==========================
// Create Asset
// ==========================
//

func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Category string `json:"category" validate:"required,max=50"`
		Name     string `json:"name" validate:"max=255"`
		Brand    string `json:"brand" validate:"max=100"`
		Model    string `json:"model" validate:"max=100"`
		Serial   string `json:"serial" validate:"max=100"`
		ICCID    string `json:"iccid" validate:"max=50"`
		Phone    string `json:"phone" validate:"max=30"`
		Hostname string `json:"hostname" validate:"max=100"`
		NbSSD    string `json:"nb_ssd" validate:"max=50"`
		NbRAM    string `json:"nb_ram" validate:"max=50"`
		NbOS     string `json:"nb_os" validate:"max=100"`
		Location string `json:"location" validate:"max=255"`
		Notes    string `json:"notes" validate:"max=1000"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Category = strings.ToLower(strings.TrimSpace(input.Category))
	input.Serial = strings.TrimSpace(input.Serial)
	if !validateInput(w, input) {
		return
	}
	if input.Serial == "" && !serialOptional[input.Category] {
		JSONValidationError(w, "validation failed", map[string]string{"serial": "required for " + input.Category}, http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = defaultAssetName(input.Brand, input.Model, input.Serial, input.Category)
	}

	asset, err := h.Repo.Create(r.Context(), repo.NewAsset{
		Category: input.Category,
		Name:     name,
		Brand:    strings.TrimSpace(input.Brand),
		Model:    strings.TrimSpace(input.Model),
		Serial:   input.Serial,
		ICCID:    strings.TrimSpace(input.ICCID),
		Phone:    strings.TrimSpace(input.Phone),
		Hostname: strings.TrimSpace(input.Hostname),
		NbSSD:    input.NbSSD,
		NbRAM:    input.NbRAM,
		NbOS:     input.NbOS,
		Location: strings.TrimSpace(input.Location),
		Notes:    input.Notes,
	}, callerID(r))
	if err != nil {
		writeRepoError(w, err, "asset with this serial")
		return
	}

	logAudit(r, h.AuditRepo, "create", "asset", asset.ID, asset.Name)
	writeJSON(w, http.StatusCreated, asset)
}

func defaultAssetName(brand, model, serial, category string) string {
	if n := strings.TrimSpace(strings.TrimSpace(brand) + " " + strings.TrimSpace(model)); n != "" {
		return n
	}
	if serial != "" {
		return serial
	}
	return category
}

//
// ==========================
// List Assets
// ==========================
//

func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repo.AssetFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		State:    strings.ToUpper(strings.TrimSpace(q.Get("state"))),
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
		Limit:    queryInt(r, "limit", 50, 1, 500),
		Offset:   queryInt(r, "offset", 0, 0, 0),
	}

	assets, total, err := h.Repo.List(r.Context(), f)
	if err != nil {
		writeRepoError(w, err, "asset")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  assets,
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
}

//
// ==========================
// Get Asset By ID
// ==========================
//

func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}
	asset, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "asset")
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

//
// ==========================
// Update Technical Fields
// ==========================
//

func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}

	var input struct {
		Changes map[string]string `json:"changes" validate:"required,min=1"`
		Reason  string            `json:"reason" validate:"required,max=500"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Reason = strings.TrimSpace(input.Reason)
	if !validateInput(w, input) {
		return
	}
	fields := map[string]string{}
	for f, v := range input.Changes {
		if _, ok := repo.EditableFields[f]; !ok {
			fields[f] = "not editable"
			continue
		}
		input.Changes[f] = strings.TrimSpace(v)
	}
	if v, ok := input.Changes["name"]; ok && v == "" {
		fields["name"] = "required"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	changes, err := h.Repo.UpdateFields(r.Context(), id, input.Changes, input.Reason, callerID(r))
	if err != nil {
		writeRepoError(w, err, "asset")
		return
	}

	if len(changes) > 0 {
		logAudit(r, h.AuditRepo, "update", "asset", id, input.Reason)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"changes": changes})
}

//
// ==========================
// Histories
// ==========================
//

// AssetHistory lists technical field changes, newest first.
func (h *AssetHandler) AssetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}
	changes, err := h.Repo.History(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "asset")
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (h *AssetHandler) AssetMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}
	movements, err := h.Movements.ByAsset(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "asset")
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (h *AssetHandler) AssetAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}
	open, err := h.Ledger.OpenAssignments(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, open)
}

//
// ==========================
// Change State
// ==========================
//

func (h *AssetHandler) SetAssetState(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}
	var input struct {
		State  string `json:"state"`
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	snap, err := h.Ledger.SetAssetState(r.Context(), id, input.State, input.Reason, callerID(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	logAudit(r, h.AuditRepo, "state", "asset", id, snap.State+": "+strings.TrimSpace(input.Reason))
	writeJSON(w, http.StatusOK, snap)
}

//
// ==========================
// Delete Asset
// ==========================
//

func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}
	if err := h.Repo.DeleteByID(r.Context(), id); err != nil {
		writeRepoError(w, err, "asset")
		return
	}

	logAudit(r, h.AuditRepo, "delete", "asset", id, "")
	w.WriteHeader(http.StatusNoContent)
}
