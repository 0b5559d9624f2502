package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/metrics"
	"github.com/crucial707/asset-custody/internal/middleware"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/crucial707/asset-custody/internal/repo"
)

// ==========================
// MovementHandler
// ==========================
type MovementHandler struct {
	Repo   *repo.MovementRepo
	Ledger *ledger.Ledger
}

const latestMovementLimit = 200

// yesNo accepts a JSON bool or the strings SI/NO, YES/NO, true/false.
type yesNo bool

func (b *yesNo) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = yesNo(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("shared: expected bool or SI/NO")
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SI", "SÍ", "YES", "TRUE", "1":
		*b = true
	case "NO", "FALSE", "0", "":
		*b = false
	default:
		return fmt.Errorf("shared: unknown value %q", s)
	}
	return nil
}

// dateValue accepts YYYY-MM-DD or RFC 3339. Empty and null leave it unset.
type dateValue struct {
	t *time.Time
}

func (d *dateValue) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(*s)); err == nil {
			d.t = &t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", *s)
}

// ==========================
// Lists
// ==========================

func (h *MovementHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Repo.Latest(r.Context(), latestMovementLimit)
	if err != nil {
		writeRepoError(w, err, "movement")
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (h *MovementHandler) ListByAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "asset")
	if !ok {
		return
	}
	movements, err := h.Repo.ByAsset(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "movement")
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

// ==========================
// Record Movement
// ==========================

// CreateMovement records a checkout or check-in through the ledger.
func (h *MovementHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AssetID         int       `json:"asset_id"`
		Kind            string    `json:"kind"`
		CollaboratorID  int       `json:"collaborator_id"`
		CollaboratorRef string    `json:"collaborator"`
		ProjectID       *int      `json:"project_id"`
		Shared          yesNo     `json:"shared"`
		Location        string    `json:"location"`
		ConditionOut    string    `json:"condition_out"`
		ConditionIn     string    `json:"condition_in"`
		Notes           string    `json:"notes"`
		LoginUser       string    `json:"login_user"`
		Supervisor      string    `json:"supervisor"`
		ProjectLabel    string    `json:"project_label"`
		AssignedOn      dateValue `json:"assigned_on"`
		ReturnedOn      dateValue `json:"returned_on"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	in := ledger.Input{
		AssetID:         input.AssetID,
		Kind:            input.Kind,
		CollaboratorID:  input.CollaboratorID,
		CollaboratorRef: strings.TrimSpace(input.CollaboratorRef),
		ProjectID:       input.ProjectID,
		Shared:          bool(input.Shared),
		Location:        input.Location,
		ConditionOut:    input.ConditionOut,
		ConditionIn:     input.ConditionIn,
		Notes:           input.Notes,
		LoginUser:       input.LoginUser,
		Supervisor:      input.Supervisor,
		ProjectLabel:    input.ProjectLabel,
		AssignedOn:      input.AssignedOn.t,
		ReturnedOn:      input.ReturnedOn.t,
	}
	if claims, ok := middleware.GetClaims(r.Context()); ok {
		id := claims.UserID
		in.UserID = &id
		in.UserName = claims.Name
	}

	kind := kindLabel(ledger.NormalizeKind(in.Kind))
	res, err := h.Ledger.RecordMovement(r.Context(), in)
	if err != nil {
		outcome := writeLedgerError(w, err)
		metrics.RecordMovement(kind, outcome)
		slog.Warn("movement rejected",
			"asset_id", in.AssetID, "kind", kind,
			"collaborator_id", in.CollaboratorID, "collaborator_ref", in.CollaboratorRef,
			"outcome", outcome, "err", err)
		return
	}

	metrics.RecordMovement(kind, "ok")
	slog.Info("movement recorded",
		"asset_id", in.AssetID, "kind", kind, "movement_id", res.MovementID,
		"events", len(res.EventIDs), "state", res.Asset.State)
	writeJSON(w, http.StatusCreated, res)
}

// kindLabel bounds the metric label to the known kinds.
func kindLabel(kind string) string {
	if kind == models.MovementCheckout || kind == models.MovementCheckin {
		return kind
	}
	return "unknown"
}
