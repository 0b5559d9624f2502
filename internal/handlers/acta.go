package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/crucial707/asset-custody/internal/acta"
	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/crucial707/asset-custody/internal/repo"
)

// ActaHandler generates and serves delivery actas.
type ActaHandler struct {
	Repo          *repo.ActaRepo
	Collaborators *repo.CollaboratorRepo
	Assets        *repo.AssetRepo
	Ledger        *ledger.Ledger
	Renderer      *acta.Renderer
	AuditRepo     *repo.AuditRepo
	Now           func() time.Time
}

// CreateActa renders an acta for a collaborator. Without asset_ids it lists
// every asset the collaborator currently holds.
func (h *ActaHandler) CreateActa(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CollaboratorID int       `json:"collaborator_id" validate:"required,gt=0"`
		AssetIDs       []int     `json:"asset_ids" validate:"omitempty,dive,gt=0"`
		Date           dateValue `json:"date"`
		CostCenter     string    `json:"cost_center" validate:"max=100"`
		Description    string    `json:"description" validate:"max=2000"`
		Observations   string    `json:"observations" validate:"max=2000"`
		ProductType    string    `json:"product_type" validate:"omitempty,oneof=NUEVO REACONDICIONADO"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if !validateInput(w, input) {
		return
	}

	c, err := h.Collaborators.GetByID(r.Context(), input.CollaboratorID)
	if err != nil {
		writeRepoError(w, err, "collaborator")
		return
	}

	items, ok := h.items(w, r, input.CollaboratorID, input.AssetIDs)
	if !ok {
		return
	}
	if len(items) == 0 {
		JSONError(w, "collaborator holds no assets; pass asset_ids", http.StatusBadRequest)
		return
	}

	date := time.Now()
	if h.Now != nil {
		date = h.Now()
	}
	if input.Date.t != nil {
		date = *input.Date.t
	}

	doc, err := h.Renderer.Generate(acta.Request{
		CollaboratorID: c.ID,
		Name:           c.Name,
		RUT:            c.RUT,
		Position:       c.PositionName,
		Area:           c.ProjectName,
		Date:           date,
		CostCenter:     input.CostCenter,
		Description:    input.Description,
		Observations:   input.Observations,
		ProductType:    input.ProductType,
		Items:          items,
	})
	if err != nil {
		slog.Error("acta generation failed", "collaborator_id", c.ID, "err", err)
		JSONError(w, "failed to generate acta", http.StatusInternalServerError)
		return
	}

	record := &models.Acta{
		Folio:            doc.Folio,
		CollaboratorID:   c.ID,
		CollaboratorName: c.Name,
		CollaboratorRUT:  c.RUT,
		ActaDate:         date,
		DocumentPath:     doc.Path,
		Description:      doc.Description,
		CostCenter:       input.CostCenter,
		CreatedBy:        callerID(r),
	}
	if err := h.Repo.Create(r.Context(), record); err != nil {
		if rmErr := os.Remove(doc.Path); rmErr != nil {
			slog.Warn("acta file cleanup failed", "path", doc.Path, "err", rmErr)
		}
		writeRepoError(w, err, "acta")
		return
	}

	logAudit(r, h.AuditRepo, "create", "acta", record.ID, doc.FileName)
	writeJSON(w, http.StatusCreated, record)
}

func (h *ActaHandler) items(w http.ResponseWriter, r *http.Request, collaboratorID int, assetIDs []int) ([]acta.Item, bool) {
	items := []acta.Item{}
	if len(assetIDs) == 0 {
		held, err := h.Ledger.HeldBy(r.Context(), collaboratorID)
		if err != nil {
			writeLedgerError(w, err)
			return nil, false
		}
		for _, a := range held {
			items = append(items, acta.Item{Brand: a.Brand, Model: a.Model, Name: a.Name, Serial: a.Serial})
		}
		return items, true
	}

	for _, id := range assetIDs {
		a, err := h.Assets.GetByID(r.Context(), id)
		if err != nil {
			writeRepoError(w, err, "asset "+strconv.Itoa(id))
			return nil, false
		}
		it := acta.Item{Brand: a.Brand, Model: a.Model, Name: a.Name, Phone: a.Phone}
		if a.Serial != nil {
			it.Serial = *a.Serial
		}
		items = append(items, it)
	}
	return items, true
}

// ListActas returns the acta history. Query: collaborator_id.
func (h *ActaHandler) ListActas(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.List(r.Context(), queryInt(r, "collaborator_id", 0, 1, 0))
	if err != nil {
		writeRepoError(w, err, "acta")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ActaHandler) GetActa(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "acta")
	if !ok {
		return
	}
	a, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "acta")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DownloadActa serves the stored document as an attachment.
func (h *ActaHandler) DownloadActa(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "acta")
	if !ok {
		return
	}
	a, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "acta")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(a.DocumentPath)+`"`)
	http.ServeFile(w, r, a.DocumentPath)
}
