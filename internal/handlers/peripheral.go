package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/crucial707/asset-custody/internal/middleware"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/crucial707/asset-custody/internal/repo"
)

// PeripheralHandler manages bulk items tracked by stock count.
type PeripheralHandler struct {
	Repo      *repo.PeripheralRepo
	AuditRepo *repo.AuditRepo
}

func (h *PeripheralHandler) ListPeripherals(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeRepoError(w, err, "peripheral")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PeripheralHandler) CreatePeripheral(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Category     string `json:"category" validate:"required,max=50"`
		Name         string `json:"name" validate:"required,max=255"`
		Brand        string `json:"brand" validate:"max=100"`
		Model        string `json:"model" validate:"max=100"`
		SKU          string `json:"sku" validate:"max=100"`
		Barcode      string `json:"barcode" validate:"max=100"`
		Location     string `json:"location" validate:"max=255"`
		StockMinimum int    `json:"stock_minimum" validate:"gte=0"`
		Notes        string `json:"notes" validate:"max=1000"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Category = strings.TrimSpace(input.Category)
	input.Name = strings.TrimSpace(input.Name)
	if !validateInput(w, input) {
		return
	}

	p, err := h.Repo.Create(r.Context(), models.Peripheral{
		Category:     input.Category,
		Name:         input.Name,
		Brand:        input.Brand,
		Model:        input.Model,
		SKU:          input.SKU,
		Barcode:      input.Barcode,
		Location:     input.Location,
		StockMinimum: input.StockMinimum,
		Notes:        input.Notes,
	})
	if err != nil {
		writeRepoError(w, err, "peripheral")
		return
	}

	logAudit(r, h.AuditRepo, "create", "peripheral", p.ID, p.Name)
	writeJSON(w, http.StatusCreated, p)
}

// MoveStock records an IN or OUT move. OUT beyond the current stock answers 409.
func (h *PeripheralHandler) MoveStock(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "peripheral")
	if !ok {
		return
	}
	var input struct {
		Kind        string `json:"kind" validate:"required,oneof=IN OUT"`
		Quantity    int    `json:"quantity" validate:"required,gt=0"`
		Counterpart string `json:"counterpart" validate:"max=255"`
		Notes       string `json:"notes" validate:"max=1000"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Kind = strings.ToUpper(strings.TrimSpace(input.Kind))
	if !validateInput(w, input) {
		return
	}

	move := &models.StockMove{
		PeripheralID: id,
		Kind:         input.Kind,
		Quantity:     input.Quantity,
		Counterpart:  input.Counterpart,
		Notes:        input.Notes,
	}
	if c, ok := middleware.GetClaims(r.Context()); ok {
		move.Responsible = c.Name
	}

	stock, err := h.Repo.Move(r.Context(), move)
	if errors.Is(err, repo.ErrInsufficientStock) {
		JSONError(w, "insufficient stock", http.StatusConflict)
		return
	}
	if err != nil {
		writeRepoError(w, err, "peripheral")
		return
	}

	logAudit(r, h.AuditRepo, "stock", "peripheral", id, move.Kind)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"move":          move,
		"stock_current": stock,
	})
}

func (h *PeripheralHandler) ListMoves(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "peripheral")
	if !ok {
		return
	}
	moves, err := h.Repo.Moves(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "peripheral")
		return
	}
	writeJSON(w, http.StatusOK, moves)
}
