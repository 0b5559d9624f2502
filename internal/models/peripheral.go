package models

import "time"

// Stock move kinds for peripherals.
const (
	StockIn  = "IN"
	StockOut = "OUT"
)

// Peripheral is a bulk item tracked by stock count rather than by custody.
type Peripheral struct {
	ID           int       `json:"id"`
	Category     string    `json:"category"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand,omitempty"`
	Model        string    `json:"model,omitempty"`
	SKU          string    `json:"sku,omitempty"`
	Barcode      string    `json:"barcode,omitempty"`
	Location     string    `json:"location,omitempty"`
	StockCurrent int       `json:"stock_current"`
	StockMinimum int       `json:"stock_minimum"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StockMove is one kardex entry for a peripheral.
type StockMove struct {
	ID           int       `json:"id"`
	PeripheralID int       `json:"peripheral_id"`
	Kind         string    `json:"kind"`
	Quantity     int       `json:"quantity"`
	Responsible  string    `json:"responsible,omitempty"`
	Counterpart  string    `json:"counterpart,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
