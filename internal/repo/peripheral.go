package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/crucial707/asset-custody/internal/models"
)

// ErrInsufficientStock is returned when an OUT move exceeds the current stock.
var ErrInsufficientStock = errors.New("insufficient stock")

// PeripheralRepo manages bulk items and their stock moves.
type PeripheralRepo struct {
	DB *sql.DB
}

func NewPeripheralRepo(db *sql.DB) *PeripheralRepo {
	return &PeripheralRepo{DB: db}
}

const peripheralColumns = `id, category, name, COALESCE(brand, ''), COALESCE(model, ''), COALESCE(sku, ''),
	COALESCE(barcode, ''), COALESCE(location, ''), stock_current, stock_minimum, COALESCE(notes, ''), created_at`

func scanPeripheral(s rowScanner) (models.Peripheral, error) {
	var p models.Peripheral
	err := s.Scan(&p.ID, &p.Category, &p.Name, &p.Brand, &p.Model, &p.SKU,
		&p.Barcode, &p.Location, &p.StockCurrent, &p.StockMinimum, &p.Notes, &p.CreatedAt)
	return p, err
}

// List returns peripherals newest first, filtered by name, brand or model.
func (r *PeripheralRepo) List(ctx context.Context, q string) ([]models.Peripheral, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+peripheralColumns+` FROM peripherals
		 WHERE name ILIKE $1 OR brand ILIKE $1 OR model ILIKE $1
		 ORDER BY id DESC`,
		"%"+q+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Peripheral{}
	for rows.Next() {
		p, err := scanPeripheral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a peripheral with zero stock.
func (r *PeripheralRepo) Create(ctx context.Context, p models.Peripheral) (models.Peripheral, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO peripherals (category, name, brand, model, sku, barcode, location, stock_minimum, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+peripheralColumns,
		p.Category, p.Name, nullString(p.Brand), nullString(p.Model), nullString(p.SKU),
		nullString(p.Barcode), nullString(p.Location), p.StockMinimum, nullString(p.Notes),
	)
	created, err := scanPeripheral(row)
	return created, mapErr(err)
}

// Move records a stock move and adjusts stock_current in one transaction.
// It returns the new stock level.
func (r *PeripheralRepo) Move(ctx context.Context, m *models.StockMove) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var stock int
	err = tx.QueryRowContext(ctx, `SELECT stock_current FROM peripherals WHERE id = $1 FOR UPDATE`, m.PeripheralID).Scan(&stock)
	if err != nil {
		return 0, mapErr(err)
	}

	switch m.Kind {
	case models.StockIn:
		stock += m.Quantity
	case models.StockOut:
		if m.Quantity > stock {
			return 0, ErrInsufficientStock
		}
		stock -= m.Quantity
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO peripheral_moves (peripheral_id, kind, quantity, responsible, counterpart, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		m.PeripheralID, m.Kind, m.Quantity, nullString(m.Responsible), nullString(m.Counterpart), nullString(m.Notes),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return 0, mapErr(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE peripherals SET stock_current = $1 WHERE id = $2`, stock, m.PeripheralID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stock, nil
}

// Moves returns the kardex of one peripheral, newest first.
func (r *PeripheralRepo) Moves(ctx context.Context, peripheralID int) ([]models.StockMove, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, peripheral_id, kind, quantity, COALESCE(responsible, ''), COALESCE(counterpart, ''),
		 COALESCE(notes, ''), created_at
		 FROM peripheral_moves WHERE peripheral_id = $1 ORDER BY created_at DESC, id DESC`,
		peripheralID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.StockMove{}
	for rows.Next() {
		var m models.StockMove
		if err := rows.Scan(&m.ID, &m.PeripheralID, &m.Kind, &m.Quantity, &m.Responsible, &m.Counterpart, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
