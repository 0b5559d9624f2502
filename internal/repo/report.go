package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crucial707/asset-custody/internal/models"
)

// ReportRepo runs the dashboard and export queries.
type ReportRepo struct {
	DB *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{DB: db}
}

// KPIs counts assets, assigned assets and movements in the month of now.
func (r *ReportRepo) KPIs(ctx context.Context, now time.Time) (models.KPIs, error) {
	var k models.KPIs
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	err := r.DB.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM assets),
		   (SELECT COUNT(*) FROM assets WHERE state = 'ASSIGNED'),
		   (SELECT COUNT(*) FROM movements WHERE recorded_at >= $1 AND recorded_at < $2)`,
		monthStart, monthStart.AddDate(0, 1, 0),
	).Scan(&k.TotalAssets, &k.AssignedAssets, &k.MovementsMonth)
	return k, err
}

// Export is a named tabular result ready for CSV encoding.
type Export struct {
	Filename string
	Header   []string
	Rows     [][]string
}

var exports = map[string]struct {
	filename string
	query    string
}{
	"assets": {"assets.csv",
		`SELECT id, category, state, name, brand, model, serial, iccid, phone, hostname,
		 nb_ssd, nb_ram, nb_os, location, holder_label, project_label, supervisor, login_user,
		 assigned_on, returned_on, notes, created_at
		 FROM assets ORDER BY id DESC`},
	"movements": {"movements.csv",
		`SELECT m.id, m.asset_id, a.name AS asset_name, a.serial, m.kind, m.recorded_at,
		 m.responsible_user, m.assigned_to, m.location, m.condition_out, m.condition_in, m.notes
		 FROM movements m JOIN assets a ON a.id = m.asset_id
		 ORDER BY m.recorded_at DESC, m.id DESC`},
	"peripherals": {"peripherals.csv",
		`SELECT id, category, name, brand, model, sku, barcode, location,
		 stock_current, stock_minimum, notes, created_at
		 FROM peripherals ORDER BY id DESC`},
}

// ExportNames lists the available exports.
func ExportNames() []string {
	return []string{"assets", "movements", "peripherals"}
}

// Export runs one of the named export queries. NULLs become empty cells.
func (r *ReportRepo) Export(ctx context.Context, name string) (*Export, error) {
	def, ok := exports[name]
	if !ok {
		return nil, ErrNotFound
	}
	rows, err := r.DB.QueryContext(ctx, def.query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Export{Filename: def.filename, Header: cols, Rows: [][]string{}}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make([]string, len(cols))
		for i, v := range values {
			record[i] = cell(v)
		}
		out.Rows = append(out.Rows, record)
	}
	return out, rows.Err()
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
