package repo

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/crucial707/asset-custody/internal/models"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

var dialect = goqu.Dialect("postgres")

// ========================
// REPOSITORY STRUCT
// ========================

type AssetRepo struct {
	DB *sql.DB
}

func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{DB: db}
}

const assetColumns = `a.id, a.category, a.name, COALESCE(a.brand, ''), COALESCE(a.model, ''), a.serial,
	COALESCE(a.iccid, ''), COALESCE(a.phone, ''), COALESCE(a.hostname, ''),
	COALESCE(a.nb_ssd, ''), COALESCE(a.nb_ram, ''), COALESCE(a.nb_os, ''),
	a.state, COALESCE(a.location, ''), a.holder_label, a.collaborator_id,
	COALESCE(a.login_user, ''), COALESCE(a.supervisor, ''), COALESCE(a.project_label, ''),
	a.assigned_on, a.returned_on, COALESCE(a.notes, ''), a.created_at, a.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(s rowScanner, extra ...any) (models.Asset, error) {
	var (
		a            models.Asset
		serial       sql.NullString
		holder       sql.NullString
		collaborator sql.NullInt64
		assigned     sql.NullTime
		returned     sql.NullTime
	)
	dest := []any{
		&a.ID, &a.Category, &a.Name, &a.Brand, &a.Model, &serial,
		&a.ICCID, &a.Phone, &a.Hostname,
		&a.NbSSD, &a.NbRAM, &a.NbOS,
		&a.State, &a.Location, &holder, &collaborator,
		&a.LoginUser, &a.Supervisor, &a.ProjectLabel,
		&assigned, &returned, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return a, err
	}
	if serial.Valid {
		a.Serial = &serial.String
	}
	if holder.Valid {
		a.HolderLabel = &holder.String
	}
	a.CollaboratorID = intPtr(collaborator)
	a.AssignedOn = timePtr(assigned)
	a.ReturnedOn = timePtr(returned)
	return a, nil
}

// ========================
// LIST / SEARCH ASSETS
// ========================

// AssetFilter narrows List. Zero values mean no filter.
type AssetFilter struct {
	Query    string
	State    string
	Category string
	Limit    int
	Offset   int
}

// List returns assets newest first with their open assignment count and
// current holder names, plus the total number of matching rows.
func (r *AssetRepo) List(ctx context.Context, f AssetFilter) ([]models.Asset, int, error) {
	holders := dialect.From(goqu.T("asset_assignments").As("aa")).
		Join(goqu.T("collaborators").As("c"), goqu.On(goqu.Ex{"c.id": goqu.I("aa.collaborator_id")})).
		Where(goqu.Ex{"aa.status": models.AssignmentOpen}).
		GroupBy(goqu.I("aa.asset_id")).
		Select(
			goqu.I("aa.asset_id"),
			goqu.COUNT("*").As("open_assignments"),
			goqu.L(`string_agg(c.name, ' | ' ORDER BY aa.assigned_on DESC)`).As("current_holders"),
		)

	ds := dialect.From(goqu.T("assets").As("a")).
		LeftJoin(holders.As("x"), goqu.On(goqu.Ex{"x.asset_id": goqu.I("a.id")})).
		Select(
			goqu.L(assetColumns),
			goqu.L(`COALESCE(x.open_assignments, 0)`),
			goqu.L(`COALESCE(x.current_holders, '')`),
			goqu.L(`COUNT(*) OVER()`),
		)

	if f.Query != "" {
		like := "%" + f.Query + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("a.brand").ILike(like),
			goqu.I("a.model").ILike(like),
			goqu.I("a.serial").ILike(like),
			goqu.I("a.hostname").ILike(like),
			goqu.I("a.holder_label").ILike(like),
			goqu.I("x.current_holders").ILike(like),
		))
	}
	if f.State != "" {
		ds = ds.Where(goqu.Ex{"a.state": f.State})
	}
	if f.Category != "" {
		ds = ds.Where(goqu.Ex{"a.category": f.Category})
	}
	ds = ds.Order(goqu.I("a.created_at").Desc(), goqu.I("a.id").Desc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit))
	}
	if f.Offset > 0 {
		ds = ds.Offset(uint(f.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build asset query: %w", err)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assets := []models.Asset{}
	total := 0
	for rows.Next() {
		var open, count int
		var names string
		a, err := scanAsset(rows, &open, &names, &count)
		if err != nil {
			return nil, 0, err
		}
		a.OpenAssignments = open
		a.CurrentHolders = names
		total = count
		assets = append(assets, a)
	}
	return assets, total, rows.Err()
}

// ========================
// CREATE ASSET
// ========================

// NewAsset holds the fields accepted on creation. The custody snapshot starts FREE.
type NewAsset struct {
	Category string
	Name     string
	Brand    string
	Model    string
	Serial   string
	ICCID    string
	Phone    string
	Hostname string
	NbSSD    string
	NbRAM    string
	NbOS     string
	Location string
	Notes    string
}

func (r *AssetRepo) Create(ctx context.Context, in NewAsset, createdBy *int) (models.Asset, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO assets (category, name, brand, model, serial, iccid, phone, hostname,
		 nb_ssd, nb_ram, nb_os, state, location, notes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'FREE', $12, $13, $14)
		 RETURNING `+assetColumnsBare,
		in.Category, in.Name, nullString(in.Brand), nullString(in.Model), nullString(in.Serial),
		nullString(in.ICCID), nullString(in.Phone), nullString(in.Hostname),
		nullString(in.NbSSD), nullString(in.NbRAM), nullString(in.NbOS),
		nullString(in.Location), nullString(in.Notes), nullInt(createdBy),
	)
	a, err := scanAsset(row)
	return a, mapErr(err)
}

// assetColumnsBare is assetColumns without the table alias, for RETURNING clauses.
const assetColumnsBare = `id, category, name, COALESCE(brand, ''), COALESCE(model, ''), serial,
	COALESCE(iccid, ''), COALESCE(phone, ''), COALESCE(hostname, ''),
	COALESCE(nb_ssd, ''), COALESCE(nb_ram, ''), COALESCE(nb_os, ''),
	state, COALESCE(location, ''), holder_label, collaborator_id,
	COALESCE(login_user, ''), COALESCE(supervisor, ''), COALESCE(project_label, ''),
	assigned_on, returned_on, COALESCE(notes, ''), created_at, updated_at`

// ========================
// GET ASSET BY ID
// ========================

func (r *AssetRepo) GetByID(ctx context.Context, id int) (models.Asset, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets a WHERE a.id = $1`, id)
	a, err := scanAsset(row)
	return a, mapErr(err)
}

// ========================
// UPDATE TECHNICAL FIELDS
// ========================

// EditableFields maps request field names to asset columns that may be
// changed outside the ledger. Custody columns are not listed.
var EditableFields = map[string]string{
	"name":     "name",
	"hostname": "hostname",
	"nb_ssd":   "nb_ssd",
	"nb_ram":   "nb_ram",
	"nb_os":    "nb_os",
	"iccid":    "iccid",
	"phone":    "phone",
}

// UpdateFields applies changes to technical fields and writes one history
// row per changed field with the given reason, in one transaction.
// Unchanged values are skipped; the returned slice lists what changed.
func (r *AssetRepo) UpdateFields(ctx context.Context, id int, changes map[string]string, reason string, changedBy *int) ([]models.AssetChange, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current := map[string]sql.NullString{}
	var name, hostname, ssd, ram, nbOS, iccid, phone sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT name, hostname, nb_ssd, nb_ram, nb_os, iccid, phone FROM assets WHERE id = $1 FOR UPDATE`, id,
	).Scan(&name, &hostname, &ssd, &ram, &nbOS, &iccid, &phone)
	if err != nil {
		return nil, mapErr(err)
	}
	current["name"], current["hostname"] = name, hostname
	current["nb_ssd"], current["nb_ram"], current["nb_os"] = ssd, ram, nbOS
	current["iccid"], current["phone"] = iccid, phone

	fields := make([]string, 0, len(changes))
	for f := range changes {
		if _, ok := EditableFields[f]; !ok {
			return nil, fmt.Errorf("field %q is not editable", f)
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)

	applied := []models.AssetChange{}
	record := goqu.Record{}
	for _, f := range fields {
		old := current[f]
		next := changes[f]
		if (old.Valid && old.String == next) || (!old.Valid && next == "") {
			continue
		}
		record[EditableFields[f]] = nullString(next)

		ch := models.AssetChange{AssetID: id, Field: f, Reason: reason, ChangedBy: changedBy}
		if old.Valid {
			v := old.String
			ch.OldValue = &v
		}
		if next != "" {
			v := next
			ch.NewValue = &v
		}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO asset_history (asset_id, field, old_value, new_value, reason, changed_by)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, changed_at`,
			id, f, nullString(old.String), nullString(next), reason, nullInt(changedBy),
		).Scan(&ch.ID, &ch.ChangedAt)
		if err != nil {
			return nil, err
		}
		applied = append(applied, ch)
	}

	if len(record) > 0 {
		record["updated_at"] = goqu.L("NOW()")
		query, args, err := dialect.Update("assets").Set(record).Where(goqu.Ex{"id": id}).Prepared(true).ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build asset update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, mapErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return applied, nil
}

// ========================
// FIELD HISTORY
// ========================

func (r *AssetRepo) History(ctx context.Context, id int) ([]models.AssetChange, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, asset_id, field, old_value, new_value, COALESCE(reason, ''), changed_by, changed_at
		 FROM asset_history WHERE asset_id = $1 ORDER BY changed_at DESC, id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []models.AssetChange{}
	for rows.Next() {
		var (
			c          models.AssetChange
			prev, next sql.NullString
			by         sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.AssetID, &c.Field, &prev, &next, &c.Reason, &by, &c.ChangedAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			c.OldValue = &prev.String
		}
		if next.Valid {
			c.NewValue = &next.String
		}
		c.ChangedBy = intPtr(by)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// ========================
// DELETE ASSET BY ID
// ========================

// DeleteByID removes an asset. Assets referenced by movements or assignments
// return ErrInUse.
func (r *AssetRepo) DeleteByID(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
