// Package ledger owns custody of assets: the open/returned assignment rows and
// the denormalized state and holder columns of the asset they project onto.
// Every write happens inside one transaction with the asset row locked, so the
// snapshot always matches the set of open assignments.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/crucial707/asset-custody/internal/models"
	"github.com/lib/pq"
)

// Audit notes written on assignment rows.
const (
	noteAssigned     = "Assigned via movement"
	noteReturned     = " | Returned via movement"
	noteBulkReturned = " | Returned (bulk check-in)"
)

// Ledger records checkouts and check-ins against a Postgres store.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a Ledger using db.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Input is one checkout or check-in request.
type Input struct {
	AssetID int
	Kind    string

	// CollaboratorID wins over CollaboratorRef, which may be a RUT or a name.
	CollaboratorID  int
	CollaboratorRef string
	ProjectID       *int

	// Shared allows several simultaneous holders. Only read on checkout.
	Shared bool

	Location     string
	ConditionOut string
	ConditionIn  string
	Notes        string
	LoginUser    string
	Supervisor   string
	ProjectLabel string

	AssignedOn *time.Time
	ReturnedOn *time.Time

	UserID   *int
	UserName string
}

// Result lists the assignment rows touched and the resulting snapshot.
type Result struct {
	MovementID int                  `json:"movement_id"`
	EventIDs   []int                `json:"event_ids"`
	Asset      models.AssetSnapshot `json:"asset"`
}

// NormalizeKind maps accepted spellings (including SALIDA / ENTRADA) to a movement kind.
func NormalizeKind(kind string) string {
	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case models.MovementCheckout, "SALIDA":
		return models.MovementCheckout
	case models.MovementCheckin, "ENTRADA":
		return models.MovementCheckin
	}
	return ""
}

func (in *Input) validate() error {
	if in.AssetID <= 0 {
		return &ValidationError{Field: "asset_id", Message: "required"}
	}
	if in.Kind == "" {
		return &ValidationError{Field: "kind", Message: "required"}
	}
	kind := NormalizeKind(in.Kind)
	if kind == "" {
		return &ValidationError{Field: "kind", Message: "must be CHECKOUT or CHECKIN"}
	}
	in.Kind = kind
	if kind == models.MovementCheckout && in.CollaboratorID <= 0 && strings.TrimSpace(in.CollaboratorRef) == "" {
		return &ValidationError{Field: "collaborator", Message: "required for checkout"}
	}
	return nil
}

// RecordMovement applies a checkout or check-in. Validation and conflict
// errors are detected before any write; on any error nothing is committed.
func (l *Ledger) RecordMovement(ctx context.Context, in Input) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Result{}, storageErr("begin", err)
	}
	defer tx.Rollback()

	var res Result
	if in.Kind == models.MovementCheckout {
		res, err = l.checkout(ctx, tx, in)
	} else {
		res, err = l.checkin(ctx, tx, in)
	}
	if err != nil {
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, storageErr("commit", err)
	}
	return res, nil
}

type openEvent struct {
	ID             int
	CollaboratorID sql.NullInt64
	Shared         bool
	Name           string
}

func (l *Ledger) checkout(ctx context.Context, tx *sql.Tx, in Input) (Result, error) {
	h, err := resolveCollaborator(ctx, tx, in.CollaboratorID, in.CollaboratorRef)
	if err != nil {
		return Result{}, err
	}
	if !h.Active {
		return Result{}, &ConflictError{Reason: "collaborator " + h.Name + " is inactive"}
	}

	state, err := lockAsset(ctx, tx, in.AssetID)
	if err != nil {
		return Result{}, err
	}
	if state != models.AssetFree && state != models.AssetAssigned {
		return Result{}, &ConflictError{Reason: "asset is " + state + " and cannot be checked out"}
	}

	open, err := openEvents(ctx, tx, in.AssetID)
	if err != nil {
		return Result{}, err
	}
	for _, e := range open {
		if e.CollaboratorID.Valid && int(e.CollaboratorID.Int64) == h.ID {
			return Result{}, &ConflictError{Reason: "asset already has an active assignment for this collaborator"}
		}
	}
	if len(open) > 0 && !in.Shared {
		return Result{}, &ConflictError{Reason: "asset is not shared and is already assigned; check it in before reassigning"}
	}
	for _, e := range open {
		if !e.Shared {
			return Result{}, &ConflictError{Reason: "asset is held exclusively by " + e.Name + "; check it in before sharing"}
		}
	}

	projectID := projectFor(in.ProjectID, h)
	assignedTo := strings.TrimSpace(in.CollaboratorRef)
	if assignedTo == "" {
		assignedTo = h.Name
	}
	movementID, err := insertMovement(ctx, tx, in, &h.ID, projectID, assignedTo)
	if err != nil {
		return Result{}, err
	}

	assignedOn := l.dateOrNow(in.AssignedOn)
	var eventID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO asset_assignments (asset_id, collaborator_id, project_id, shared, assigned_on, status, notes)
		 VALUES ($1, $2, $3, $4, $5, 'ASSIGNED', $6)
		 RETURNING id`,
		in.AssetID, h.ID, projectID, in.Shared, assignedOn, noteAssigned,
	).Scan(&eventID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return Result{}, &ConflictError{Reason: "asset was assigned concurrently; check it in before reassigning"}
		}
		return Result{}, storageErr("insert assignment", err)
	}

	label := h.Name
	var holderID any = h.ID
	if in.Shared {
		label = models.HolderShared
		holderID = nil
		projectID = nil
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE assets SET state = 'ASSIGNED', holder_label = $1, collaborator_id = $2, project_id = $3,
		 login_user = $4, supervisor = $5, project_label = $6, assigned_on = $7, returned_on = NULL,
		 location = COALESCE($8, location), updated_at = NOW()
		 WHERE id = $9`,
		label, holderID, projectID,
		nullIfEmpty(in.LoginUser), nullIfEmpty(in.Supervisor), nullIfEmpty(in.ProjectLabel),
		assignedOn, nullIfEmpty(in.Location), in.AssetID,
	)
	if err != nil {
		return Result{}, storageErr("update asset snapshot", err)
	}

	return Result{
		MovementID: movementID,
		EventIDs:   []int{eventID},
		Asset: models.AssetSnapshot{
			ID:          in.AssetID,
			State:       models.AssetAssigned,
			HolderLabel: &label,
			OpenEvents:  len(open) + 1,
		},
	}, nil
}

func (l *Ledger) checkin(ctx context.Context, tx *sql.Tx, in Input) (Result, error) {
	h, err := resolveCollaborator(ctx, tx, in.CollaboratorID, in.CollaboratorRef)
	if err != nil {
		return Result{}, err
	}

	state, err := lockAsset(ctx, tx, in.AssetID)
	if err != nil {
		return Result{}, err
	}

	var collaboratorID *int
	var projectID any
	assignedTo := strings.TrimSpace(in.CollaboratorRef)
	if h != nil {
		collaboratorID = &h.ID
		projectID = projectFor(in.ProjectID, h)
		if assignedTo == "" {
			assignedTo = h.Name
		}
	}
	movementID, err := insertMovement(ctx, tx, in, collaboratorID, projectID, assignedTo)
	if err != nil {
		return Result{}, err
	}

	returnedOn := l.dateOrNow(in.ReturnedOn)
	var rows *sql.Rows
	if h != nil {
		rows, err = tx.QueryContext(ctx,
			`UPDATE asset_assignments SET status = 'RETURNED', returned_on = $1, notes = COALESCE(notes, '') || $2
			 WHERE asset_id = $3 AND status = 'ASSIGNED' AND collaborator_id = $4
			 RETURNING id`,
			returnedOn, noteReturned, in.AssetID, h.ID,
		)
	} else {
		rows, err = tx.QueryContext(ctx,
			`UPDATE asset_assignments SET status = 'RETURNED', returned_on = $1, notes = COALESCE(notes, '') || $2
			 WHERE asset_id = $3 AND status = 'ASSIGNED'
			 RETURNING id`,
			returnedOn, noteBulkReturned, in.AssetID,
		)
	}
	if err != nil {
		return Result{}, storageErr("close assignments", err)
	}
	closed, err := scanIDs(rows)
	if err != nil {
		return Result{}, storageErr("close assignments", err)
	}

	remaining, err := openEvents(ctx, tx, in.AssetID)
	if err != nil {
		return Result{}, err
	}

	snap := models.AssetSnapshot{ID: in.AssetID, State: state, OpenEvents: len(remaining)}
	switch {
	case len(remaining) > 0:
		label := models.HolderShared
		var holderID any
		if len(remaining) == 1 && !remaining[0].Shared {
			label = remaining[0].Name
			holderID = remaining[0].CollaboratorID
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE assets SET state = 'ASSIGNED', holder_label = $1, collaborator_id = $2,
			 location = COALESCE($3, location), updated_at = NOW()
			 WHERE id = $4`,
			label, holderID, nullIfEmpty(in.Location), in.AssetID,
		)
		snap.State = models.AssetAssigned
		snap.HolderLabel = &label
	case state == models.AssetAssigned || state == models.AssetFree:
		// A check-in that closed nothing keeps the previous return date.
		var returned any
		if len(closed) > 0 {
			returned = returnedOn
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE assets SET state = 'FREE', holder_label = NULL, collaborator_id = NULL, project_id = NULL,
			 login_user = NULL, supervisor = NULL, project_label = NULL,
			 location = COALESCE($1, location), returned_on = COALESCE($2, returned_on), updated_at = NOW()
			 WHERE id = $3`,
			nullIfEmpty(in.Location), returned, in.AssetID,
		)
		snap.State = models.AssetFree
	default:
		// Maintenance, retired and obsolete assets keep their state.
		_, err = tx.ExecContext(ctx,
			`UPDATE assets SET location = COALESCE($1, location), updated_at = NOW() WHERE id = $2`,
			nullIfEmpty(in.Location), in.AssetID,
		)
	}
	if err != nil {
		return Result{}, storageErr("update asset snapshot", err)
	}

	if closed == nil {
		closed = []int{}
	}
	return Result{MovementID: movementID, EventIDs: closed, Asset: snap}, nil
}

func lockAsset(ctx context.Context, q querier, assetID int) (string, error) {
	var state string
	err := q.QueryRowContext(ctx, `SELECT state FROM assets WHERE id = $1 FOR UPDATE`, assetID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrAssetNotFound
	}
	if err != nil {
		return "", storageErr("lock asset", err)
	}
	return state, nil
}

func openEvents(ctx context.Context, q querier, assetID int) ([]openEvent, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT aa.id, aa.collaborator_id, aa.shared, COALESCE(c.name, '')
		 FROM asset_assignments aa LEFT JOIN collaborators c ON c.id = aa.collaborator_id
		 WHERE aa.asset_id = $1 AND aa.status = 'ASSIGNED'
		 ORDER BY aa.id`,
		assetID,
	)
	if err != nil {
		return nil, storageErr("read open assignments", err)
	}
	defer rows.Close()

	var out []openEvent
	for rows.Next() {
		var e openEvent
		if err := rows.Scan(&e.ID, &e.CollaboratorID, &e.Shared, &e.Name); err != nil {
			return nil, storageErr("read open assignments", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read open assignments", err)
	}
	return out, nil
}

func insertMovement(ctx context.Context, tx *sql.Tx, in Input, collaboratorID *int, projectID any, assignedTo string) (int, error) {
	responsible := in.UserName
	if responsible == "" {
		responsible = "unknown"
	}
	var id int
	err := tx.QueryRowContext(ctx,
		`INSERT INTO movements (asset_id, kind, user_id, responsible_user, collaborator_id, project_id,
		 assigned_to, location, condition_out, condition_in, notes, login_user, supervisor,
		 project_label, shared, assigned_on, returned_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id`,
		in.AssetID, in.Kind, intOrNil(in.UserID), responsible, intOrNil(collaboratorID), projectID,
		nullIfEmpty(assignedTo), nullIfEmpty(in.Location), nullIfEmpty(in.ConditionOut),
		nullIfEmpty(in.ConditionIn), nullIfEmpty(in.Notes), nullIfEmpty(in.LoginUser),
		nullIfEmpty(in.Supervisor), nullIfEmpty(in.ProjectLabel), in.Shared && in.Kind == models.MovementCheckout,
		timeOrNil(in.AssignedOn), timeOrNil(in.ReturnedOn),
	).Scan(&id)
	if err != nil {
		return 0, storageErr("insert movement", err)
	}
	return id, nil
}

func (l *Ledger) dateOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return l.now()
}

func projectFor(explicit *int, h *holder) any {
	if explicit != nil {
		return *explicit
	}
	if h != nil && h.ProjectID.Valid {
		return h.ProjectID.Int64
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]int, error) {
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullIfEmpty(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
