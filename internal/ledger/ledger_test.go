package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qByID       = `SELECT id, name, project_id, active FROM collaborators WHERE id = \$1 FOR SHARE`
	qByRUT      = `SELECT id, name, project_id, active FROM collaborators WHERE rut = \$1 ORDER BY id LIMIT 2 FOR SHARE`
	qByName     = `SELECT id, name, project_id, active FROM collaborators WHERE name = \$1 ORDER BY id LIMIT 2 FOR SHARE`
	qByFragment = `SELECT id, name, project_id, active FROM collaborators WHERE name ILIKE \$1 ORDER BY id LIMIT 2 FOR SHARE`
	qLock       = `SELECT state FROM assets WHERE id = \$1 FOR UPDATE`
	qOpen       = `SELECT aa.id, aa.collaborator_id, aa.shared, COALESCE\(c.name, ''\) FROM asset_assignments aa LEFT JOIN collaborators c`
	qMovement   = `INSERT INTO movements \(asset_id, kind, user_id, responsible_user`
	qAssign     = `INSERT INTO asset_assignments \(asset_id, collaborator_id, project_id, shared, assigned_on, status, notes\)`
	qCloseOne   = `UPDATE asset_assignments SET status = 'RETURNED'.* AND collaborator_id = \$4 RETURNING id`
	qCloseAll   = `UPDATE asset_assignments SET status = 'RETURNED'.* WHERE asset_id = \$3 AND status = 'ASSIGNED' RETURNING id`
)

var collaboratorCols = []string{"id", "name", "project_id", "active"}
var openCols = []string{"id", "collaborator_id", "shared", "name"}

func newLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l := New(db)
	fixed := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	return l, mock
}

func expectCollaborator(mock sqlmock.Sqlmock, id int, name string, active bool) {
	mock.ExpectQuery(qByID).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(collaboratorCols).AddRow(id, name, nil, active))
}

// ==========================
// Asset #10: exclusive custody
// ==========================

func TestRecordMovement_ExclusiveCheckout(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 5, "Ana", true)
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("FREE"))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery(qAssign).
		WithArgs(10, 5, nil, false, sqlmock.AnyArg(), noteAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE assets SET state = 'ASSIGNED', holder_label = \$1, collaborator_id = \$2`).
		WithArgs("Ana", 5, nil, nil, nil, nil, sqlmock.AnyArg(), "Bodega", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{
		AssetID: 10, Kind: "CHECKOUT", CollaboratorID: 5, Location: "Bodega", UserName: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.MovementID)
	assert.Equal(t, []int{1}, res.EventIDs)
	assert.Equal(t, models.AssetAssigned, res.Asset.State)
	require.NotNil(t, res.Asset.HolderLabel)
	assert.Equal(t, "Ana", *res.Asset.HolderLabel)
	assert.Equal(t, 1, res.Asset.OpenEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_CheckoutOfHeldAssetConflicts(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 6, "Bruno", true)
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols).AddRow(1, 5, false, "Ana"))
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorID: 6})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	// No movement or assignment insert may have been issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_BulkCheckin(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectQuery(qCloseAll).
		WithArgs(sqlmock.AnyArg(), noteBulkReturned, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols))
	mock.ExpectExec(`UPDATE assets SET state = 'FREE', holder_label = NULL`).
		WithArgs(nil, sqlmock.AnyArg(), 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKIN"})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.EventIDs)
	assert.Equal(t, models.AssetFree, res.Asset.State)
	assert.Nil(t, res.Asset.HolderLabel)
	assert.Equal(t, 0, res.Asset.OpenEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_CheckinOfFreeAssetStillLogs(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("FREE"))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(102))
	mock.ExpectQuery(qCloseAll).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols))
	// Nothing was closed, so returned_on is passed as NULL and kept.
	mock.ExpectExec(`UPDATE assets SET state = 'FREE'.*returned_on = COALESCE\(\$2, returned_on\)`).
		WithArgs(nil, nil, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "ENTRADA"})
	require.NoError(t, err)
	assert.Equal(t, 102, res.MovementID)
	assert.Empty(t, res.EventIDs)
	assert.NotNil(t, res.EventIDs)
	assert.Equal(t, models.AssetFree, res.Asset.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_CheckinKeepsMaintenanceState(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("MAINTENANCE"))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(103))
	mock.ExpectQuery(qCloseAll).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols))
	mock.ExpectExec(`UPDATE assets SET location = COALESCE\(\$1, location\)`).
		WithArgs("Taller", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKIN", Location: "Taller"})
	require.NoError(t, err)
	assert.Equal(t, models.AssetMaintenance, res.Asset.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Asset #20: shared custody
// ==========================

func TestRecordMovement_SecondSharedCheckout(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 6, "Bruno", true)
	mock.ExpectQuery(qLock).WithArgs(20).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qOpen).WithArgs(20).WillReturnRows(sqlmock.NewRows(openCols).AddRow(11, 5, true, "Ana"))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(200))
	mock.ExpectQuery(qAssign).
		WithArgs(20, 6, nil, true, sqlmock.AnyArg(), noteAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec(`UPDATE assets SET state = 'ASSIGNED'`).
		WithArgs(models.HolderShared, nil, nil, nil, nil, nil, sqlmock.AnyArg(), nil, 20).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 20, Kind: "CHECKOUT", CollaboratorID: 6, Shared: true})
	require.NoError(t, err)
	assert.Equal(t, []int{12}, res.EventIDs)
	assert.Equal(t, models.HolderShared, *res.Asset.HolderLabel)
	assert.Equal(t, 2, res.Asset.OpenEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_ScopedCheckinOfSharedAsset(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qByRUT).WithArgs("Ana").WillReturnRows(sqlmock.NewRows(collaboratorCols))
	mock.ExpectQuery(qByName).WithArgs("Ana").
		WillReturnRows(sqlmock.NewRows(collaboratorCols).AddRow(5, "Ana", 3, true))
	mock.ExpectQuery(qLock).WithArgs(20).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(201))
	mock.ExpectQuery(qCloseOne).
		WithArgs(sqlmock.AnyArg(), noteReturned, 20, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(qOpen).WithArgs(20).WillReturnRows(sqlmock.NewRows(openCols).AddRow(12, 6, true, "Bruno"))
	mock.ExpectExec(`UPDATE assets SET state = 'ASSIGNED', holder_label = \$1`).
		WithArgs(models.HolderShared, nil, nil, 20).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 20, Kind: "CHECKIN", CollaboratorRef: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, []int{11}, res.EventIDs)
	assert.Equal(t, models.AssetAssigned, res.Asset.State)
	assert.Equal(t, models.HolderShared, *res.Asset.HolderLabel)
	assert.Equal(t, 1, res.Asset.OpenEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_ScopedCheckinOfLastSharedHolderFrees(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 6, "Bruno", true)
	mock.ExpectQuery(qLock).WithArgs(20).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(202))
	mock.ExpectQuery(qCloseOne).
		WithArgs(sqlmock.AnyArg(), noteReturned, 20, 6).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectQuery(qOpen).WithArgs(20).WillReturnRows(sqlmock.NewRows(openCols))
	mock.ExpectExec(`UPDATE assets SET state = 'FREE', holder_label = NULL`).
		WithArgs(nil, sqlmock.AnyArg(), 20).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 20, Kind: "CHECKIN", CollaboratorID: 6})
	require.NoError(t, err)
	assert.Equal(t, []int{12}, res.EventIDs)
	assert.Equal(t, models.AssetFree, res.Asset.State)
	assert.Nil(t, res.Asset.HolderLabel)
	assert.Equal(t, 0, res.Asset.OpenEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_CheckinRelabelsRemainingExclusiveHolder(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 6, "Bruno", true)
	mock.ExpectQuery(qLock).WithArgs(20).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(203))
	mock.ExpectQuery(qCloseOne).
		WithArgs(sqlmock.AnyArg(), noteReturned, 20, 6).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectQuery(qOpen).WithArgs(20).WillReturnRows(sqlmock.NewRows(openCols).AddRow(11, 5, false, "Ana"))
	mock.ExpectExec(`UPDATE assets SET state = 'ASSIGNED', holder_label = \$1, collaborator_id = \$2`).
		WithArgs("Ana", 5, nil, 20).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 20, Kind: "CHECKIN", CollaboratorID: 6})
	require.NoError(t, err)
	assert.Equal(t, models.AssetAssigned, res.Asset.State)
	require.NotNil(t, res.Asset.HolderLabel)
	assert.Equal(t, "Ana", *res.Asset.HolderLabel)
	assert.Equal(t, 1, res.Asset.OpenEvents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_DuplicateSharedHolderConflicts(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 5, "Ana", true)
	mock.ExpectQuery(qLock).WithArgs(20).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qOpen).WithArgs(20).WillReturnRows(sqlmock.NewRows(openCols).AddRow(11, 5, true, "Ana"))
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 20, Kind: "CHECKOUT", CollaboratorID: 5, Shared: true})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "already has an active assignment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_SharedCheckoutOverExclusiveHolderConflicts(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 6, "Bruno", true)
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols).AddRow(1, 5, false, "Ana"))
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorID: 6, Shared: true})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Rejections
// ==========================

func TestRecordMovement_Validation(t *testing.T) {
	l, _ := newLedger(t)

	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing asset", Input{Kind: "CHECKOUT", CollaboratorID: 1}, "asset_id"},
		{"missing kind", Input{AssetID: 1}, "kind"},
		{"unknown kind", Input{AssetID: 1, Kind: "LOAN"}, "kind"},
		{"checkout without collaborator", Input{AssetID: 1, Kind: "SALIDA", CollaboratorRef: "  "}, "collaborator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.RecordMovement(context.Background(), tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRecordMovement_AmbiguousReferenceFailsClosed(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qByRUT).WithArgs("an").WillReturnRows(sqlmock.NewRows(collaboratorCols))
	mock.ExpectQuery(qByName).WithArgs("an").WillReturnRows(sqlmock.NewRows(collaboratorCols))
	mock.ExpectQuery(qByFragment).WithArgs("%an%").
		WillReturnRows(sqlmock.NewRows(collaboratorCols).AddRow(5, "Ana", nil, true).AddRow(9, "Juan", nil, true))
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorRef: "an"})
	var nf *CollaboratorNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, nf.Ambiguous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_UnformattedRUTResolves(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qByRUT).WithArgs("12.345.678-5").
		WillReturnRows(sqlmock.NewRows(collaboratorCols).AddRow(5, "Ana", nil, true))
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("FREE"))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(104))
	mock.ExpectQuery(qAssign).
		WithArgs(10, 5, nil, false, sqlmock.AnyArg(), noteAssigned).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(`UPDATE assets SET state = 'ASSIGNED'`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorRef: "12345678-5"})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, res.EventIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_RepeatedExactMatchFailsClosed(t *testing.T) {
	t.Run("generic rut", func(t *testing.T) {
		l, mock := newLedger(t)

		mock.ExpectBegin()
		mock.ExpectQuery(qByRUT).WithArgs("11.111.111-1").
			WillReturnRows(sqlmock.NewRows(collaboratorCols).AddRow(3, "Carla", nil, true).AddRow(4, "Diego", nil, true))
		mock.ExpectRollback()

		_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorRef: "11111111-1"})
		var nf *CollaboratorNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.True(t, nf.Ambiguous)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("shared name", func(t *testing.T) {
		l, mock := newLedger(t)

		mock.ExpectBegin()
		mock.ExpectQuery(qByRUT).WithArgs("Ana Soto").WillReturnRows(sqlmock.NewRows(collaboratorCols))
		mock.ExpectQuery(qByName).WithArgs("Ana Soto").
			WillReturnRows(sqlmock.NewRows(collaboratorCols).AddRow(5, "Ana Soto", nil, true).AddRow(9, "Ana Soto", nil, true))
		mock.ExpectRollback()

		_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorRef: "Ana Soto"})
		var nf *CollaboratorNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.True(t, nf.Ambiguous)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordMovement_UnknownReferenceOnCheckin(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qByRUT).WithArgs("Zoe").WillReturnRows(sqlmock.NewRows(collaboratorCols))
	mock.ExpectQuery(qByName).WithArgs("Zoe").WillReturnRows(sqlmock.NewRows(collaboratorCols))
	mock.ExpectQuery(qByFragment).WithArgs("%Zoe%").WillReturnRows(sqlmock.NewRows(collaboratorCols))
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKIN", CollaboratorRef: "Zoe"})
	var nf *CollaboratorNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.False(t, nf.Ambiguous)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_InactiveCollaborator(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 5, "Ana", false)
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorID: 5})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_RetiredAssetCannotBeCheckedOut(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 5, "Ana", true)
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("RETIRED"))
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorID: 5})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_AssetNotFound(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qLock).WithArgs(404).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 404, Kind: "CHECKIN"})
	assert.ErrorIs(t, err, ErrAssetNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_ConcurrentInsertMapsToConflict(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	expectCollaborator(mock, 5, "Ana", true)
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("FREE"))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols))
	mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery(qAssign).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKOUT", CollaboratorID: 5})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovement_StorageErrors(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		l, mock := newLedger(t)
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKIN"})
		var serr *StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "begin", serr.Op)
	})

	t.Run("commit", func(t *testing.T) {
		l, mock := newLedger(t)
		mock.ExpectBegin()
		mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("FREE"))
		mock.ExpectQuery(qMovement).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(qCloseAll).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(qOpen).WillReturnRows(sqlmock.NewRows(openCols))
		mock.ExpectExec(`UPDATE assets SET state = 'FREE'`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		_, err := l.RecordMovement(context.Background(), Input{AssetID: 10, Kind: "CHECKIN"})
		var serr *StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "commit", serr.Op)
	})
}

func TestNormalizeKind(t *testing.T) {
	assert.Equal(t, models.MovementCheckout, NormalizeKind("salida"))
	assert.Equal(t, models.MovementCheckout, NormalizeKind(" CHECKOUT "))
	assert.Equal(t, models.MovementCheckin, NormalizeKind("Entrada"))
	assert.Equal(t, models.MovementCheckin, NormalizeKind("checkin"))
	assert.Equal(t, "", NormalizeKind("transfer"))
}

// ==========================
// Collaborator #7 / Asset #30
// ==========================

func TestSetCollaboratorActive_BlockedByPendingAssets(t *testing.T) {
	l, mock := newLedger(t)
	assigned := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM collaborators WHERE id = \$1 FOR UPDATE`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`FROM asset_assignments aa JOIN assets a ON a.id = aa.asset_id WHERE aa.collaborator_id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "name", "brand", "model", "serial", "state", "assigned_on"}).
			AddRow(30, "notebook", "NB-30", "Lenovo", "T14", "SN30", "ASSIGNED", assigned))
	mock.ExpectRollback()

	_, err := l.SetCollaboratorActive(context.Background(), 7, false)
	var pending *PendingAssetsError
	require.ErrorAs(t, err, &pending)
	require.Len(t, pending.Assets, 1)
	assert.Equal(t, 30, pending.Assets[0].ID)
	assert.Equal(t, "SN30", pending.Assets[0].Serial)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCollaboratorActive_Deactivate(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM collaborators WHERE id = \$1 FOR UPDATE`).WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectQuery(`FROM asset_assignments aa JOIN assets a`).WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "name", "brand", "model", "serial", "state", "assigned_on"}))
	mock.ExpectExec(`UPDATE collaborators SET active = \$1 WHERE id = \$2`).WithArgs(false, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	active, err := l.SetCollaboratorActive(context.Background(), 8, false)
	require.NoError(t, err)
	assert.False(t, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCollaboratorActive_ActivateSkipsLedger(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM collaborators WHERE id = \$1 FOR UPDATE`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`UPDATE collaborators SET active = \$1 WHERE id = \$2`).WithArgs(true, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	active, err := l.SetCollaboratorActive(context.Background(), 7, true)
	require.NoError(t, err)
	assert.True(t, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCollaboratorActive_NotFound(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM collaborators WHERE id = \$1 FOR UPDATE`).WithArgs(99).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := l.SetCollaboratorActive(context.Background(), 99, false)
	var nf *CollaboratorNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// State changes and reads
// ==========================

func TestSetAssetState(t *testing.T) {
	l, mock := newLedger(t)
	uid := 1

	mock.ExpectBegin()
	mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("FREE"))
	mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols))
	mock.ExpectExec(`UPDATE assets SET state = \$1`).WithArgs("MAINTENANCE", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO asset_history`).WithArgs(10, "FREE", "MAINTENANCE", "broken screen", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	snap, err := l.SetAssetState(context.Background(), 10, "maintenance", "broken screen", &uid)
	require.NoError(t, err)
	assert.Equal(t, models.AssetMaintenance, snap.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAssetState_Rejections(t *testing.T) {
	t.Run("assigned is ledger owned", func(t *testing.T) {
		l, _ := newLedger(t)
		_, err := l.SetAssetState(context.Background(), 10, "ASSIGNED", "x", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
	t.Run("reason required", func(t *testing.T) {
		l, _ := newLedger(t)
		_, err := l.SetAssetState(context.Background(), 10, "RETIRED", " ", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "reason", verr.Field)
	})
	t.Run("open assignments", func(t *testing.T) {
		l, mock := newLedger(t)
		mock.ExpectBegin()
		mock.ExpectQuery(qLock).WithArgs(10).WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("ASSIGNED"))
		mock.ExpectQuery(qOpen).WithArgs(10).WillReturnRows(sqlmock.NewRows(openCols).AddRow(1, 5, false, "Ana"))
		mock.ExpectRollback()

		_, err := l.SetAssetState(context.Background(), 10, "RETIRED", "lost", nil)
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDrift(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectQuery(`SELECT a.id, a.state, COUNT\(aa.id\) FROM assets a LEFT JOIN asset_assignments aa`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "state", "count"}).
			AddRow(3, "ASSIGNED", 0).
			AddRow(4, "FREE", 1))

	drift, err := l.Drift(context.Background())
	require.NoError(t, err)
	require.Len(t, drift, 2)
	assert.Equal(t, models.Drift{AssetID: 3, State: "ASSIGNED", OpenEvents: 0}, drift[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenAssignments(t *testing.T) {
	l, mock := newLedger(t)
	assigned := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM asset_assignments aa LEFT JOIN collaborators c ON c.id = aa.collaborator_id WHERE aa.asset_id = \$1`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "collaborator_id", "name", "project_id", "shared", "assigned_on", "returned_on", "status", "notes"}).
			AddRow(11, 20, 5, "Ana", nil, true, assigned, nil, "ASSIGNED", noteAssigned).
			AddRow(12, 20, 6, "Bruno", 2, true, assigned, nil, "ASSIGNED", noteAssigned))

	list, err := l.OpenAssignments(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bruno", list[1].CollaboratorName)
	require.NotNil(t, list[1].ProjectID)
	assert.Equal(t, 2, *list[1].ProjectID)
	assert.Nil(t, list[0].ReturnedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
