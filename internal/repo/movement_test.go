package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var movementCols = []string{"id", "asset_id", "kind", "recorded_at", "user_id", "responsible_user",
	"collaborator_id", "assigned_to", "location", "condition_out", "condition_in", "notes",
	"login_user", "supervisor", "project_label", "shared", "assigned_on", "returned_on",
	"category", "brand", "model", "serial"}

func TestMovementRepo_ByAsset(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM movements m JOIN assets a ON a.id = m.asset_id WHERE m.asset_id = \$1 ORDER BY m.recorded_at DESC`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(movementCols).
			AddRow(101, 10, "CHECKIN", now, 1, "admin", nil, "", "Bodega", "", "OK", "", "", "", "", false, nil, now,
				"notebook", "Lenovo", "T14", "SN10").
			AddRow(100, 10, "CHECKOUT", now, nil, "unknown", 5, "Ana", "", "OK", "", "", "", "", "", true, now, nil,
				"notebook", "Lenovo", "T14", "SN10"))

	list, err := NewMovementRepo(db).ByAsset(context.Background(), 10)
	if err != nil {
		t.Fatalf("ByAsset: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ByAsset: got %d movements, want 2", len(list))
	}
	if list[0].UserID == nil || *list[0].UserID != 1 || list[0].CollaboratorID != nil || list[0].ReturnedOn == nil {
		t.Errorf("unexpected checkin row: %+v", list[0])
	}
	if list[1].CollaboratorID == nil || *list[1].CollaboratorID != 5 || !list[1].Shared || list[1].AssignedOn == nil {
		t.Errorf("unexpected checkout row: %+v", list[1])
	}
	if list[1].AssetSerial != "SN10" {
		t.Errorf("AssetSerial = %q, want SN10", list[1].AssetSerial)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestMovementRepo_LatestEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM movements m JOIN assets a ON a.id = m.asset_id ORDER BY m.recorded_at DESC, m.id DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(movementCols))

	list, err := NewMovementRepo(db).Latest(context.Background(), 50)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("Latest: got %#v, want an empty non-nil slice", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestMovementRepo_ByCollaborator(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`WHERE m.collaborator_id = \$1 ORDER BY m.recorded_at DESC, m.id DESC LIMIT \$2`).
		WithArgs(5, 20).
		WillReturnRows(sqlmock.NewRows(movementCols).
			AddRow(100, 10, "CHECKOUT", time.Now(), nil, "admin", 5, "Ana", "", "", "", "", "", "", "", false, nil, nil,
				"notebook", "", "", ""))

	list, err := NewMovementRepo(db).ByCollaborator(context.Background(), 5, 20)
	if err != nil {
		t.Fatalf("ByCollaborator: %v", err)
	}
	if len(list) != 1 || list[0].AssignedTo != "Ana" {
		t.Errorf("unexpected movements: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
