package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/asset-custody/internal/models"
)

func TestPeripheralRepo_Move_In(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stock_current FROM peripherals WHERE id = \$1 FOR UPDATE`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"stock_current"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO peripheral_moves`).
		WithArgs(4, "IN", 5, "bodega", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, time.Now()))
	mock.ExpectExec(`UPDATE peripherals SET stock_current = \$1 WHERE id = \$2`).WithArgs(8, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m := &models.StockMove{PeripheralID: 4, Kind: models.StockIn, Quantity: 5, Responsible: "bodega"}
	stock, err := NewPeripheralRepo(db).Move(context.Background(), m)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if stock != 8 || m.ID != 10 {
		t.Errorf("Move: got stock %d id %d, want 8 and 10", stock, m.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPeripheralRepo_Move_OutBelowZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stock_current FROM peripherals`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"stock_current"}).AddRow(2))
	mock.ExpectRollback()

	_, err = NewPeripheralRepo(db).Move(context.Background(), &models.StockMove{PeripheralID: 4, Kind: models.StockOut, Quantity: 3})
	if err != ErrInsufficientStock {
		t.Errorf("Move: got %v, want ErrInsufficientStock", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
