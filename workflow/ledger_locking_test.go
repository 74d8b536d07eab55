package workflow

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return db, mock
}

// The projection read that seeds BalanceAfter has to hold the row; without
// FOR UPDATE two concurrent appends for the same key can both read the same
// balance and write the same BalanceAfter.
func TestCurrentBalanceForUpdate_EmitsRowLock(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM .stock_summaries. WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"business_id", "warehouse_id", "variant_id", "current_qty"}).
			AddRow("biz-1", 2, 9, "41.5"))

	balance, err := currentBalanceForUpdate(db, "biz-1", 2, 9)
	if err != nil {
		t.Fatalf("currentBalanceForUpdate: %v", err)
	}
	if !balance.Equal(dec("41.5")) {
		t.Fatalf("expected balance 41.5, got %s", balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected a SELECT ending in FOR UPDATE: %v", err)
	}
}

func TestCurrentBalanceForUpdate_MissingRowIsZero(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM .stock_summaries. WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"business_id", "warehouse_id", "variant_id", "current_qty"}))

	balance, err := currentBalanceForUpdate(db, "biz-1", 2, 9)
	if err != nil {
		t.Fatalf("currentBalanceForUpdate: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("a key with no summary row must read as zero, got %s", balance)
	}
}
