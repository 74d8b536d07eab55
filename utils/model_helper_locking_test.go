package utils

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type heldDocument struct {
	ID         int
	BusinessId string
	Status     string
}

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

// Two concurrent postings against the same document must serialize on the
// row, so the fetch has to emit FOR UPDATE.
func TestFetchModelForUpdate_EmitsRowLock(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM .held_documents. WHERE business_id = .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "status"}).
			AddRow(7, "biz-1", "Checked"))

	doc, err := FetchModelForUpdate[heldDocument](db, "biz-1", 7)
	if err != nil {
		t.Fatalf("FetchModelForUpdate: %v", err)
	}
	if doc.ID != 7 || doc.Status != "Checked" {
		t.Fatalf("unexpected row: %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected a SELECT ending in FOR UPDATE: %v", err)
	}
}
