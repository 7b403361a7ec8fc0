package index

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestInsertBuilder(t *testing.T) {
	ctx := context.Background()

	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectedSQL := "INSERT INTO ticket_index VALUES (?, ?, ?, ?)"

	mock.ExpectExec(regexp.QuoteMeta(expectedSQL)).
		WithArgs(int64(3), "register", "waiting", int64(102)).
		WillReturnResult(sqlmock.NewResult(3, 1))

	insVal := InsertCond{Arg: []any{int64(3), "register", "waiting", int64(102)}}
	id, err := InsertFrom("ticket_index").Values(&insVal).Exec(ctx, db)
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if id != 3 {
		t.Fatalf("id = %d, want 3", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestInsertBuilder_Upsert(t *testing.T) {
	ctx := context.Background()

	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectedSQL := "INSERT INTO ticket_index VALUES (?, ?, ?, ?)" +
		" ON DUPLICATE KEY UPDATE service = VALUES(service), status = VALUES(status), created_at = VALUES(created_at)"

	mock.ExpectExec(regexp.QuoteMeta(expectedSQL)).
		WithArgs(int64(3), "register", "serving", int64(102)).
		WillReturnResult(sqlmock.NewResult(3, 2))

	insVal := InsertCond{Arg: []any{int64(3), "register", "serving", int64(102)}}
	_, err := InsertFrom("ticket_index").
		Values(&insVal).
		OnDuplicateKeyUpdate("service", "status", "created_at").
		Exec(ctx, db)
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestInsertBuilder_NoValues(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	_, err := InsertFrom("ticket_index").Exec(context.Background(), db)
	if err != ErrValuesRequired {
		t.Fatalf("err = %v, want ErrValuesRequired", err)
	}
}
