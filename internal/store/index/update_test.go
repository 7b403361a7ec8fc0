package index

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUpdateBuilder(t *testing.T) {
	ctx := context.Background()

	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectedSQL := "UPDATE ticket_index SET status = ? WHERE id = ?"

	mock.ExpectExec(regexp.QuoteMeta(expectedSQL)).
		WithArgs("done", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := UpdateFrom("ticket_index").
		Set(UpdateCond{"status", "done"}).
		Where(Eq("id", int64(5))).
		Exec(ctx, db)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows affected = %d, want 1", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestUpdateBuilder_MultiSet(t *testing.T) {
	ctx := context.Background()

	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectedSQL := "UPDATE ticket_index SET status = ?, created_at = ? WHERE id = ?"

	mock.ExpectExec(regexp.QuoteMeta(expectedSQL)).
		WithArgs("serving", int64(110), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := UpdateFrom("ticket_index").
		Set(UpdateCond{"status", "serving"}, UpdateCond{"created_at", int64(110)}).
		Where(Eq("id", int64(5))).
		Exec(ctx, db)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestUpdateBuilder_NoSet(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	_, err := UpdateFrom("ticket_index").
		Where(Eq("id", int64(1))).
		Exec(context.Background(), db)
	if err != ErrSetRequired {
		t.Fatalf("err = %v, want ErrSetRequired", err)
	}
}
