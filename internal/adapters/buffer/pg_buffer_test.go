package buffer

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGBufferAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	b := NewPGBuffer(db, "waypost_queue", 0, nil)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO waypost_queue (payload) VALUES ($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := b.Append(payload(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGBufferAppendEvictsOverCap(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	var evicted int
	b := NewPGBuffer(db, "waypost_queue", 5, func(n int) { evicted += n })

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO waypost_queue (payload) VALUES ($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM waypost_queue WHERE id IN (SELECT id FROM waypost_queue ORDER BY id ASC LIMIT (SELECT GREATEST(COUNT(*) - $1, 0) FROM waypost_queue))")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := b.Append(payload(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if evicted != 2 {
		t.Fatalf("expected 2 evictions reported, got %d", evicted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGBufferDrainOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	b := NewPGBuffer(db, "waypost_queue", 0, nil)

	rows := sqlmock.NewRows([]string{"payload"}).
		AddRow([]byte(`{"entityId":"e","lat":1,"lon":-1,"speed":0,"accuracy":0,"capturedAt":"2026-03-01T12:01:00Z"}`)).
		AddRow([]byte(`{"entityId":"e","lat":2,"lon":-2,"speed":0,"accuracy":0,"capturedAt":"2026-03-01T12:02:00Z"}`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM waypost_queue ORDER BY id ASC")).
		WillReturnRows(rows)

	got, err := b.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(got) != 2 || got[0].Lat != 1 || got[1].Lat != 2 {
		t.Fatalf("unexpected drain result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGBufferRemoveDeliveredAndCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	b := NewPGBuffer(db, "waypost_queue", 0, nil)

	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM waypost_queue WHERE id IN (SELECT id FROM waypost_queue ORDER BY id ASC LIMIT $1)")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM waypost_queue")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	if err := b.RemoveDelivered(2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	n, err := b.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
