package calllog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var recordColumns = []string{
	"record_id", "workspace_id", "agent_id", "contact_id", "direction", "from_address", "to_address",
	"started_at", "ended_at", "duration", "disposition_id", "notes", "created_at", "updated_at",
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	svc := NewService(db, "ws-1", "agent-1", nil)
	svc.clock = func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "rec-1" }
	return svc, mock
}

func existingRow(started time.Time, disposition, notes string) *sqlmock.Rows {
	return sqlmock.NewRows(recordColumns).AddRow(
		"rec-1", "ws-1", "agent-1", "ct-1", "inbound", "+15550001111", "+15550002222",
		started, nil, 0, disposition, notes, started, started,
	)
}

func TestRecordDisposition_StoresCodeOutsideCatalog(t *testing.T) {
	svc, mock := newTestService(t)
	started := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-1").
		WillReturnRows(existingRow(started, "", ""))
	mock.ExpectExec("UPDATE call_records").
		WithArgs("ws-1", "ct-1", "made_up", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.RecordDisposition(context.Background(), "ct-1", "made_up", ""); err != nil {
		t.Fatalf("record disposition: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordDisposition_InsertsWhenRecordMissing(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO call_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := svc.RecordDisposition(context.Background(), "ct-1", "resolved", "all good"); err != nil {
		t.Fatalf("record disposition: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordDisposition_UpdatesExistingRecord(t *testing.T) {
	svc, mock := newTestService(t)
	started := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-1").
		WillReturnRows(existingRow(started, "", ""))
	mock.ExpectExec("UPDATE call_records").
		WithArgs("ws-1", "ct-1", "escalated", "tier 2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.RecordDisposition(context.Background(), "ct-1", "escalated", "tier 2"); err != nil {
		t.Fatalf("record disposition: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordDisposition_RepeatIsNoOp(t *testing.T) {
	svc, mock := newTestService(t)
	started := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-1").
		WillReturnRows(existingRow(started, "resolved", "all good"))
	mock.ExpectCommit()

	if err := svc.RecordDisposition(context.Background(), "ct-1", "resolved", "all good"); err != nil {
		t.Fatalf("record disposition: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordDisposition_RollsBackOnQueryError(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := svc.RecordDisposition(context.Background(), "ct-1", "resolved", ""); err == nil {
		t.Fatal("expected query error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenRecord_SecondOpenIsNoOp(t *testing.T) {
	svc, mock := newTestService(t)
	started := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-1").
		WillReturnRows(existingRow(started, "", ""))
	mock.ExpectCommit()

	if err := svc.OpenRecord(context.Background(), "ct-1", "inbound", "+15550001111", "+15550002222", started); err != nil {
		t.Fatalf("open record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCloseRecord_StampsDuration(t *testing.T) {
	svc, mock := newTestService(t)
	started := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-1").
		WillReturnRows(existingRow(started, "", ""))
	mock.ExpectExec("UPDATE call_records").
		WithArgs("ws-1", "ct-1", sqlmock.AnyArg(), 90, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.CloseRecord(context.Background(), "ct-1", ended); err != nil {
		t.Fatalf("close record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCloseRecord_UnknownContactIsDropped(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT record_id").
		WithArgs("ws-1", "ct-9").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	if err := svc.CloseRecord(context.Background(), "ct-9", time.Now()); err != nil {
		t.Fatalf("expected close to be dropped silently, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDispositions_CatalogIsStable(t *testing.T) {
	svc := NewService((*sql.DB)(nil), "ws-1", "agent-1", nil)

	catalog := svc.Dispositions()
	if len(catalog) != 8 {
		t.Fatalf("expected 8 dispositions, got %d", len(catalog))
	}
	catalog[0].ID = "mutated"
	if DefaultDispositions[0].ID == "mutated" {
		t.Fatal("expected catalog copy, not shared slice")
	}
}
