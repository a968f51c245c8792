package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/openagentsinc/agentcore/internal/projector"
)

// setupMockStore mirrors the teacher's setupMockDB helper
// (internal/sessions/cockroach_test.go): a Store built directly around a
// sqlmock connection, with statements prepared by hand against explicit
// mock.ExpectPrepare expectations rather than via OpenFromDSN.
func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectPrepare("INSERT INTO run_checkpoints")
	upsertStmt, err := db.Prepare(`
		INSERT INTO run_checkpoints (run_id, topic, last_seq, last_event_type, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			topic = excluded.topic,
			last_seq = excluded.last_seq,
			last_event_type = excluded.last_event_type,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		t.Fatalf("prepare upsert: %v", err)
	}

	mock.ExpectPrepare("SELECT .* FROM run_checkpoints")
	getStmt, err := db.Prepare(`
		SELECT topic, last_seq, last_event_type, updated_at
		FROM run_checkpoints WHERE run_id = $1
	`)
	if err != nil {
		t.Fatalf("prepare get: %v", err)
	}

	return &Store{db: db, stmtUpsert: upsertStmt, stmtGet: getStmt}, mock
}

func TestStore_ApplyRunEvent_NewRunInsertsCheckpoint(t *testing.T) {
	store, mock := setupMockStore(t)
	runID := uuid.New()

	mock.ExpectQuery("SELECT .* FROM run_checkpoints").
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"topic", "last_seq", "last_event_type", "updated_at"}))

	mock.ExpectExec("INSERT INTO run_checkpoints").
		WithArgs(runID, projector.Topic(runID), int64(1), "run.started", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.ApplyRunEvent(context.Background(), runID, projector.RunEvent{Seq: 1, EventType: "run.started"})
	if err != nil {
		t.Fatalf("ApplyRunEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_ApplyRunEvent_StaleEventSkipsWrite(t *testing.T) {
	store, mock := setupMockStore(t)
	runID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM run_checkpoints").
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"topic", "last_seq", "last_event_type", "updated_at"}).
			AddRow(projector.Topic(runID), int64(5), "run.started", now))

	// No ExpectExec: a stale event must not reach the database.
	err := store.ApplyRunEvent(context.Background(), runID, projector.RunEvent{Seq: 3, EventType: "stale"})
	if err != nil {
		t.Fatalf("ApplyRunEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_CheckpointForRun_Found(t *testing.T) {
	store, mock := setupMockStore(t)
	runID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM run_checkpoints").
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"topic", "last_seq", "last_event_type", "updated_at"}).
			AddRow(projector.Topic(runID), int64(7), "run.step.completed", now))

	cp, err := store.CheckpointForRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("CheckpointForRun: %v", err)
	}
	if cp == nil || cp.LastSeq != 7 || cp.LastEventType != "run.step.completed" {
		t.Errorf("checkpoint = %+v, want LastSeq=7 LastEventType=run.step.completed", cp)
	}
}

func TestStore_CheckpointForRun_DatabaseError(t *testing.T) {
	store, mock := setupMockStore(t)
	runID := uuid.New()

	mock.ExpectQuery("SELECT .* FROM run_checkpoints").
		WithArgs(runID).
		WillReturnError(errors.New("connection refused"))

	if _, err := store.CheckpointForRun(context.Background(), runID); err == nil {
		t.Fatal("expected error, got nil")
	}
}
