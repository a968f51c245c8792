// Package sqlitestore is a durable projector.Pipeline backend for
// single-node deployments, grounded on the teacher's pure-Go SQLite usage
// (internal/memory/backend/sqlitevec/backend.go) and the prepared-statement
// shape of internal/sessions/cockroach.go.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
	"github.com/openagentsinc/agentcore/internal/projector"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_checkpoints (
	run_id          TEXT PRIMARY KEY,
	topic           TEXT NOT NULL,
	last_seq        INTEGER NOT NULL,
	last_event_type TEXT NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
`

// Store is a SQLite-backed projector.Pipeline.
type Store struct {
	db *sql.DB

	stmtUpsert *sql.Stmt
	stmtGet    *sql.Stmt

	ready atomic.Bool
}

var _ projector.Pipeline = (*Store)(nil)

// Open creates or opens the SQLite database at path and prepares the
// run_checkpoints table and statements.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers per connection

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	s.ready.Store(true)
	return s, nil
}

func (s *Store) prepareStatements() error {
	var err error
	s.stmtUpsert, err = s.db.Prepare(`
		INSERT INTO run_checkpoints (run_id, topic, last_seq, last_event_type, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			topic = excluded.topic,
			last_seq = excluded.last_seq,
			last_event_type = excluded.last_event_type,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}

	s.stmtGet, err = s.db.Prepare(`
		SELECT topic, last_seq, last_event_type, updated_at
		FROM run_checkpoints WHERE run_id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ApplyRunEvent advances the stored checkpoint for runID, ignoring (with no
// error, consistent with projector.InMemoryPipeline) any event whose seq
// does not strictly exceed the current last_seq.
func (s *Store) ApplyRunEvent(ctx context.Context, runID uuid.UUID, event projector.RunEvent) error {
	existing, err := s.CheckpointForRun(ctx, runID)
	if err != nil {
		return err
	}
	if existing != nil && event.Seq <= existing.LastSeq {
		slog.Warn("projector: ignoring out-of-order run event", "run_id", runID, "seq", event.Seq, "last_seq", existing.LastSeq)
		return nil
	}

	_, err = s.stmtUpsert.ExecContext(ctx,
		runID.String(),
		projector.Topic(runID),
		int64(event.Seq),
		event.EventType,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// CheckpointForRun loads the stored checkpoint for runID, or (nil, nil) if
// none exists.
func (s *Store) CheckpointForRun(ctx context.Context, runID uuid.UUID) (*projector.Checkpoint, error) {
	row := s.stmtGet.QueryRowContext(ctx, runID.String())
	var cp projector.Checkpoint
	var lastSeq int64
	if err := row.Scan(&cp.Topic, &lastSeq, &cp.LastEventType, &cp.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	cp.LastSeq = uint64(lastSeq)
	return &cp, nil
}

// IsReady reports whether schema creation and statement preparation have
// completed.
func (s *Store) IsReady() bool {
	return s.ready.Load()
}
