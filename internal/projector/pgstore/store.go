// Package pgstore is the CockroachDB/Postgres-backed projector.Pipeline
// alternative to sqlitestore, for multi-writer deployments. Grounded on
// internal/sessions/cockroach.go and internal/jobs/cockroach.go's
// sql.DB-plus-prepared-statements pattern.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/google/uuid"
	"github.com/openagentsinc/agentcore/internal/projector"
)

// Config holds connection-pool tuning, mirrored from the teacher's
// CockroachConfig.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultConfig returns the teacher's pool defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS run_checkpoints (
	run_id          UUID PRIMARY KEY,
	topic           STRING NOT NULL,
	last_seq        INT8 NOT NULL,
	last_event_type STRING NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
`

// Store is a Postgres/CockroachDB-backed projector.Pipeline.
type Store struct {
	db *sql.DB

	stmtUpsert *sql.Stmt
	stmtGet    *sql.Stmt
}

var _ projector.Pipeline = (*Store)(nil)

// OpenFromDSN opens a connection to dsn, ensures the run_checkpoints table
// exists, and prepares statements.
func OpenFromDSN(dsn string, config *Config) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) prepareStatements() error {
	var err error
	s.stmtUpsert, err = s.db.Prepare(`
		INSERT INTO run_checkpoints (run_id, topic, last_seq, last_event_type, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			topic = excluded.topic,
			last_seq = excluded.last_seq,
			last_event_type = excluded.last_event_type,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert checkpoint: %w", err)
	}

	s.stmtGet, err = s.db.Prepare(`
		SELECT topic, last_seq, last_event_type, updated_at
		FROM run_checkpoints WHERE run_id = $1
	`)
	if err != nil {
		return fmt.Errorf("prepare get checkpoint: %w", err)
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ApplyRunEvent advances the stored checkpoint for runID, ignoring any
// event whose seq does not strictly exceed the current last_seq.
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
		runID,
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
	row := s.stmtGet.QueryRowContext(ctx, runID)
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

// IsReady always reports true once a Store is constructed: OpenFromDSN
// already blocks on PingContext and schema creation before returning.
func (s *Store) IsReady() bool {
	return s.db != nil
}
