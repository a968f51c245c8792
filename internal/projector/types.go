// Package projector implements the Runtime Projector (spec §4.6): derives
// per-run checkpoints from a stream of RunEvents, for external dashboards.
// Grounded on original_source/apps/runtime/src/{types.rs,projectors.rs}'s
// RunEvent/ProjectionCheckpoint/InMemoryProjectionPipeline, translated to the
// teacher's store-interface-plus-Cockroach-backend shape
// (internal/jobs/cockroach.go, internal/sessions/cockroach.go).
package projector

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a run, mirrored from
// apps/runtime/src/types.rs's RunStatus.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunEvent is one entry in a run's event stream. seq must strictly increase
// within a run; the projector enforces that invariant on apply.
type RunEvent struct {
	Seq        uint64          `json:"seq"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Checkpoint is the last-writer-wins projection of a run's event sequence:
// topic, last_seq, last_event_type, updated_at, per spec §4.6.
type Checkpoint struct {
	Topic         string    `json:"topic"`
	LastSeq       uint64    `json:"last_seq"`
	LastEventType string    `json:"last_event_type"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Topic is the checkpoint topic name for a run, mirroring the Rust
// reference's format!("run:{run_id}:events").
func Topic(runID uuid.UUID) string {
	return "run:" + runID.String() + ":events"
}
