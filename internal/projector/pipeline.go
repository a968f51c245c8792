package projector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ErrMissingTopic reports that a run has no checkpoint, mirroring the Rust
// reference's ProjectorError::MissingTopic.
type ErrMissingTopic struct {
	RunID uuid.UUID
}

func (e *ErrMissingTopic) Error() string {
	return fmt.Sprintf("projector topic is missing for run %s", e.RunID)
}

// Pipeline derives per-run checkpoints from a stream of RunEvents, per spec
// §4.6. Implementations must enforce the strictly-increasing-seq invariant:
// an event whose seq does not exceed the run's current checkpoint is a
// contract violation and is ignored with a logged warning rather than
// applied, a deliberate deviation from the Rust reference (which silently
// overwrites the checkpoint with whatever arrives last).
type Pipeline interface {
	// ApplyRunEvent advances the checkpoint for run_id. last_seq must equal
	// event.Seq after a successful application.
	ApplyRunEvent(ctx context.Context, runID uuid.UUID, event RunEvent) error

	// CheckpointForRun returns the latest checkpoint for run_id, or
	// (nil, nil) if none exists yet.
	CheckpointForRun(ctx context.Context, runID uuid.UUID) (*Checkpoint, error)

	// IsReady reports whether the projector has finished bootstrapping.
	IsReady() bool
}
