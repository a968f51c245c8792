package projector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// InMemoryPipeline is the process-local Pipeline, grounded on the Rust
// reference's InMemoryProjectionPipeline: a single read/write mutex guarding
// a map of run id to checkpoint, with writers single-threaded per run and
// many concurrent readers, per spec §5's "Projector checkpoints: guarded by
// a read/write mutex; writers are single-threaded per run, readers are
// many."
type InMemoryPipeline struct {
	mu          sync.RWMutex
	checkpoints map[uuid.UUID]*Checkpoint
	bootstrapped atomic.Bool
	logger      *slog.Logger
}

// NewInMemoryPipeline constructs a ready InMemoryPipeline.
func NewInMemoryPipeline(logger *slog.Logger) *InMemoryPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &InMemoryPipeline{
		checkpoints: make(map[uuid.UUID]*Checkpoint),
		logger:      logger,
	}
	p.bootstrapped.Store(true)
	return p
}

// ApplyRunEvent advances the checkpoint for runID, ignoring (with a logged
// warning) any event whose seq does not strictly exceed the run's current
// last_seq.
func (p *InMemoryPipeline) ApplyRunEvent(ctx context.Context, runID uuid.UUID, event RunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.checkpoints[runID]; ok && event.Seq <= existing.LastSeq {
		p.logger.Warn("projector: dropping out-of-order run event",
			"run_id", runID, "seq", event.Seq, "last_seq", existing.LastSeq)
		return nil
	}

	p.checkpoints[runID] = &Checkpoint{
		Topic:         Topic(runID),
		LastSeq:       event.Seq,
		LastEventType: event.EventType,
		UpdatedAt:     time.Now(),
	}
	return nil
}

// CheckpointForRun returns a copy of the latest checkpoint for runID, or nil
// if no event has ever been applied for it.
func (p *InMemoryPipeline) CheckpointForRun(ctx context.Context, runID uuid.UUID) (*Checkpoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp, ok := p.checkpoints[runID]
	if !ok {
		return nil, nil
	}
	out := *cp
	return &out, nil
}

// IsReady always reports true: the in-memory pipeline has no bootstrap
// phase to wait on.
func (p *InMemoryPipeline) IsReady() bool {
	return p.bootstrapped.Load()
}
