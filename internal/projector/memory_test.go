package projector

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestApplyRunEvent_CheckspointTracksLatestSequence(t *testing.T) {
	p := NewInMemoryPipeline(nil)
	runID := uuid.New()
	ctx := context.Background()

	if err := p.ApplyRunEvent(ctx, runID, RunEvent{Seq: 1, EventType: "run.started"}); err != nil {
		t.Fatalf("ApplyRunEvent(1): %v", err)
	}
	if err := p.ApplyRunEvent(ctx, runID, RunEvent{Seq: 2, EventType: "run.step.completed"}); err != nil {
		t.Fatalf("ApplyRunEvent(2): %v", err)
	}

	cp, err := p.CheckpointForRun(ctx, runID)
	if err != nil {
		t.Fatalf("CheckpointForRun: %v", err)
	}
	if cp == nil {
		t.Fatal("expected a checkpoint, got nil")
	}
	if cp.LastSeq != 2 || cp.LastEventType != "run.step.completed" {
		t.Errorf("checkpoint = %+v, want {LastSeq:2, LastEventType:run.step.completed}", cp)
	}
}

func TestApplyRunEvent_StaleEventIsIgnored(t *testing.T) {
	p := NewInMemoryPipeline(nil)
	runID := uuid.New()
	ctx := context.Background()

	_ = p.ApplyRunEvent(ctx, runID, RunEvent{Seq: 1, EventType: "run.started"})
	_ = p.ApplyRunEvent(ctx, runID, RunEvent{Seq: 2, EventType: "run.step.completed"})

	// Replaying seq 1 must not regress the checkpoint (spec §4.6: "out of
	// order is a contract violation... the projector ignores the stale
	// event").
	if err := p.ApplyRunEvent(ctx, runID, RunEvent{Seq: 1, EventType: "run.started"}); err != nil {
		t.Fatalf("ApplyRunEvent(stale): %v", err)
	}

	cp, _ := p.CheckpointForRun(ctx, runID)
	if cp.LastSeq != 2 || cp.LastEventType != "run.step.completed" {
		t.Errorf("checkpoint regressed after stale replay: %+v", cp)
	}
}

func TestApplyRunEvent_EqualSeqIsIgnored(t *testing.T) {
	p := NewInMemoryPipeline(nil)
	runID := uuid.New()
	ctx := context.Background()

	_ = p.ApplyRunEvent(ctx, runID, RunEvent{Seq: 5, EventType: "run.started"})
	_ = p.ApplyRunEvent(ctx, runID, RunEvent{Seq: 5, EventType: "run.duplicate"})

	cp, _ := p.CheckpointForRun(ctx, runID)
	if cp.LastEventType != "run.started" {
		t.Errorf("duplicate seq overwrote checkpoint: %+v", cp)
	}
}

func TestCheckpointForRun_UnknownRunReturnsNil(t *testing.T) {
	p := NewInMemoryPipeline(nil)
	cp, err := p.CheckpointForRun(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CheckpointForRun: %v", err)
	}
	if cp != nil {
		t.Errorf("checkpoint = %+v, want nil", cp)
	}
}

func TestIsReady(t *testing.T) {
	p := NewInMemoryPipeline(nil)
	if !p.IsReady() {
		t.Error("IsReady() = false, want true")
	}
}
