package session

import (
	"context"
	"fmt"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// compactionInstructions is the system instruction given to the
// summarization request; it carries no tool schemas, so the model has
// nothing to call.
const compactionInstructions = "Summarize the conversation so far concisely, preserving facts, decisions, and open tasks a continuation would need. Respond with the summary text only."

// handleCompact implements spec §9's compaction: replace history with
// [SystemSummary, Compaction{...}] and persist the compaction marker.
// Compaction does not run while a turn is active — the Conversation is
// single-owner per spec §4.1, and a turn in flight already owns it.
func (s *Session) handleCompact(ctx context.Context, op protocol.Operation) error {
	s.turnMu.Lock()
	active := s.active
	s.turnMu.Unlock()
	if active {
		return fmt.Errorf("session: cannot compact while a turn is running")
	}

	turn := s.snapshotTurnContext()
	summary, err := s.summarize(ctx, turn)
	if err != nil {
		s.bus.Publish(context.Background(), s.emit.Error(op.SubID, protocol.ErrorPayload{
			Message: "compaction failed: " + err.Error(),
		}))
		return err
	}

	itemsDropped := s.conv.Len()
	marker := s.conv.Compact(summary)

	s.rollout.WriteItem(protocol.TextMessage(protocol.RoleSystem, summary))
	s.rollout.WriteItem(marker)
	s.rollout.WriteCompacted(protocol.CompactedMeta{Summary: summary, ItemsDropped: itemsDropped})
	return nil
}

// summarize issues a single, tool-free request asking the model to
// summarize the current history, draining the stream for its accumulated
// message text. It reuses the Model Stream Client's own retry
// orchestration (modelclient.Stream) rather than the Turn Driver, since
// compaction is not a turn: no tool dispatch, no pending-call loop.
func (s *Session) summarize(ctx context.Context, turn protocol.TurnContext) (string, error) {
	req := modelclient.Request{
		Model:               turn.Model,
		Instructions:        compactionInstructions,
		Items:               s.conv.Contents(),
		StreamIdleTimeoutMS: int64(turn.StreamIdleTimeoutMS),
		RequestMaxRetries:   turn.RequestMaxRetries,
		StreamMaxRetries:    turn.StreamMaxRetries,
	}

	events := make(chan modelclient.StreamEvent)
	runErr := make(chan error, 1)
	stream := modelclient.NewStream(s.client)
	go func() { runErr <- stream.Run(ctx, req, events) }()

	var text string
	for ev := range events {
		if ev.Type == modelclient.EventMessageDelta {
			text += ev.Delta
		}
	}
	if err := <-runErr; err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("session: model returned an empty summary")
	}
	return text, nil
}
