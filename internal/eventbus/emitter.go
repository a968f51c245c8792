// Package eventbus implements the Event Bus & Rollout component (spec §4.5):
// ordered, monotonically-sequenced event emission fanned out to multiple
// subscribers, plus an append-only rollout writer/reader.
package eventbus

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// Emitter assigns strictly increasing sequence numbers to events for one
// session, grounded on the teacher's EventEmitter (atomic sequence counter
// bumped under no lock via sync/atomic).
type Emitter struct {
	sessionID string
	sequence  uint64 // atomic
}

// NewEmitter creates an Emitter for the given session.
func NewEmitter(sessionID string) *Emitter {
	return &Emitter{sessionID: sessionID}
}

// Next builds the next Event in sequence for the given sub_id and message.
func (e *Emitter) Next(subID string, msg protocol.EventMsg) protocol.Event {
	seq := atomic.AddUint64(&e.sequence, 1)
	return protocol.Event{
		ID:    uuid.NewString(),
		SubID: subID,
		Seq:   seq,
		Time:  time.Now(),
		Msg:   msg,
	}
}

// SessionConfigured builds the SessionConfigured lifecycle event, emitted
// once at session construction.
func (e *Emitter) SessionConfigured(subID string) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventSessionConfigured})
}

// TaskStarted builds a TaskStarted event.
func (e *Emitter) TaskStarted(subID string) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventTaskStarted})
}

// TaskComplete builds a TaskComplete event.
func (e *Emitter) TaskComplete(subID, summary string) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventTaskComplete, Text: summary})
}

// TurnAborted builds a TurnAborted event with the given reason
// ("interrupt" | "budget" | "error").
func (e *Emitter) TurnAborted(subID, reason string) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventTurnAborted, AbortReason: reason})
}

// AgentMessageDelta builds a streaming text delta event (never persisted).
func (e *Emitter) AgentMessageDelta(subID, delta string) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventAgentMessageDelta, Text: delta})
}

// AgentReasoningDelta builds a streaming reasoning delta event (never persisted).
func (e *Emitter) AgentReasoningDelta(subID, delta string) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventAgentReasoningDelta, Text: delta})
}

// ItemCompleted builds an ItemCompleted event for a finished Response Item.
func (e *Emitter) ItemCompleted(subID string, item protocol.ResponseItem) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventItemCompleted, Item: &item})
}

// ExecCommandBegin builds an ExecCommandBegin event.
func (e *Emitter) ExecCommandBegin(subID string, payload protocol.ExecCommandPayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventExecCommandBegin, Exec: &payload})
}

// ExecCommandOutputDelta builds a streamed stdout/stderr chunk event (never persisted).
func (e *Emitter) ExecCommandOutputDelta(subID string, payload protocol.ExecCommandPayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventExecCommandOutputItem, Exec: &payload})
}

// ExecCommandEnd builds an ExecCommandEnd event.
func (e *Emitter) ExecCommandEnd(subID string, payload protocol.ExecCommandPayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventExecCommandEnd, Exec: &payload})
}

// ExecApprovalRequest builds an approval prompt event (never persisted).
func (e *Emitter) ExecApprovalRequest(subID string, payload protocol.ApprovalRequestPayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventExecApprovalRequest, Approval: &payload})
}

// PlanUpdate builds a PlanUpdate event.
func (e *Emitter) PlanUpdate(subID string, payload protocol.PlanUpdatePayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventPlanUpdate, Plan: &payload})
}

// TokenCount builds a TokenCount event.
func (e *Emitter) TokenCount(subID string, payload protocol.TokenCountPayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventTokenCount, Tokens: &payload})
}

// Warning builds a non-fatal Warning event (e.g. RolloutWriteFailed).
func (e *Emitter) Warning(subID, message string) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventWarning, Error: &protocol.ErrorPayload{Message: message}})
}

// Error builds a fatal Error event.
func (e *Emitter) Error(subID string, payload protocol.ErrorPayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventError, Error: &payload})
}

// StreamError builds a model-stream Error event.
func (e *Emitter) StreamError(subID string, payload protocol.ErrorPayload) protocol.Event {
	return e.Next(subID, protocol.EventMsg{Type: protocol.EventStreamError, Error: &payload})
}
