package turndriver

import (
	"context"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// streamOnce snapshots the conversation and issues one Model Stream Client
// request, routing every event it yields onto the Event Bus and into
// state, until the stream reports Completed or a terminal error. Text and
// reasoning deltas are forwarded as non-persisted delta events and
// accumulated; FunctionCall events are recorded as pending dispatches in
// emission order. None of the four provider adapters signal a distinct
// "message item done" boundary the way an OutputItemDone event would, so
// the implicit end of the accumulated message/reasoning text is the
// Completed event itself — functionally equivalent to OutputItemDone for
// those two item kinds, while FunctionCall already arrives as a discrete
// per-item signal.
func (d *Driver) streamOnce(ctx context.Context, turn protocol.TurnContext, subID string, state *turnState) error {
	req := modelclient.Request{
		Model:               turn.Model,
		Items:               d.conv.Contents(),
		Tools:               buildToolSchemas(d.registry),
		StreamIdleTimeoutMS: int64(turn.StreamIdleTimeoutMS),
		RequestMaxRetries:   turn.RequestMaxRetries,
		StreamMaxRetries:    turn.StreamMaxRetries,
	}

	events := make(chan modelclient.StreamEvent)
	runErr := make(chan error, 1)
	stream := modelclient.NewStream(d.client)
	go func() {
		runErr <- stream.Run(ctx, req, events)
	}()

	for ev := range events {
		switch ev.Type {
		case modelclient.EventMessageDelta:
			state.messageText += ev.Delta
			d.publish(ctx, d.emit.AgentMessageDelta(subID, ev.Delta))

		case modelclient.EventReasoningDelta:
			state.reasoningText += ev.Delta
			d.publish(ctx, d.emit.AgentReasoningDelta(subID, ev.Delta))

		case modelclient.EventOutputItemDone:
			if ev.Item != nil {
				d.conv.RecordItems([]protocol.ResponseItem{*ev.Item})
				d.publish(ctx, d.emit.ItemCompleted(subID, *ev.Item))
			}

		case modelclient.EventFunctionCall:
			if ev.Call != nil {
				state.pending = append(state.pending, pendingCall{
					callID:    ev.Call.CallID,
					name:      ev.Call.Name,
					arguments: ev.Call.Arguments,
				})
			}

		case modelclient.EventRateLimits:
			// Informational only; the Model Stream Client's own retry layer
			// already backs off on rate-limit errors.

		case modelclient.EventCompleted:
			// handled after the drain via runErr; nothing to do here.

		case modelclient.EventError:
			// handled after the drain via runErr.
		}
	}

	if err := <-runErr; err != nil {
		return err
	}

	if state.messageText != "" || state.reasoningText != "" {
		if state.reasoningText != "" {
			item := protocol.ResponseItem{Kind: protocol.ItemReasoning, ReasoningText: state.reasoningText}
			d.conv.RecordItems([]protocol.ResponseItem{item})
			d.publish(ctx, d.emit.ItemCompleted(subID, item))
		}
		if state.messageText != "" {
			item := protocol.TextMessage(protocol.RoleAssistant, state.messageText)
			d.conv.RecordItems([]protocol.ResponseItem{item})
			d.publish(ctx, d.emit.ItemCompleted(subID, item))
		}
	}

	for _, call := range state.pending {
		item := protocol.ResponseItem{
			Kind:      protocol.ItemFunctionCall,
			CallID:    call.callID,
			Name:      call.name,
			Arguments: call.arguments,
		}
		d.conv.RecordItems([]protocol.ResponseItem{item})
		d.publish(ctx, d.emit.ItemCompleted(subID, item))
	}

	return nil
}
