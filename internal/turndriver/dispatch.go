package turndriver

import (
	"context"
	"encoding/json"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// dispatch resolves approval for every pending call and executes the
// allowed ones, returning one FunctionCallOutput item per call in
// emission order (spec §4.3: "tool results are recorded in call order
// regardless of completion order"). Per spec §4.3's tie-break, calls run
// concurrently through the Tool Dispatcher's executor unless any call in
// the batch requires approval, in which case the whole batch is
// serialized in emission order so an approval prompt never races a
// concurrently-executing sibling call.
//
// Only the Turn Driver checks approval: it alone holds the TurnContext
// and Event Bus handle needed to prompt and record the decision as its
// own event, per the approval-wiring decision recorded in the design
// ledger. The Tool Dispatcher's executor assumes every call it receives
// has already cleared approval.
func (d *Driver) dispatch(ctx context.Context, turn protocol.TurnContext, subID string, pending []pendingCall) ([]protocol.ResponseItem, error) {
	if d.approval == nil {
		return d.dispatchAllowed(ctx, turn, pending)
	}

	decisions := make([]tooldispatch.ApprovalDecision, len(pending))
	reasons := make([]string, len(pending))
	anyPending := false
	for i, call := range pending {
		decision, reason := d.approval.Check(turn, call.name, extractCommand(call.arguments))
		decisions[i] = decision
		reasons[i] = reason
		if decision == tooldispatch.ApprovalResultPending {
			anyPending = true
		}
	}

	if !anyPending {
		return d.dispatchDecided(ctx, turn, subID, pending, decisions, reasons)
	}
	return d.dispatchSerialized(ctx, turn, subID, pending, decisions, reasons)
}

// dispatchAllowed runs every call concurrently with no approval gate at
// all (d.approval == nil).
func (d *Driver) dispatchAllowed(ctx context.Context, turn protocol.TurnContext, pending []pendingCall) ([]protocol.ResponseItem, error) {
	calls := make([]tooldispatch.Call, len(pending))
	for i, p := range pending {
		calls[i] = tooldispatch.Call{ID: p.callID, Name: p.name, Arguments: json.RawMessage(p.arguments)}
	}
	results := d.executor.ExecuteAll(ctx, calls, turn)
	items := make([]protocol.ResponseItem, len(results))
	for i, r := range results {
		items[i] = r.Item
	}
	return items, nil
}

// dispatchDecided runs the batch concurrently since none of the decisions
// is Pending: every call is either already Allowed or already Denied.
func (d *Driver) dispatchDecided(ctx context.Context, turn protocol.TurnContext, subID string, pending []pendingCall, decisions []tooldispatch.ApprovalDecision, reasons []string) ([]protocol.ResponseItem, error) {
	items := make([]protocol.ResponseItem, len(pending))
	var toExecute []tooldispatch.Call
	var toExecuteIdx []int

	for i, call := range pending {
		if decisions[i] == tooldispatch.ApprovalResultDenied {
			items[i] = protocol.Failure(call.callID, "tool denied by approval policy: "+reasons[i])
			continue
		}
		toExecute = append(toExecute, tooldispatch.Call{ID: call.callID, Name: call.name, Arguments: json.RawMessage(call.arguments)})
		toExecuteIdx = append(toExecuteIdx, i)
	}

	results := d.executor.ExecuteAll(ctx, toExecute, turn)
	for j, r := range results {
		items[toExecuteIdx[j]] = r.Item
	}
	return items, nil
}

// dispatchSerialized runs the whole batch one call at a time, in emission
// order, awaiting an interactive approval decision for any call still
// Pending after the initial policy check.
func (d *Driver) dispatchSerialized(ctx context.Context, turn protocol.TurnContext, subID string, pending []pendingCall, decisions []tooldispatch.ApprovalDecision, reasons []string) ([]protocol.ResponseItem, error) {
	items := make([]protocol.ResponseItem, len(pending))

	for i, call := range pending {
		select {
		case <-ctx.Done():
			return items, ctx.Err()
		default:
		}

		decision := decisions[i]
		reason := reasons[i]

		if decision == tooldispatch.ApprovalResultPending {
			command := extractCommand(call.arguments)
			req := d.approval.RequestApproval(ctx, call.callID, call.name, reason, command)
			d.publish(ctx, d.emit.ExecApprovalRequest(subID, protocol.ApprovalRequestPayload{
				RequestID: req.ID,
				CallID:    call.callID,
				Command:   command,
				Reason:    reason,
			}))
			decision = d.approval.Await(ctx, req)
		}

		if decision == tooldispatch.ApprovalResultDenied {
			items[i] = protocol.Failure(call.callID, "tool denied by approval policy: "+reason)
			continue
		}

		result := d.executor.Execute(ctx, tooldispatch.Call{ID: call.callID, Name: call.name, Arguments: json.RawMessage(call.arguments)}, turn)
		items[i] = result.Item
	}

	return items, nil
}

// extractCommand best-effort parses an argv-shaped "command" field out of
// a tool call's raw JSON arguments, for tools (such as exec) whose
// approval classification depends on the command being run. Tools with no
// such field yield a nil command, which the untrusted-policy classifier
// treats as an empty argv.
func extractCommand(arguments string) []string {
	if arguments == "" {
		return nil
	}
	var parsed struct {
		Command []string `json:"command"`
	}
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return nil
	}
	return parsed.Command
}
