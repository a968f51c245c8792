package tooldispatch

import (
	"context"
	"sync"
	"time"

	"github.com/openagentsinc/agentcore/internal/tooldispatch/policy"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// ApprovalDecision is the outcome of an approval check for a dispatched call.
type ApprovalDecision string

const (
	ApprovalResultAllowed ApprovalDecision = "allowed"
	ApprovalResultDenied  ApprovalDecision = "denied"
	ApprovalResultPending ApprovalDecision = "pending"
)

// PromptTimeout is how long the dispatcher waits for an interactive
// approval decision before treating the call as denied (spec §4.4: "an
// unanswered approval prompt times out after 30s and is treated as a
// denial").
const PromptTimeout = 30 * time.Second

// ApprovalRequest is a pending request for caller confirmation, surfaced on
// the Event Bus as an ExecApprovalRequest event and resolved by an
// ApproveCommand Operation carrying the caller's decision.
type ApprovalRequest struct {
	ID         string
	CallID     string
	ToolName   string
	Command    []string
	Reason     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Decision   ApprovalDecision
	resolved   chan struct{}
}

// ApprovalChecker evaluates whether a dispatched call may proceed without
// confirmation, consulting the execpolicy classifier for the "untrusted"
// policy and tracking prior-failure state for "on_failure", grounded on the
// teacher's ApprovalChecker (internal/agent/approval.go) generalized to
// spec §4.4's four-policy model.
type ApprovalChecker struct {
	mu       sync.Mutex
	policy   *policy.Policy
	failed   map[string]struct{} // toolKey set: tools that failed once this turn
	pending  map[string]*ApprovalRequest
}

// NewApprovalChecker creates a checker using DefaultPolicy for execpolicy
// classification under the untrusted approval policy.
func NewApprovalChecker() *ApprovalChecker {
	return &ApprovalChecker{
		policy:  policy.DefaultPolicy(),
		failed:  make(map[string]struct{}),
		pending: make(map[string]*ApprovalRequest),
	}
}

// SetPolicy overrides the execpolicy classifier used under ApprovalUntrusted.
func (c *ApprovalChecker) SetPolicy(p *policy.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

// MarkFailed records that toolKey (tool name, or tool name + command for
// exec-like tools) failed once this turn, so a subsequent attempt under
// ApprovalOnFailure is no longer auto-approved.
func (c *ApprovalChecker) MarkFailed(toolKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[toolKey] = struct{}{}
}

// Check evaluates the approval policy in effect for turn and returns a
// decision plus the reason, per spec §4.4:
//   - never: always allowed — the session trusts sandboxing alone.
//   - on_failure: allowed unless toolKey previously failed this turn.
//   - untrusted: execpolicy classifies the command as allow/ask/deny.
//   - always: always requires a prompt, regardless of command shape.
func (c *ApprovalChecker) Check(turn protocol.TurnContext, toolKey string, command []string) (ApprovalDecision, string) {
	c.mu.Lock()
	_, hasFailed := c.failed[toolKey]
	p := c.policy
	c.mu.Unlock()

	switch turn.ApprovalPolicy {
	case protocol.ApprovalNever:
		return ApprovalResultAllowed, "approval policy is never"

	case protocol.ApprovalOnFailure:
		if hasFailed {
			return ApprovalResultPending, "tool failed earlier this turn"
		}
		return ApprovalResultAllowed, "first attempt under on_failure policy"

	case protocol.ApprovalUntrusted:
		switch p.Classify(command) {
		case policy.VerdictAllow:
			return ApprovalResultAllowed, "execpolicy allow"
		case policy.VerdictDeny:
			return ApprovalResultDenied, "execpolicy deny"
		default:
			return ApprovalResultPending, "execpolicy ask"
		}

	case protocol.ApprovalAlways:
		return ApprovalResultPending, "approval policy is always"

	default:
		return ApprovalResultPending, "unrecognized approval policy"
	}
}

// RequestApproval creates and registers a pending ApprovalRequest for
// callID and returns it without blocking; Await waits for its decision.
func (c *ApprovalChecker) RequestApproval(ctx context.Context, callID, toolName, reason string, command []string) *ApprovalRequest {
	req := &ApprovalRequest{
		ID:        callID + "-approval",
		CallID:    callID,
		ToolName:  toolName,
		Command:   command,
		Reason:    reason,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(PromptTimeout),
		Decision:  ApprovalResultPending,
		resolved:  make(chan struct{}),
	}

	c.mu.Lock()
	c.pending[req.ID] = req
	c.mu.Unlock()

	return req
}

// Await blocks until req is resolved, the context is cancelled, or
// PromptTimeout elapses (resolving as denied in the latter two cases).
func (c *ApprovalChecker) Await(ctx context.Context, req *ApprovalRequest) ApprovalDecision {
	timer := time.NewTimer(PromptTimeout)
	defer timer.Stop()

	select {
	case <-req.resolved:
		return req.Decision
	case <-ctx.Done():
		c.resolve(req, ApprovalResultDenied)
		return ApprovalResultDenied
	case <-timer.C:
		c.resolve(req, ApprovalResultDenied)
		return ApprovalResultDenied
	}
}

// Resolve records a caller's decision for a pending approval request. It is
// idempotent: resolving an already-resolved request is a no-op.
func (c *ApprovalChecker) Resolve(id string, decision protocol.ApprovalDecision) {
	c.mu.Lock()
	req, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	result := ApprovalResultDenied
	if decision == protocol.DecisionApprove {
		result = ApprovalResultAllowed
	}
	c.resolve(req, result)
}

// PendingRequestIDs returns the IDs of every currently unresolved approval
// request, for diagnostics and periodic maintenance.
func (c *ApprovalChecker) PendingRequestIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	return ids
}

// ExpireStale resolves every pending request whose ExpiresAt has already
// passed as denied, and reports how many it expired. This is a defensive
// sweep independent of each request's own Await timer: Await only fires
// for a caller that is actively blocked on the request, so a request
// whose caller disconnected without awaiting it would otherwise linger in
// c.pending forever.
func (c *ApprovalChecker) ExpireStale(now time.Time) int {
	c.mu.Lock()
	var stale []*ApprovalRequest
	for _, req := range c.pending {
		if now.After(req.ExpiresAt) {
			stale = append(stale, req)
		}
	}
	c.mu.Unlock()

	for _, req := range stale {
		c.resolve(req, ApprovalResultDenied)
	}
	return len(stale)
}

func (c *ApprovalChecker) resolve(req *ApprovalRequest, decision ApprovalDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-req.resolved:
		return // already resolved
	default:
	}
	req.Decision = decision
	close(req.resolved)
	delete(c.pending, req.ID)
}
