package session

import (
	"context"
	"testing"
	"time"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestHandleUserInput_RejectsWhileTurnActive(t *testing.T) {
	// A script with no terminal event: the first turn blocks until the
	// test cancels it, holding s.active true for the duration.
	block := make(chan struct{})
	client := &blockingClient{unblock: block}
	s := newTestSession(t, client)

	if err := s.Submit(context.Background(), protocol.Operation{
		Type:  protocol.OpUserInput,
		SubID: "sub-1",
		Items: []protocol.ResponseItem{protocol.TextMessage(protocol.RoleUser, "hi")},
	}); err != nil {
		t.Fatalf("first UserInput: %v", err)
	}

	// Give the turn goroutine a moment to start; s.active is already set.
	time.Sleep(20 * time.Millisecond)

	err := s.Submit(context.Background(), protocol.Operation{
		Type:  protocol.OpUserInput,
		SubID: "sub-2",
		Items: []protocol.ResponseItem{protocol.TextMessage(protocol.RoleUser, "again")},
	})
	if err == nil {
		t.Fatal("expected second UserInput to be rejected while a turn is active")
	}

	close(block)
	if err := s.handleInterrupt(); err != nil {
		t.Logf("interrupt after completion: %v", err)
	}
}

func TestHandleInterrupt_NoActiveTurn(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	if err := s.Submit(context.Background(), protocol.Operation{Type: protocol.OpInterrupt}); err == nil {
		t.Fatal("expected an error interrupting when no turn is running")
	}
}

func TestHandleApproveCommand_RequiresApprovalChecker(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	err := s.Submit(context.Background(), protocol.Operation{
		Type:      protocol.OpApproveCommand,
		RequestID: "req-1",
		Decision:  protocol.DecisionApprove,
	})
	if err == nil {
		t.Fatal("expected an error approving a command with no ApprovalChecker configured")
	}
}

func TestHandleApproveCommand_ResolvesPendingRequest(t *testing.T) {
	approval := tooldispatch.NewApprovalChecker()
	s, err := New("", Deps{Home: t.TempDir(), Client: &scriptedClient{}, Approval: approval})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Shutdown(context.Background())

	req := approval.RequestApproval(context.Background(), "call-1", "exec", "needs confirmation", []string{"echo", "hi"})

	if err := s.Submit(context.Background(), protocol.Operation{
		Type:      protocol.OpApproveCommand,
		RequestID: req.ID,
		Decision:  protocol.DecisionApprove,
	}); err != nil {
		t.Fatalf("Submit ApproveCommand: %v", err)
	}

	decision := approval.Await(context.Background(), req)
	if decision != tooldispatch.ApprovalResultAllowed {
		t.Fatalf("expected allowed, got %v", decision)
	}
}

func TestHandleOverrideTurnContext_AppliesFields(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	sandbox := protocol.SandboxFullAccess
	if err := s.Submit(context.Background(), protocol.Operation{
		Type:     protocol.OpOverrideTurnContext,
		Override: &protocol.TurnContextOverride{SandboxMode: &sandbox},
	}); err != nil {
		t.Fatalf("Submit OverrideTurnContext: %v", err)
	}
	if got := s.snapshotTurnContext().SandboxMode; got != sandbox {
		t.Fatalf("expected sandbox mode %v, got %v", sandbox, got)
	}
}

func TestHandleOverrideTurnContext_RequiresOverride(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	err := s.Submit(context.Background(), protocol.Operation{Type: protocol.OpOverrideTurnContext})
	if err == nil {
		t.Fatal("expected an error for a nil override")
	}
}

func TestHandleAddToHistory_RecordsItemsWithoutRunningATurn(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	err := s.Submit(context.Background(), protocol.Operation{
		Type:  protocol.OpAddToHistory,
		Items: []protocol.ResponseItem{protocol.TextMessage(protocol.RoleUser, "background fact")},
	})
	if err != nil {
		t.Fatalf("Submit AddToHistory: %v", err)
	}
	if s.conv.Len() != 1 {
		t.Fatalf("expected 1 item recorded, got %d", s.conv.Len())
	}
}

// blockingClient streams nothing and never completes until unblock is
// closed, simulating a turn that stays active.
type blockingClient struct {
	unblock <-chan struct{}
}

func (c *blockingClient) Name() string { return "blocking" }

func (c *blockingClient) Complete(ctx context.Context, req modelclient.Request) (<-chan modelclient.StreamEvent, error) {
	out := make(chan modelclient.StreamEvent)
	go func() {
		defer close(out)
		select {
		case <-c.unblock:
		case <-ctx.Done():
		}
	}()
	return out, nil
}
