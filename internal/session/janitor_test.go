package session

import (
	"context"
	"testing"
	"time"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
)

func TestJanitor_SweepsStaleApprovalRequests(t *testing.T) {
	approval := tooldispatch.NewApprovalChecker()
	req := approval.RequestApproval(context.Background(), "call-1", "exec", "needs confirmation", nil)
	// Back-date the expiry so the very first sweep picks it up, rather
	// than waiting out the checker's real 30s PromptTimeout.
	req.ExpiresAt = time.Now().Add(-time.Second)

	s, err := New("", Deps{Home: t.TempDir(), Client: &scriptedClient{}, Approval: approval})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Shutdown(context.Background())

	j := NewJanitor(s, "@every 10ms", nil)
	j.Start()
	defer j.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(approval.PendingRequestIDs()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected janitor to expire stale request %q", req.ID)
}

func TestJanitor_NoApprovalCheckerIsANoop(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	j := NewJanitor(s, "@every 10ms", nil)
	j.Start()
	time.Sleep(30 * time.Millisecond)
	j.Stop()
}

func TestJanitor_InvalidScheduleFallsBackToDefault(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	j := NewJanitor(s, "not a valid schedule", nil)
	if j == nil {
		t.Fatal("expected a Janitor even with an invalid schedule")
	}
	j.Start()
	j.Stop()
}
