package session

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/openagentsinc/agentcore/internal/eventbus"
	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// scriptedClient implements modelclient.Client, returning one pre-scripted
// batch of events per call to Complete, in order. Mirrors turndriver's test
// double of the same name.
type scriptedClient struct {
	scripts [][]modelclient.StreamEvent
	calls   int
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Complete(ctx context.Context, req modelclient.Request) (<-chan modelclient.StreamEvent, error) {
	idx := c.calls
	c.calls++
	out := make(chan modelclient.StreamEvent, len(c.scripts[idx]))
	for _, ev := range c.scripts[idx] {
		out <- ev
	}
	close(out)
	return out, nil
}

func newTestSession(t *testing.T, client modelclient.Client) *Session {
	t.Helper()
	s, err := New("", Deps{
		Home:   t.TempDir(),
		Client: client,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func drainEvents(sub <-chan protocol.Event, n int, timeout time.Duration) []protocol.Event {
	events := make([]protocol.Event, 0, n)
	deadline := time.After(timeout)
	for len(events) < n {
		select {
		case e := <-sub:
			events = append(events, e)
		case <-deadline:
			return events
		}
	}
	return events
}

func TestNew_GeneratesIDAndPersistsSessionConfigured(t *testing.T) {
	home := t.TempDir()
	s, err := New("", Deps{Home: home, Client: &scriptedClient{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Shutdown(context.Background())

	if s.ID() == "" {
		t.Fatal("expected a generated session id")
	}

	// bridgeEvents persists the SessionConfigured event asynchronously;
	// poll the rollout file briefly rather than racing it.
	path := eventbus.RolloutPath(home, s.ID())
	deadline := time.Now().Add(2 * time.Second)
	var contents string
	for time.Now().Before(deadline) {
		b, err := os.ReadFile(path)
		if err == nil {
			contents = string(b)
			if strings.Contains(contents, string(protocol.EventSessionConfigured)) {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("rollout file never recorded SessionConfigured, contents: %q", contents)
}

func TestNew_RejectsNilClient(t *testing.T) {
	_, err := New("", Deps{Home: t.TempDir()})
	if err == nil {
		t.Fatal("expected an error for nil Client")
	}
}

func TestSubmit_UnrecognizedOperation(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	err := s.Submit(context.Background(), protocol.Operation{Type: "bogus"})
	if err == nil {
		t.Fatal("expected an error for an unrecognized operation type")
	}
}

func TestSubmit_UserInputStreamsEventsOnBus(t *testing.T) {
	client := &scriptedClient{scripts: [][]modelclient.StreamEvent{
		{
			{Type: modelclient.EventMessageDelta, Delta: "hi"},
			{Type: modelclient.EventCompleted},
		},
	}}
	s := newTestSession(t, client)
	sub, unsubscribe := s.Events()
	defer unsubscribe()

	if err := s.Submit(context.Background(), protocol.Operation{
		Type:  protocol.OpUserInput,
		SubID: "sub-1",
		Items: []protocol.ResponseItem{protocol.TextMessage(protocol.RoleUser, "hi")},
	}); err != nil {
		t.Fatalf("Submit UserInput: %v", err)
	}

	events := drainEvents(sub, 1, 2*time.Second)
	if len(events) == 0 {
		t.Fatal("expected at least one event from the turn")
	}
}

func TestShutdown_IsIdempotent(t *testing.T) {
	s := newTestSession(t, &scriptedClient{})
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
