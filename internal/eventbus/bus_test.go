package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestBus_DeliversInOrder(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	e := NewEmitter("s1")
	ctx := context.Background()
	want := []protocol.Event{
		e.TaskStarted("sub-1"),
		e.ItemCompleted("sub-1", protocol.TextMessage(protocol.RoleAssistant, "hi")),
		e.TaskComplete("sub-1", "done"),
	}
	for _, ev := range want {
		b.Publish(ctx, ev)
	}

	for i, w := range want {
		select {
		case got := <-ch:
			if got.Seq != w.Seq {
				t.Fatalf("event %d: Seq = %d, want %d (out of order)", i, got.Seq, w.Seq)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d: timed out waiting for delivery", i)
		}
	}
}

func TestBus_DropsOldestDeltaUnderBackpressure(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	e := NewEmitter("s1")
	ctx := context.Background()

	// Flood far beyond the delta buffer without draining; the subscriber's
	// merge loop may drain concurrently, so assert only the policy
	// properties: no blocking, and the last-published delta is eventually
	// observed.
	var last protocol.Event
	for i := 0; i < defaultDeltaBuffer*4; i++ {
		last = e.AgentMessageDelta("sub-1", "x")
		b.Publish(ctx, last)
	}

	seenLast := false
	timeout := time.After(2 * time.Second)
	for !seenLast {
		select {
		case got := <-ch:
			if got.Seq == last.Seq {
				seenLast = true
			}
		case <-timeout:
			t.Fatal("never observed the final delta event; backpressure policy likely blocked the producer")
		}
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	_, unsubscribe := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", b.SubscriberCount())
	}
	unsubscribe()
	if b.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount after unsubscribe = %d, want 0", b.SubscriberCount())
	}
}

func TestBus_MultipleSubscribersEachGetEvents(t *testing.T) {
	b := NewBus()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	e := NewEmitter("s1")
	ev := e.TaskStarted("sub-1")
	b.Publish(context.Background(), ev)

	for _, ch := range []<-chan protocol.Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Seq != ev.Seq {
				t.Fatalf("Seq = %d, want %d", got.Seq, ev.Seq)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the published event")
		}
	}
}
