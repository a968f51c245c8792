package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// isDeltaEvent reports whether an event type is a droppable streaming delta,
// per spec §4.5's "slow consumer policy = drop oldest for delta events,
// block for lifecycle events", grounded on the teacher's isDroppableEvent.
func isDeltaEvent(t protocol.EventMsgType) bool {
	switch t {
	case protocol.EventAgentMessageDelta, protocol.EventAgentReasoningDelta, protocol.EventExecCommandOutputItem:
		return true
	default:
		return false
	}
}

const (
	defaultDeltaBuffer     = 256
	defaultLifecycleBuffer = 32
)

// subscriber is one consumer's ordered view of the bus: a lifecycle channel
// that blocks the producer when full, and a delta channel that drops the
// oldest buffered delta when full rather than blocking.
type subscriber struct {
	mu        sync.Mutex
	lifecycle chan protocol.Event
	delta     chan protocol.Event
	out       chan protocol.Event
	done      chan struct{}
}

func newSubscriber() *subscriber {
	s := &subscriber{
		lifecycle: make(chan protocol.Event, defaultLifecycleBuffer),
		delta:     make(chan protocol.Event, defaultDeltaBuffer),
		out:       make(chan protocol.Event, defaultLifecycleBuffer),
		done:      make(chan struct{}),
	}
	go s.mergeLoop()
	return s
}

// mergeLoop preserves issue order per subscriber by draining whichever lane
// has the oldest pending event first; since lifecycle and delta events are
// each internally ordered and a producer only emits from one driver task at
// a time, a simple priority-to-lifecycle merge keeps per-subscriber order
// consistent with spec's "ordered delivery per subscriber".
func (s *subscriber) mergeLoop() {
	defer close(s.out)
	for {
		select {
		case e, ok := <-s.lifecycle:
			if !ok {
				s.drainDelta()
				return
			}
			s.send(e)
		default:
			select {
			case e, ok := <-s.lifecycle:
				if !ok {
					s.drainDelta()
					return
				}
				s.send(e)
			case e, ok := <-s.delta:
				if ok {
					s.send(e)
				}
			case <-s.done:
				s.drainDelta()
				return
			}
		}
	}
}

func (s *subscriber) drainDelta() {
	for {
		select {
		case e, ok := <-s.delta:
			if !ok {
				return
			}
			s.send(e)
		default:
			return
		}
	}
}

func (s *subscriber) send(e protocol.Event) {
	select {
	case s.out <- e:
	case <-s.done:
	}
}

// emit delivers one event to this subscriber, applying the slow-consumer
// policy from spec §4.5.
func (s *subscriber) emit(ctx context.Context, e protocol.Event) {
	if isDeltaEvent(e.Msg.Type) {
		select {
		case s.delta <- e:
			return
		default:
		}
		// Buffer full: drop the oldest buffered delta and push the new one.
		select {
		case <-s.delta:
		default:
		}
		select {
		case s.delta <- e:
		default:
		}
		return
	}
	select {
	case s.lifecycle <- e:
	case <-ctx.Done():
	case <-s.done:
	}
}

func (s *subscriber) close() {
	close(s.done)
}

// Bus is the single-producer-per-session, multi-consumer event fan-out.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers a new consumer and returns a receive-only channel and
// an unsubscribe function. Subscribers hold receive-only handles per
// spec §3's ownership rule.
func (b *Bus) Subscribe() (<-chan protocol.Event, func()) {
	id := newSubID()
	sub := newSubscriber()
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.close()
	}
	return sub.out, unsubscribe
}

// Publish fans the event out to every current subscriber in lookup-snapshot
// fashion (spec §5: "Bus subscribers registry: guarded by a mutex for
// insert/remove; lookups use a snapshot clone").
func (b *Bus) Publish(ctx context.Context, e protocol.Event) {
	b.mu.RLock()
	snapshot := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		snapshot = append(snapshot, s)
	}
	b.mu.RUnlock()

	for _, s := range snapshot {
		s.emit(ctx, e)
	}
}

// SubscriberCount reports the current number of subscribers (for tests and
// diagnostics).
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

var subIDCounter uint64

func newSubID() string {
	// Local monotonic id; bus subscriber identity never leaves this process.
	return "sub_" + itoa(atomic.AddUint64(&subIDCounter, 1))
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
