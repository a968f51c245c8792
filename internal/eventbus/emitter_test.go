package eventbus

import (
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestEmitter_SequenceStrictlyIncreasing(t *testing.T) {
	e := NewEmitter("session-1")
	var last uint64
	for i := 0; i < 5; i++ {
		ev := e.TaskStarted("sub-1")
		if i > 0 && ev.Seq <= last {
			t.Fatalf("seq not strictly increasing: %d <= %d", ev.Seq, last)
		}
		last = ev.Seq
	}
}

func TestEmitter_TurnAbortedReason(t *testing.T) {
	e := NewEmitter("session-1")
	ev := e.TurnAborted("sub-1", "interrupt")
	if ev.Msg.Type != protocol.EventTurnAborted {
		t.Fatalf("Type = %v, want TurnAborted", ev.Msg.Type)
	}
	if ev.Msg.AbortReason != "interrupt" {
		t.Errorf("AbortReason = %q, want interrupt", ev.Msg.AbortReason)
	}
}
