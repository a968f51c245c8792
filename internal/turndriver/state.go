package turndriver

// Phase identifies where a turn currently is in the state machine from
// spec §4.3: Idle -> Streaming -> (Dispatching -> Streaming)* ->
// Completed | Aborted | Failed.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseStreaming   Phase = "streaming"
	PhaseDispatching Phase = "dispatching"
	PhaseCompleted   Phase = "completed"
	PhaseAborted     Phase = "aborted"
	PhaseFailed      Phase = "failed"
)

// pendingCall is a FunctionCall item awaiting dispatch, carried across the
// Streaming -> Dispatching transition in the order the model emitted it.
type pendingCall struct {
	callID    string
	name      string
	arguments string
}

// turnState tracks one in-flight turn's working data. It is owned
// exclusively by the goroutine running RunTurn; nothing here is shared.
type turnState struct {
	phase           Phase
	iteration       int
	pending         []pendingCall
	messageText     string
	reasoningText   string
	totalToolCalls  int
}
