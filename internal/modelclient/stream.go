// Package modelclient issues one request per model turn carrying full
// conversation history and tool schemas, and yields a lazy, finite stream of
// typed events until the provider signals completion.
package modelclient

import (
	"context"
	"encoding/json"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// StreamEventType discriminates the StreamEvent union.
type StreamEventType string

const (
	EventOutputItemDone StreamEventType = "output_item_done"
	EventMessageDelta   StreamEventType = "message_delta"
	EventReasoningDelta StreamEventType = "reasoning_delta"
	EventFunctionCall   StreamEventType = "function_call"
	EventCompleted      StreamEventType = "completed"
	EventRateLimits     StreamEventType = "rate_limits"
	EventError          StreamEventType = "error"
)

// ErrorKind classifies a stream Error event for the Turn Driver's retry
// decision. It mirrors the teacher's FailoverReason taxonomy, narrowed to
// the retriable/non-retriable distinction the spec requires.
type ErrorKind string

const (
	ErrorRateLimit        ErrorKind = "rate_limit"
	ErrorTimeout          ErrorKind = "timeout"
	ErrorServer           ErrorKind = "server_error"
	ErrorAuth             ErrorKind = "auth"
	ErrorInvalidRequest   ErrorKind = "invalid_request"
	ErrorIncompleteStream ErrorKind = "incomplete_stream"
	ErrorBudgetExceeded   ErrorKind = "budget_exceeded"
	ErrorUnknown          ErrorKind = "unknown"
)

// Retriable reports whether a fresh attempt is worth making for this kind,
// independent of whatever attempt-count bookkeeping the caller applies.
func (k ErrorKind) Retriable() bool {
	switch k {
	case ErrorRateLimit, ErrorTimeout, ErrorServer, ErrorIncompleteStream:
		return true
	default:
		return false
	}
}

// RateLimitInfo carries provider-reported remaining-capacity hints.
type RateLimitInfo struct {
	RequestsRemaining int
	TokensRemaining   int
	ResetAfterMS      int64
}

// FunctionCall is the provider's request to invoke a tool.
type FunctionCall struct {
	CallID    string
	Name      string
	Arguments string // raw JSON text, parsed by the caller
}

// StreamEvent is the tagged union yielded by Client.Complete. Exactly the
// fields relevant to Type are populated.
type StreamEvent struct {
	Type StreamEventType

	// OutputItemDone
	Item *protocol.ResponseItem

	// MessageDelta / ReasoningDelta
	Delta string

	// FunctionCall
	Call *FunctionCall

	// Completed
	ResponseID string

	// RateLimits
	RateLimits *RateLimitInfo

	// Error
	ErrorKind    ErrorKind
	ErrorMessage string
	Retriable    bool
}

// ToolSchema describes one callable tool for the wire request, independent
// of the Tool Dispatcher's own ToolImpl contract.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request carries everything a provider needs to start one streamed
// completion: the full item history (not just the latest delta) plus the
// tool schemas currently in scope.
type Request struct {
	Model               string
	Instructions        string
	Items               []protocol.ResponseItem
	Tools               []ToolSchema
	MaxOutputTokens     int
	ReasoningEffort     string
	StreamIdleTimeoutMS int64
	RequestMaxRetries   int
	StreamMaxRetries    int
}

// Client issues one request to a configured model provider and returns a
// channel of StreamEvents. The channel is closed once a terminal event
// (Completed or an Error, retriable or not) has been sent, when the
// provider's stream ends without one, or when the context is canceled. Dropping the channel receiver (i.e. abandoning the returned
// channel without draining it, alongside canceling ctx) cancels the
// in-flight request; no retry is attempted by the Client itself — retry
// orchestration lives one layer up, in Stream.
type Client interface {
	// Name identifies the provider for logs and error wrapping, e.g. "anthropic".
	Name() string

	// Complete issues a single, non-retried streaming request. It returns
	// an error immediately only if the request could not be constructed or
	// sent; once the channel is returned, all failures surface as an Error
	// event on the channel.
	Complete(ctx context.Context, req Request) (<-chan StreamEvent, error)
}
