package tooldispatch

import (
	"errors"
	"fmt"
)

// ErrorKind is the local failure taxonomy from spec §4.4/§7: every kind
// here is surfaced to the model as a success=false FunctionCallOutput; the
// turn itself never aborts because of a tool error.
type ErrorKind string

const (
	ErrCancelled        ErrorKind = "cancelled"
	ErrPermissionDenied ErrorKind = "permission_denied"
	ErrInvalidInput     ErrorKind = "invalid_input"
	ErrNotFound         ErrorKind = "not_found"
	ErrNotUnique        ErrorKind = "not_unique"
	ErrExecutionFailed  ErrorKind = "execution_failed"
	ErrTimeout          ErrorKind = "timeout"
)

// ToolError is a structured, classified tool failure, grounded on the
// teacher's ToolError (internal/agent/errors.go): a Kind enum, builder
// methods, and errors.Is/As support via Unwrap.
type ToolError struct {
	Kind       ErrorKind
	ToolName   string
	ToolCallID string
	Message    string
	Cause      error
	TimeoutMS  int64
}

func (e *ToolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.ToolName, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.ToolName, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.ToolName)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// NewToolError builds a ToolError of the given kind.
func NewToolError(kind ErrorKind, toolName, message string, cause error) *ToolError {
	return &ToolError{Kind: kind, ToolName: toolName, Message: message, Cause: cause}
}

// WithToolCallID attaches the call id for correlating errors with calls.
func (e *ToolError) WithToolCallID(id string) *ToolError {
	e.ToolCallID = id
	return e
}

// WithTimeout attaches the timeout duration for ErrTimeout errors.
func (e *ToolError) WithTimeout(ms int64) *ToolError {
	e.TimeoutMS = ms
	return e
}

// AsToolError extracts a *ToolError from an error chain.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Content renders the ToolError as the FunctionCallOutput content string a
// model would see, matching the literal strings spec §4.4 names for the
// permission-denied and unknown-tool cases.
func (e *ToolError) Content() string {
	switch e.Kind {
	case ErrPermissionDenied:
		return "permission denied"
	case ErrNotFound:
		if e.Message != "" {
			return e.Message
		}
		return "unknown tool"
	case ErrTimeout:
		return fmt.Sprintf("execution timed out after %dms", e.TimeoutMS)
	default:
		return e.Error()
	}
}
