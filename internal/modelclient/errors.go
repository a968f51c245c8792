package modelclient

import (
	"errors"
	"net/http"
	"strings"
)

var (
	errIdleTimeout      = errors.New("modelclient: stream idle timeout exceeded")
	errIncompleteStream = errors.New("modelclient: stream ended without a completed event")
)

// errStreamEventError recovers an error value from a retriable Error event
// so drain's caller can classify it the same way a transport error would be.
func errStreamEventError(ev StreamEvent) error {
	return &streamEventError{kind: ev.ErrorKind, message: ev.ErrorMessage, retriable: ev.Retriable}
}

type streamEventError struct {
	kind      ErrorKind
	message   string
	retriable bool
}

func (e *streamEventError) Error() string { return e.message }

// classifyConnectError inspects an error returned by Client.Complete itself
// (i.e. the request never reached a connected stream) and assigns it a
// retry-relevant ErrorKind. Mirrors the teacher's ClassifyError string
// sniffing, narrowed to the kinds the Turn Driver distinguishes.
func classifyConnectError(err error) ErrorKind {
	if err == nil {
		return ErrorUnknown
	}

	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		return classifyStatusCode(statusErr.StatusCode())
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return ErrorTimeout
	case strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		// Network connectivity errors: worth a fresh attempt, same as the
		// provider having momentarily dropped the connection.
		return ErrorTimeout
	case strings.Contains(msg, "rate_limit") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return ErrorRateLimit
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return ErrorAuth
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return ErrorServer
	case strings.Contains(msg, "400") || strings.Contains(msg, "422"):
		return ErrorInvalidRequest
	default:
		return ErrorUnknown
	}
}

// classifyStatusCode matches the spec's "non-retriable: HTTP 4xx except
// 408/425/429" rule.
func classifyStatusCode(status int) ErrorKind {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooEarly, status == http.StatusTooManyRequests:
		return ErrorRateLimit
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrorAuth
	case status >= 400 && status < 500:
		return ErrorInvalidRequest
	case status >= 500:
		return ErrorServer
	default:
		return ErrorUnknown
	}
}

// classifyStreamError turns the condition that ended drain (idle timeout,
// channel close without Completed, or a relayed Error event) into the
// ErrorKind plus retriable verdict the stream-retry loop needs.
func classifyStreamError(err error) (ErrorKind, bool) {
	var sdkErr *streamEventError
	if errors.As(err, &sdkErr) {
		return sdkErr.kind, sdkErr.retriable
	}
	switch {
	case errors.Is(err, errIdleTimeout):
		return ErrorTimeout, true
	case errors.Is(err, errIncompleteStream):
		return ErrorIncompleteStream, true
	default:
		return ErrorUnknown, false
	}
}
