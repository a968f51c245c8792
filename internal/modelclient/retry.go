package modelclient

import (
	"context"
	"time"

	"github.com/openagentsinc/agentcore/internal/backoff"
)

// requestBackoff governs connection/HTTP-level retries (request_max_retries):
// the provider never accepted the request at all.
var requestBackoff = backoff.BackoffPolicy{InitialMs: 250, MaxMs: 8000, Factor: 2, Jitter: 0.2}

// streamBackoff governs post-connect incomplete-stream retries
// (stream_max_retries): the provider accepted the request but the stream
// ended without a Completed event, or idled out.
var streamBackoff = backoff.BackoffPolicy{InitialMs: 500, MaxMs: 15000, Factor: 2, Jitter: 0.2}

// Stream wraps a Client with the retry orchestration spec §4.2 requires:
// a request-level retry counter for connection/HTTP failures and a
// separate stream-level counter for streams that connect but never emit
// Completed before EOF or idle out. It also enforces StreamIdleTimeoutMS,
// since providers don't agree on idle-timeout semantics themselves.
//
// Each call to Run issues a fresh request per attempt; per spec, a stream
// is never restartable mid-flight.
type Stream struct {
	client Client
}

// NewStream builds a Stream around the given provider Client.
func NewStream(client Client) *Stream {
	return &Stream{client: client}
}

// Run drives req to completion, applying the request/stream retry split,
// and forwards every event it observes to out. Run closes out before
// returning. It returns a non-nil error only if the final attempt ended in
// a non-retriable or retries-exhausted failure; the caller still receives
// an Error event on out describing the same failure.
func (s *Stream) Run(ctx context.Context, req Request, out chan<- StreamEvent) error {
	defer close(out)

	requestMaxRetries := req.RequestMaxRetries
	if requestMaxRetries <= 0 {
		requestMaxRetries = 3
	}
	streamMaxRetries := req.StreamMaxRetries
	if streamMaxRetries <= 0 {
		streamMaxRetries = 2
	}

	requestAttempt := 0
	streamAttempt := 0

	for {
		select {
		case <-ctx.Done():
			emitError(out, ErrorTimeout, ctx.Err().Error(), false)
			return ctx.Err()
		default:
		}

		events, err := s.client.Complete(ctx, req)
		if err != nil {
			requestAttempt++
			kind := classifyConnectError(err)
			if !kind.Retriable() || requestAttempt > requestMaxRetries {
				emitError(out, kind, err.Error(), false)
				return err
			}
			if sleepErr := backoff.SleepWithBackoff(ctx, requestBackoff, requestAttempt); sleepErr != nil {
				emitError(out, ErrorTimeout, sleepErr.Error(), false)
				return sleepErr
			}
			continue
		}

		completed, retryErr := s.drain(ctx, req, events, out)
		if completed {
			return nil
		}

		streamAttempt++
		kind, retriable := classifyStreamError(retryErr)
		if !retriable || streamAttempt > streamMaxRetries {
			emitError(out, kind, retryErr.Error(), false)
			return retryErr
		}
		if sleepErr := backoff.SleepWithBackoff(ctx, streamBackoff, streamAttempt); sleepErr != nil {
			emitError(out, ErrorTimeout, sleepErr.Error(), false)
			return sleepErr
		}
	}
}

// drain forwards events from one connected stream to out until Completed,
// EOF, idle timeout, or a fatal Error event. It returns completed=true only
// once a Completed event has passed through; otherwise it returns the
// condition (as an error) that ended the attempt, for the caller to
// classify as stream-retriable or not.
func (s *Stream) drain(ctx context.Context, req Request, events <-chan StreamEvent, out chan<- StreamEvent) (bool, error) {
	idleTimeout := time.Duration(req.StreamIdleTimeoutMS) * time.Millisecond
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	timer := time.NewTimer(idleTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
			return false, errIdleTimeout
		case ev, ok := <-events:
			if !ok {
				return false, errIncompleteStream
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idleTimeout)

			out <- ev

			switch ev.Type {
			case EventCompleted:
				return true, nil
			case EventError:
				return false, errStreamEventError(ev)
			}
		}
	}
}

func emitError(out chan<- StreamEvent, kind ErrorKind, message string, retriable bool) {
	out <- StreamEvent{Type: EventError, ErrorKind: kind, ErrorMessage: message, Retriable: retriable}
}
