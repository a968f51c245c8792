package tooldispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// ExecutorConfig configures the parallel tool executor: concurrency limit,
// per-execution timeout, and retry/backoff strategy, grounded on the
// teacher's ExecutorConfig.
type ExecutorConfig struct {
	// MaxConcurrency caps the number of tool executions running at once
	// within a single turn (spec §4.4: "tool calls within a turn execute
	// concurrently, bounded by a semaphore"). Default: 5.
	MaxConcurrency int

	// DefaultTimeout bounds a single execution attempt. Default: 30s.
	DefaultTimeout time.Duration

	// DefaultRetries is the number of retries for retryable failures.
	// Default: 2.
	DefaultRetries int

	// RetryBackoff is the initial backoff between retries. Default: 100ms.
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the exponential backoff. Default: 5s.
	MaxRetryBackoff time.Duration
}

// DefaultExecutorConfig returns the default executor configuration.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxConcurrency:  5,
		DefaultTimeout:  30 * time.Second,
		DefaultRetries:  2,
		RetryBackoff:    100 * time.Millisecond,
		MaxRetryBackoff: 5 * time.Second,
	}
}

// ToolConfig holds per-tool overrides of the executor defaults.
type ToolConfig struct {
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
}

// Executor runs dispatched tool calls with concurrency limiting, per-attempt
// timeout, and exponential-backoff retry for retryable failures, grounded on
// the teacher's internal/agent/executor.go Executor.
type Executor struct {
	registry   *Registry
	config     *ExecutorConfig
	toolConfig map[string]*ToolConfig
	mu         sync.RWMutex

	sem chan struct{}
}

// NewExecutor creates an Executor bound to registry. A nil config uses
// DefaultExecutorConfig.
func NewExecutor(registry *Registry, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	return &Executor{
		registry:   registry,
		config:     config,
		toolConfig: make(map[string]*ToolConfig),
		sem:        make(chan struct{}, config.MaxConcurrency),
	}
}

// ConfigureTool installs a per-tool override, consulted before the executor
// defaults on every call to that tool.
func (e *Executor) ConfigureTool(name string, cfg *ToolConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toolConfig[name] = cfg
}

func (e *Executor) getToolConfig(name string) *ToolConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.toolConfig[name]
}

// Call is one function_call item pending dispatch.
type Call struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ExecutionResult is one Call's outcome: a FunctionCallOutput item ready for
// RecordItems, plus timing/attempt diagnostics for the Event Bus.
type ExecutionResult struct {
	CallID   string
	ToolName string
	Item     protocol.ResponseItem
	Duration time.Duration
	Attempts int
}

// ExecuteAll dispatches every call in parallel, each bound by the executor's
// semaphore, and returns results in the same order as calls (spec §4.3:
// "tool results are recorded in call order regardless of completion order").
func (e *Executor) ExecuteAll(ctx context.Context, calls []Call, turn protocol.TurnContext) []*ExecutionResult {
	if len(calls) == 0 {
		return nil
	}
	results := make([]*ExecutionResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c Call) {
			defer wg.Done()
			results[idx] = e.Execute(ctx, c, turn)
		}(i, call)
	}
	wg.Wait()
	return results
}

// Execute runs a single Call: argument validation, semaphore acquisition,
// timeout-bounded execution with panic recovery, and exponential-backoff
// retry of retryable failures.
func (e *Executor) Execute(ctx context.Context, call Call, turn protocol.TurnContext) *ExecutionResult {
	start := time.Now()
	result := &ExecutionResult{CallID: call.ID, ToolName: call.Name}

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		// spec §4.3 tie-break: an unknown tool name is a well-formed
		// failure (success=false), distinct from a parse error.
		err := NewToolError(ErrNotFound, call.Name, "unknown tool", nil).WithToolCallID(call.ID)
		result.Item = protocol.FunctionCallOutputItem(call.ID, err.Content(), falsePtr())
		result.Duration = time.Since(start)
		return result
	}

	if err := e.registry.ValidateArguments(call.Name, call.Arguments); err != nil {
		// spec §4.3 tie-break: an argument parse or schema-validation
		// failure is reported with success=nil ("parse error"), distinct
		// from a well-formed false result.
		te := NewToolError(ErrInvalidInput, call.Name, err.Error(), err).WithToolCallID(call.ID)
		result.Item = protocol.FunctionCallOutputItem(call.ID, te.Content(), nil)
		result.Duration = time.Since(start)
		return result
	}

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		te := NewToolError(ErrCancelled, call.Name, "turn cancelled before dispatch", ctx.Err()).WithToolCallID(call.ID)
		result.Item = protocol.FunctionCallOutputItem(call.ID, te.Content(), falsePtr())
		result.Duration = time.Since(start)
		return result
	}

	tc := e.getToolConfig(call.Name)
	timeout := e.config.DefaultTimeout
	maxRetries := e.config.DefaultRetries
	backoff := e.config.RetryBackoff
	if tc != nil {
		if tc.Timeout > 0 {
			timeout = tc.Timeout
		}
		if tc.Retries >= 0 {
			maxRetries = tc.Retries
		}
		if tc.RetryBackoff > 0 {
			backoff = tc.RetryBackoff
		}
	}

	var lastErr *ToolError
	var out ToolOutput
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result.Attempts = attempt + 1

		execOut, execErr := e.executeWithTimeout(ctx, tool, call, turn, timeout)
		if execErr == nil {
			out = execOut
			lastErr = nil
			break
		}
		lastErr = execErr

		if !isRetryable(execErr) || ctx.Err() != nil || attempt >= maxRetries {
			break
		}

		sleep := backoff * time.Duration(1<<uint(attempt))
		if sleep > e.config.MaxRetryBackoff {
			sleep = e.config.MaxRetryBackoff
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			lastErr = NewToolError(ErrCancelled, call.Name, "turn cancelled during retry wait", ctx.Err()).WithToolCallID(call.ID)
			attempt = maxRetries
		}
	}

	result.Duration = time.Since(start)
	if lastErr != nil {
		result.Item = protocol.FunctionCallOutputItem(call.ID, lastErr.Content(), falsePtr())
		return result
	}

	content, truncated := Truncate(out.Content)
	item := protocol.FunctionCallOutputItem(call.ID, content, out.Success)
	if truncated {
		item.Truncated = true
	}
	if out.SpillPath != "" {
		item.SpillPath = out.SpillPath
	}
	result.Item = item
	return result
}

// executeWithTimeout runs tool.Execute in its own goroutine, racing it
// against a timeout derived from timeout and recovering any panic into an
// ErrExecutionFailed ToolError, grounded on the teacher's
// executeWithTimeout.
func (e *Executor) executeWithTimeout(ctx context.Context, tool ToolImpl, call Call, turn protocol.TurnContext, timeout time.Duration) (ToolOutput, *ToolError) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out ToolOutput
		err error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				ch <- outcome{err: fmt.Errorf("panic: %v\n%s", r, stack)}
			}
		}()
		out, err := tool.Execute(execCtx, call.Arguments, turn)
		ch <- outcome{out: out, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			if te, ok := AsToolError(res.err); ok {
				return ToolOutput{}, te.WithToolCallID(call.ID)
			}
			return ToolOutput{}, NewToolError(ErrExecutionFailed, call.Name, res.err.Error(), res.err).WithToolCallID(call.ID)
		}
		return res.out, nil
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return ToolOutput{}, NewToolError(ErrCancelled, call.Name, "cancelled", ctx.Err()).WithToolCallID(call.ID)
		}
		return ToolOutput{}, NewToolError(ErrTimeout, call.Name, "", nil).
			WithToolCallID(call.ID).WithTimeout(timeout.Milliseconds())
	}
}

// isRetryable reports whether a failed attempt should be retried. Only
// execution_failed is retried; invalid_input, permission_denied, not_found,
// cancelled, and timeout are terminal per call (spec §4.4).
func isRetryable(err *ToolError) bool {
	return err.Kind == ErrExecutionFailed
}

func falsePtr() *bool {
	b := false
	return &b
}
