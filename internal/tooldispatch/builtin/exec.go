package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/internal/tooldispatch/sandbox"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

const defaultExecTimeout = 30 * time.Second

// ExecTool runs a bounded shell command through the sandbox tier selected
// for the turn's SandboxMode, grounded on the teacher's exec.ExecTool
// (internal/tools/exec/tools.go), generalized from its Docker/native
// backend pair to sandbox.Dispatch's native/Firecracker pair.
//
// Approval is not checked here: only the turn driver has the full
// protocol.TurnContext and event bus needed to prompt and await a
// decision, so ExecTool assumes the call already cleared approval by the
// time it runs.
type ExecTool struct {
	firecrackerAvailable bool
}

// NewExecTool creates an exec tool. firecrackerAvailable should reflect a
// one-time probe (e.g. exec.LookPath("firecracker")) performed when the
// session's sandbox tier is constructed.
func NewExecTool(firecrackerAvailable bool) *ExecTool {
	return &ExecTool{firecrackerAvailable: firecrackerAvailable}
}

func (t *ExecTool) Definition() tooldispatch.ToolDefinition {
	return tooldispatch.ToolDefinition{
		Name:        "exec",
		Description: "Execute a shell command in the sandboxed workspace and capture its output.",
		Schema: mustSchema(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"command": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Argv vector, e.g. [\"ls\", \"-la\"].",
				},
				"timeout_ms": map[string]interface{}{"type": "integer", "minimum": 0, "description": "Execution timeout in milliseconds (default: 30000)."},
			},
			"required": []string{"command"},
		}),
	}
}

func (t *ExecTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	var input struct {
		Command   []string `json:"command"`
		TimeoutMS int      `json:"timeout_ms"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return failureOutput(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if len(input.Command) == 0 {
		return failureOutput("command is required"), nil
	}

	timeout := defaultExecTimeout
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}

	runner := sandbox.Dispatch(turn.SandboxMode, t.firecrackerAvailable)
	env := sandbox.BuildEnv(turn.ShellEnvironmentPolicy)

	result, err := runner.Run(ctx, input.Command, turn.Cwd, env, timeout)
	if err != nil {
		return failureOutput(fmt.Sprintf("exec failed: %v", err)), nil
	}

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"command":   input.Command,
		"stdout":    result.Stdout,
		"stderr":    result.Stderr,
		"exit_code": result.ExitCode,
		"timed_out": result.TimedOut,
	}, "", "  ")

	if result.TimedOut {
		return failureOutput(string(payload)), nil
	}
	if result.ExitCode != 0 {
		return failureOutput(string(payload)), nil
	}
	return successOutput(string(payload)), nil
}

// commandKey joins an argv vector into a stable string for approval and
// execpolicy bookkeeping (e.g. ApprovalChecker.MarkFailed's toolKey).
func commandKey(command []string) string {
	return strings.Join(command, " ")
}
