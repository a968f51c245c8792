// Package sandbox dispatches exec-like tool calls to the runtime tier
// selected by a TurnContext's SandboxMode, grounded on the teacher's
// internal/tools/sandbox package (Executor, WorkspaceAccessMode,
// Backend/Option) generalized from a pluggable-language code runner to a
// bounded shell-command runner.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// Result is the outcome of a bounded command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Runner executes a command under a sandbox tier.
type Runner interface {
	Run(ctx context.Context, command []string, cwd string, env []string, timeout time.Duration) (Result, error)
}

// Dispatch selects a Runner for mode, grounded on the teacher's
// Config.Backend selection in NewExecutor (Firecracker availability probed,
// falling back to a weaker tier when unavailable).
func Dispatch(mode protocol.SandboxMode, firecrackerAvailable bool) Runner {
	switch mode {
	case protocol.SandboxFullAccess:
		return &NativeRunner{NetworkEnabled: true, Writable: true}
	case protocol.SandboxWorkspaceWrite:
		if firecrackerAvailable {
			return NewFirecrackerRunner(true)
		}
		return &NativeRunner{NetworkEnabled: false, Writable: true}
	case protocol.SandboxReadOnly:
		fallthrough
	default:
		if firecrackerAvailable {
			return NewFirecrackerRunner(false)
		}
		return &NativeRunner{NetworkEnabled: false, Writable: false}
	}
}

// NativeRunner executes commands directly via os/exec, the fallback tier
// when no microVM backend is available (mirrors the teacher's BackendDocker
// fallback when "firecracker" isn't on PATH).
type NativeRunner struct {
	NetworkEnabled bool
	Writable       bool
}

// Run executes command, capturing stdout/stderr separately and honoring
// timeout via context.WithTimeout, grounded on the teacher's
// dockerExecutor.runDockerCommand pattern generalized to a direct exec.
func (r *NativeRunner) Run(ctx context.Context, command []string, cwd string, env []string, timeout time.Duration) (Result, error) {
	if len(command) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, command[0], command[1:]...)
	cmd.Dir = cwd
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if execCtx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// BuildEnv constructs a child process environment from a
// ShellEnvironmentPolicy: "inherit" starts from os.Environ() with Exclude
// patterns stripped, "ignore_defaults" starts empty; Env entries are always
// appended last so they win, grounded on the teacher's exec tool's env
// handling (internal/tools/exec/tools.go).
func BuildEnv(policy protocol.ShellEnvironmentPolicy) []string {
	var base []string
	if policy.Mode == protocol.ShellEnvIgnoreDefaults {
		base = nil
	} else {
		base = os.Environ()
	}

	filtered := base[:0:0]
	for _, kv := range base {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
		}
		if matchesAny(policy.Exclude, key) {
			continue
		}
		filtered = append(filtered, kv)
	}

	for k, v := range policy.Env {
		filtered = append(filtered, k+"="+v)
	}
	return filtered
}

func matchesAny(patterns []string, key string) bool {
	for _, p := range patterns {
		if p == key {
			return true
		}
		if strings.HasSuffix(p, "*") && strings.HasPrefix(key, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}
