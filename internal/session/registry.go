package session

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/internal/tooldispatch/builtin"
)

// defaultReadBytes mirrors the builtin package's own zero-value fallback
// for the read tool's byte ceiling.
const defaultReadBytes = 200_000

// defaultRegistry builds a Registry carrying every built-in tool that
// requires no external connection to construct. mcp_tool is deliberately
// excluded: it is wired per MCP server by a caller that has a live
// *mcp.Client, which a package-level default has no way to supply.
func defaultRegistry(logger *slog.Logger) *tooldispatch.Registry {
	r := tooldispatch.NewRegistry()

	tools := []tooldispatch.ToolImpl{
		builtin.NewApplyPatchTool(),
		builtin.NewEditTool(),
		builtin.NewExecTool(probeFirecracker()),
		builtin.NewReadTool(defaultReadBytes),
		builtin.NewUpdatePlanTool(),
		builtin.NewViewImageTool(),
		builtin.NewWebSearchTool(),
		builtin.NewWriteTool(),
	}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			logger.Warn("register builtin tool failed", "tool", tool.Definition().Name, "error", err)
		}
	}
	return r
}

// probeFirecracker reports whether a firecracker binary is reachable on
// PATH, the same signal the sandbox dispatcher uses to decide whether a
// jailed exec path is available (internal/tooldispatch/sandbox).
func probeFirecracker() bool {
	_, err := exec.LookPath("firecracker")
	return err == nil
}

// openagentsHomeEnv is the environment variable that overrides the
// session home directory.
const openagentsHomeEnv = "OPENAGENTS_HOME"

// defaultHome resolves the session home directory: OPENAGENTS_HOME if
// set, otherwise ~/.openagents, falling back to a relative ".openagents"
// if the user's home directory cannot be determined.
func defaultHome() string {
	if home := os.Getenv(openagentsHomeEnv); home != "" {
		return home
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".openagents")
	}
	return ".openagents"
}
