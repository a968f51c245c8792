package builtin

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestExecTool_RunsCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo/argv semantics differ on windows")
	}
	root := t.TempDir()
	tool := NewExecTool(false)
	args, _ := json.Marshal(map[string]interface{}{"command": []string{"echo", "hi"}})

	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxFullAccess})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || !*out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestExecTool_NonZeroExitIsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell semantics differ on windows")
	}
	root := t.TempDir()
	tool := NewExecTool(false)
	args, _ := json.Marshal(map[string]interface{}{"command": []string{"sh", "-c", "exit 3"}})

	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxFullAccess})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected failure for non-zero exit, got %+v", out)
	}
}

func TestExecTool_RejectsEmptyCommand(t *testing.T) {
	root := t.TempDir()
	tool := NewExecTool(false)
	args, _ := json.Marshal(map[string]interface{}{"command": []string{}})

	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxFullAccess})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected failure for empty command, got %+v", out)
	}
}
