package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestApplyPatchTool_AppliesUnifiedDiff(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(path, []byte("line one\nline two\nline three\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	patch := "--- a/notes.txt\n" +
		"+++ b/notes.txt\n" +
		"@@ -1,3 +1,3 @@\n" +
		" line one\n" +
		"-line two\n" +
		"+line TWO\n" +
		" line three\n"

	tool := NewApplyPatchTool()
	args, _ := json.Marshal(map[string]interface{}{"patch": patch})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxWorkspaceWrite})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || !*out.Success {
		t.Fatalf("expected success, got %+v", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	want := "line one\nline TWO\nline three\n"
	if string(data) != want {
		t.Fatalf("unexpected content: %q, want %q", string(data), want)
	}
}

func TestApplyPatchTool_RejectsMalformedPatch(t *testing.T) {
	root := t.TempDir()
	tool := NewApplyPatchTool()
	args, _ := json.Marshal(map[string]interface{}{"patch": "not a patch"})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxWorkspaceWrite})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected failure for malformed patch, got %+v", out)
	}
}

func TestApplyPatchTool_DeniedUnderReadOnlySandbox(t *testing.T) {
	root := t.TempDir()
	tool := NewApplyPatchTool()
	args, _ := json.Marshal(map[string]interface{}{"patch": "--- a/x\n+++ b/x\n@@ -1 +1 @@\n-a\n+b\n"})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxReadOnly})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected denial under read_only sandbox, got %+v", out)
	}
}
