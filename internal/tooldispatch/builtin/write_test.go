package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestWriteTool_CreatesFile(t *testing.T) {
	root := t.TempDir()
	tool := NewWriteTool()
	args, _ := json.Marshal(map[string]interface{}{"path": "out/notes.txt", "content": "hello"})

	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxWorkspaceWrite})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || !*out.Success {
		t.Fatalf("expected success, got %+v", out)
	}

	data, err := os.ReadFile(filepath.Join(root, "out", "notes.txt"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", string(data))
	}
}

func TestWriteTool_Append(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "log.txt")
	if err := os.WriteFile(path, []byte("one\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tool := NewWriteTool()
	args, _ := json.Marshal(map[string]interface{}{"path": "log.txt", "content": "two\n", "append": true})
	if _, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxWorkspaceWrite}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "one\ntwo\n" {
		t.Fatalf("unexpected content: %q", string(data))
	}
}

func TestWriteTool_DeniedUnderReadOnlySandbox(t *testing.T) {
	root := t.TempDir()
	tool := NewWriteTool()
	args, _ := json.Marshal(map[string]interface{}{"path": "notes.txt", "content": "hello"})

	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxReadOnly})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected denial under read_only sandbox, got %+v", out)
	}
	if _, err := os.Stat(filepath.Join(root, "notes.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected file to not be created, stat err: %v", err)
	}
}
