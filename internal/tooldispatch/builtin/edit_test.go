package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestEditTool_ReplacesOnce(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(path, []byte("hello world world"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tool := NewEditTool()
	args, _ := json.Marshal(map[string]interface{}{
		"path": "notes.txt",
		"edits": []map[string]interface{}{
			{"old_text": "world", "new_text": "nexus"},
		},
	})
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
	if string(data) != "hello nexus world" {
		t.Fatalf("unexpected content: %q", string(data))
	}
}

func TestEditTool_ReplaceAll(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(path, []byte("world world world"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tool := NewEditTool()
	args, _ := json.Marshal(map[string]interface{}{
		"path": "notes.txt",
		"edits": []map[string]interface{}{
			{"old_text": "world", "new_text": "nexus", "replace_all": true},
		},
	})
	if _, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxWorkspaceWrite}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "nexus nexus nexus" {
		t.Fatalf("unexpected content: %q", string(data))
	}
}

func TestEditTool_MissingOldTextFails(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tool := NewEditTool()
	args, _ := json.Marshal(map[string]interface{}{
		"path": "notes.txt",
		"edits": []map[string]interface{}{
			{"old_text": "missing", "new_text": "x"},
		},
	})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root, SandboxMode: protocol.SandboxWorkspaceWrite})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected failure for unmatched old_text, got %+v", out)
	}
}
