package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestReadTool_ReadsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tool := NewReadTool(0)
	args, _ := json.Marshal(map[string]interface{}{"path": "notes.txt"})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || !*out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if !strings.Contains(out.Content, "hello world") {
		t.Fatalf("expected content in output, got %s", out.Content)
	}
}

func TestReadTool_RespectsMaxBytes(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "big.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tool := NewReadTool(4)
	args, _ := json.Marshal(map[string]interface{}{"path": "big.txt"})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var decoded struct {
		Content   string `json:"content"`
		Truncated bool   `json:"truncated"`
	}
	if err := json.Unmarshal([]byte(out.Content), &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(decoded.Content) != 4 || !decoded.Truncated {
		t.Fatalf("expected truncated 4-byte read, got %+v", decoded)
	}
}

func TestReadTool_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	tool := NewReadTool(0)
	args, _ := json.Marshal(map[string]interface{}{"path": "../outside.txt"})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected failure for path escape, got %+v", out)
	}
}
