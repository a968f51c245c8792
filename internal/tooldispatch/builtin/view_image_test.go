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

func TestViewImageTool_ReturnsDataURI(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "pic.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tool := NewViewImageTool()
	args, _ := json.Marshal(map[string]interface{}{"path": "pic.png"})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || !*out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if !strings.Contains(out.Content, "image/png") || !strings.Contains(out.Content, "data:") {
		t.Fatalf("expected data URI in output, got %s", out.Content)
	}
}

func TestViewImageTool_RejectsOversizedFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "huge.png")
	if err := os.WriteFile(path, make([]byte, 16), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tool := NewViewImageTool()
	tool.maxBytes = 8
	args, _ := json.Marshal(map[string]interface{}{"path": "huge.png"})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{Cwd: root})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected failure for oversized file, got %+v", out)
	}
}
