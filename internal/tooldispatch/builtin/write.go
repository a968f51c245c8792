package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// WriteTool writes file contents within the turn's cwd, grounded on the
// teacher's files.WriteTool.
type WriteTool struct{}

func NewWriteTool() *WriteTool { return &WriteTool{} }

func (t *WriteTool) Definition() tooldispatch.ToolDefinition {
	return tooldispatch.ToolDefinition{
		Name:        "write",
		Description: "Write content to a file in the workspace (overwrites by default).",
		Schema: mustSchema(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":    map[string]interface{}{"type": "string", "description": "Path to write (relative to cwd)."},
				"content": map[string]interface{}{"type": "string", "description": "File contents to write."},
				"append":  map[string]interface{}{"type": "boolean", "description": "Append instead of overwrite (default: false)."},
			},
			"required": []string{"path", "content"},
		}),
	}
}

func (t *WriteTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return failureOutput(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return failureOutput("path is required"), nil
	}
	if turn.SandboxMode == protocol.SandboxReadOnly {
		return failureOutput("write denied: sandbox is read_only"), nil
	}

	resolver := Resolver{Root: turn.Cwd}
	resolved, err := resolver.Resolve(input.Path)
	if err != nil {
		return failureOutput(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return failureOutput(fmt.Sprintf("create directory: %v", err)), nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if input.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return failureOutput(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return failureOutput(fmt.Sprintf("write file: %v", err)), nil
	}

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"path":          input.Path,
		"bytes_written": n,
		"append":        input.Append,
	}, "", "  ")
	return successOutput(string(payload)), nil
}
