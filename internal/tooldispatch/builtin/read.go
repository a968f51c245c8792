package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

const defaultMaxReadBytes = 200_000

// ReadTool reads a file within the turn's cwd, bounded by maxReadBytes,
// grounded on the teacher's files.ReadTool.
type ReadTool struct {
	maxReadBytes int
}

// NewReadTool creates a read tool with the given byte ceiling (0 uses the
// default 200,000 bytes).
func NewReadTool(maxReadBytes int) *ReadTool {
	if maxReadBytes <= 0 {
		maxReadBytes = defaultMaxReadBytes
	}
	return &ReadTool{maxReadBytes: maxReadBytes}
}

func (t *ReadTool) Definition() tooldispatch.ToolDefinition {
	return tooldispatch.ToolDefinition{
		Name:        "read",
		Description: "Read a file from the workspace with optional offset and byte limit.",
		Schema: mustSchema(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":      map[string]interface{}{"type": "string", "description": "Path to the file (relative to cwd)."},
				"offset":    map[string]interface{}{"type": "integer", "minimum": 0, "description": "Byte offset to start reading from (default: 0)."},
				"max_bytes": map[string]interface{}{"type": "integer", "minimum": 0, "description": "Maximum bytes to read (capped by tool default)."},
			},
			"required": []string{"path"},
		}),
	}
}

func (t *ReadTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	var input struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return failureOutput(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return failureOutput("path is required"), nil
	}
	if input.Offset < 0 {
		return failureOutput("offset must be >= 0"), nil
	}

	resolver := Resolver{Root: turn.Cwd}
	resolved, err := resolver.Resolve(input.Path)
	if err != nil {
		return failureOutput(err.Error()), nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		return failureOutput(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return failureOutput(fmt.Sprintf("stat file: %v", err)), nil
	}

	if input.Offset > 0 {
		if _, err := file.Seek(input.Offset, io.SeekStart); err != nil {
			return failureOutput(fmt.Sprintf("seek file: %v", err)), nil
		}
	}

	limit := t.maxReadBytes
	if input.MaxBytes > 0 && input.MaxBytes < limit {
		limit = input.MaxBytes
	}

	remaining := int64(limit)
	if size := info.Size(); size > 0 {
		remaining = size - input.Offset
		if remaining < 0 {
			remaining = 0
		}
		if remaining > int64(limit) {
			remaining = int64(limit)
		}
	}

	buf, err := io.ReadAll(io.LimitReader(file, remaining))
	if err != nil {
		return failureOutput(fmt.Sprintf("read file: %v", err)), nil
	}

	truncated := info.Size() > 0 && input.Offset+int64(len(buf)) < info.Size()

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"path":      input.Path,
		"content":   string(buf),
		"offset":    input.Offset,
		"bytes":     len(buf),
		"truncated": truncated,
	}, "", "  ")

	return successOutput(string(payload)), nil
}
