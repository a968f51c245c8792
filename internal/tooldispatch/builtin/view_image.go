package builtin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

const defaultMaxImageBytes = 5_000_000

// ViewImageTool reads a local image file and returns it as a data-URI
// ContentPart, so a subsequent turn can attach it to a Message the way the
// model provider expects inline images delivered. Grounded on the
// teacher's ReadTool resolve-then-read pattern (internal/tools/files) with
// protocol.ContentPart as the output shape instead of a plain-text body.
type ViewImageTool struct {
	maxBytes int
}

func NewViewImageTool() *ViewImageTool {
	return &ViewImageTool{maxBytes: defaultMaxImageBytes}
}

func (t *ViewImageTool) Definition() tooldispatch.ToolDefinition {
	return tooldispatch.ToolDefinition{
		Name:        "view_image",
		Description: "Load a local image file and attach it to the conversation as an image content part.",
		Schema: mustSchema(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Path to the image file (relative to cwd)."},
			},
			"required": []string{"path"},
		}),
	}
}

func (t *ViewImageTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return failureOutput(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return failureOutput("path is required"), nil
	}

	resolver := Resolver{Root: turn.Cwd}
	resolved, err := resolver.Resolve(input.Path)
	if err != nil {
		return failureOutput(err.Error()), nil
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return failureOutput(fmt.Sprintf("stat file: %v", err)), nil
	}
	if info.Size() > int64(t.maxBytes) {
		return failureOutput(fmt.Sprintf("image exceeds maximum size of %d bytes", t.maxBytes)), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return failureOutput(fmt.Sprintf("read file: %v", err)), nil
	}

	contentType := mime.TypeByExtension(filepath.Ext(resolved))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	part := protocol.ContentPart{Type: "image", Data: dataURI}
	encodedPart, _ := json.Marshal(part)

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"path":         input.Path,
		"content_type": contentType,
		"bytes":        len(data),
		"content_part": json.RawMessage(encodedPart),
	}, "", "  ")
	return successOutput(string(payload)), nil
}
