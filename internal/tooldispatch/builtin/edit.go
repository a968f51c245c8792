package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// EditTool applies find/replace edits to a file, grounded on the teacher's
// files.EditTool.
type EditTool struct{}

func NewEditTool() *EditTool { return &EditTool{} }

func (t *EditTool) Definition() tooldispatch.ToolDefinition {
	return tooldispatch.ToolDefinition{
		Name:        "edit",
		Description: "Apply one or more find/replace edits to a file in the workspace.",
		Schema: mustSchema(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Path to edit (relative to cwd)."},
				"edits": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"old_text":    map[string]interface{}{"type": "string"},
							"new_text":    map[string]interface{}{"type": "string"},
							"replace_all": map[string]interface{}{"type": "boolean"},
						},
						"required": []string{"old_text", "new_text"},
					},
				},
			},
			"required": []string{"path", "edits"},
		}),
	}
}

func (t *EditTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	var input struct {
		Path  string `json:"path"`
		Edits []struct {
			OldText    string `json:"old_text"`
			NewText    string `json:"new_text"`
			ReplaceAll bool   `json:"replace_all"`
		} `json:"edits"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return failureOutput(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return failureOutput("path is required"), nil
	}
	if len(input.Edits) == 0 {
		return failureOutput("edits are required"), nil
	}
	if turn.SandboxMode == protocol.SandboxReadOnly {
		return failureOutput("edit denied: sandbox is read_only"), nil
	}

	resolver := Resolver{Root: turn.Cwd}
	resolved, err := resolver.Resolve(input.Path)
	if err != nil {
		return failureOutput(err.Error()), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return failureOutput(fmt.Sprintf("read file: %v", err)), nil
	}

	content := string(data)
	replacements := 0
	for _, edit := range input.Edits {
		if edit.OldText == "" {
			return failureOutput("old_text is required"), nil
		}
		if !strings.Contains(content, edit.OldText) {
			return failureOutput("old_text not found"), nil
		}
		if edit.ReplaceAll {
			count := strings.Count(content, edit.OldText)
			content = strings.ReplaceAll(content, edit.OldText, edit.NewText)
			replacements += count
		} else {
			content = strings.Replace(content, edit.OldText, edit.NewText, 1)
			replacements++
		}
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return failureOutput(fmt.Sprintf("write file: %v", err)), nil
	}

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"path":         input.Path,
		"replacements": replacements,
	}, "", "  ")
	return successOutput(string(payload)), nil
}
