package builtin

import (
	"context"
	"encoding/json"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// UpdatePlanTool records the model's self-reported task plan, grounded
// verbatim on codex-rs/core/src/plan_tool.rs's handle_update_plan: parsing
// is delegated entirely to protocol.ParseUpdatePlanArguments so the
// at-most-one-in_progress invariant is enforced in one place.
type UpdatePlanTool struct{}

func NewUpdatePlanTool() *UpdatePlanTool { return &UpdatePlanTool{} }

func (t *UpdatePlanTool) Definition() tooldispatch.ToolDefinition {
	return tooldispatch.ToolDefinition{
		Name:        "update_plan",
		Description: "Report an updated step-by-step plan for the current task.",
		Schema: mustSchema(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"explanation": map[string]interface{}{"type": "string"},
				"plan": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"step":   map[string]interface{}{"type": "string"},
							"status": map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
						},
						"required": []string{"step", "status"},
					},
				},
			},
			"required": []string{"plan"},
		}),
	}
}

func (t *UpdatePlanTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	if _, _, err := protocol.ParseUpdatePlanArguments(string(args)); err != nil {
		return failureOutput(err.Error()), nil
	}
	return successOutput(protocol.PlanUpdatedContent), nil
}
