package builtin

import (
	"encoding/json"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
)

// mustSchema marshals a schema literal, falling back to an empty object
// schema on the (unreachable in practice) marshal error — grounded on the
// teacher's tool Schema() methods, which apply the same fallback.
func mustSchema(schema map[string]interface{}) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func successOutput(content string) tooldispatch.ToolOutput {
	ok := true
	return tooldispatch.ToolOutput{Content: content, Success: &ok}
}

func failureOutput(content string) tooldispatch.ToolOutput {
	ok := false
	return tooldispatch.ToolOutput{Content: content, Success: &ok}
}
