package builtin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestWebSearchTool_Definition(t *testing.T) {
	tool := NewWebSearchTool()
	def := tool.Definition()
	if def.Name != "web_search" {
		t.Fatalf("expected name 'web_search', got %q", def.Name)
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(def.Schema, &schema); err != nil {
		t.Fatalf("schema should be valid JSON: %v", err)
	}
}

func TestWebSearchTool_RejectsEmptyQuery(t *testing.T) {
	tool := NewWebSearchTool()
	args, _ := json.Marshal(map[string]interface{}{"query": ""})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || *out.Success {
		t.Fatalf("expected failure for empty query, got %+v", out)
	}
}

func TestWebSearchTool_Execute_DuckDuckGo(t *testing.T) {
	t.Skip("requires URL injection to mock the DuckDuckGo Instant Answer API")
}
