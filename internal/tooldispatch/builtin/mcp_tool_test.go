package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openagentsinc/agentcore/internal/mcp"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// rpcHandler is a minimal JSON-RPC server covering the handshake plus a
// single tools/call response, enough to exercise MCPTool.Execute without a
// real MCP server.
func rpcHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sse" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		var result json.RawMessage
		switch req.Method {
		case "initialize":
			result, _ = json.Marshal(map[string]interface{}{
				"protocolVersion": "2024-11-05",
				"serverInfo":      map[string]interface{}{"name": "fake", "version": "1.0"},
			})
		case "tools/call":
			result, _ = json.Marshal(map[string]interface{}{
				"content": []map[string]interface{}{{"type": "text", "text": "42"}},
			})
		default:
			result, _ = json.Marshal(map[string]interface{}{})
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestMCPTool_ExecuteCallsRemoteTool(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t))
	defer server.Close()

	cfg := &mcp.ServerConfig{ID: "calc", Transport: mcp.TransportHTTP, URL: server.URL}
	client := mcp.NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	tool := NewMCPTool(client, "calc", "add", "adds numbers", nil)
	if tool.Definition().Name != "mcp__calc__add" {
		t.Fatalf("unexpected qualified name: %s", tool.Definition().Name)
	}

	args, _ := json.Marshal(map[string]interface{}{"a": 40, "b": 2})
	out, err := tool.Execute(context.Background(), args, protocol.TurnContext{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Success == nil || !*out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Content != "42" {
		t.Fatalf("expected remote tool text, got %q", out.Content)
	}
}
