package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openagentsinc/agentcore/internal/mcp"
	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// MCPTool adapts a single tool exposed by a connected MCP server into a
// tooldispatch.ToolImpl, grounded on the teacher's mcp.Client.CallTool and
// mcp.MCPTool (internal/mcp/client.go, internal/mcp/types.go). One MCPTool
// value is registered per (server, tool) pair discovered during
// mcp.Client.RefreshCapabilities; the server-qualified name prevents
// collisions between identically-named tools on different servers.
type MCPTool struct {
	client     *mcp.Client
	serverID   string
	remoteName string
	definition tooldispatch.ToolDefinition
}

// NewMCPTool wraps remoteName as exposed by client under serverID, using
// schema as its input schema (copied from the MCP tool's inputSchema at
// discovery time).
func NewMCPTool(client *mcp.Client, serverID, remoteName, description string, schema json.RawMessage) *MCPTool {
	qualified := fmt.Sprintf("mcp__%s__%s", serverID, remoteName)
	if len(schema) == 0 {
		schema = mustSchema(map[string]interface{}{"type": "object"})
	}
	return &MCPTool{
		client:     client,
		serverID:   serverID,
		remoteName: remoteName,
		definition: tooldispatch.ToolDefinition{
			Name:        qualified,
			Description: description,
			Schema:      schema,
		},
	}
}

func (t *MCPTool) Definition() tooldispatch.ToolDefinition {
	return t.definition
}

func (t *MCPTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	var arguments map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return failureOutput(fmt.Sprintf("invalid parameters: %v", err)), nil
		}
	}

	result, err := t.client.CallTool(ctx, t.remoteName, arguments)
	if err != nil {
		return failureOutput(fmt.Sprintf("mcp call failed: %v", err)), nil
	}

	var text strings.Builder
	for i, block := range result.Content {
		if i > 0 {
			text.WriteString("\n")
		}
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "image":
			text.WriteString(fmt.Sprintf("[image: %s, %d bytes]", block.MimeType, len(block.Data)))
		default:
			text.WriteString(fmt.Sprintf("[%s content]", block.Type))
		}
	}

	if result.IsError {
		return failureOutput(text.String()), nil
	}
	return successOutput(text.String()), nil
}
