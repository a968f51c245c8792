// Package providers adapts the Model Stream Client's provider-neutral
// Request/StreamEvent contract to the wire formats of the concrete model
// APIs: Anthropic Messages, OpenAI, Bedrock, and Gemini.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// AnthropicConfig configures an AnthropicClient.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// AnthropicClient implements modelclient.Client against Anthropic's Messages
// streaming API.
type AnthropicClient struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicClient builds an AnthropicClient from config, applying the same
// defaulting the teacher's provider constructor does.
func NewAnthropicClient(config AnthropicConfig) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	defaultModel := config.DefaultModel
	if defaultModel == "" {
		defaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		defaultModel: defaultModel,
	}, nil
}

// Name implements modelclient.Client.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete implements modelclient.Client. It converts req into an Anthropic
// MessageNewParams, opens the SDK's SSE stream, and translates each event
// into a modelclient.StreamEvent on the returned channel. Unlike the
// teacher's agent.LLMProvider.Complete, retrying a failed connection is not
// this method's job — that belongs to modelclient.Stream one layer up, so
// this method issues exactly one attempt per call.
func (c *AnthropicClient) Complete(ctx context.Context, req modelclient.Request) (<-chan modelclient.StreamEvent, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages, err := convertItemsToAnthropic(req.Items)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to convert history: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokensOrDefault(req.MaxOutputTokens)),
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.Instructions}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertToolsToAnthropic(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("anthropic: failed to convert tools: %w", err)
		}
		params.Tools = tools
	}

	stream := c.client.Messages.NewStreaming(ctx, params)

	out := make(chan modelclient.StreamEvent)
	go translateAnthropicStream(stream, out)
	return out, nil
}

func maxTokensOrDefault(maxTokens int) int {
	if maxTokens <= 0 {
		return 4096
	}
	return maxTokens
}

// convertItemsToAnthropic maps the session's ResponseItem history onto
// Anthropic message params: messages carry text, function_call items become
// tool_use blocks, and function_call_output items become tool_result blocks.
func convertItemsToAnthropic(items []protocol.ResponseItem) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, item := range items {
		switch item.Kind {
		case protocol.ItemMessage:
			if item.Role == protocol.RoleSystem {
				continue
			}
			var content []anthropic.ContentBlockParamUnion
			for _, part := range item.Content {
				if part.Type == "text" && part.Text != "" {
					content = append(content, anthropic.NewTextBlock(part.Text))
				}
			}
			if len(content) == 0 {
				continue
			}
			if item.Role == protocol.RoleAssistant {
				result = append(result, anthropic.NewAssistantMessage(content...))
			} else {
				result = append(result, anthropic.NewUserMessage(content...))
			}

		case protocol.ItemFunctionCall:
			var input map[string]interface{}
			if item.Arguments != "" {
				if err := json.Unmarshal([]byte(item.Arguments), &input); err != nil {
					return nil, fmt.Errorf("invalid function_call arguments for %s: %w", item.Name, err)
				}
			}
			result = append(result, anthropic.NewAssistantMessage(
				anthropic.NewToolUseBlock(item.CallID, input, item.Name),
			))

		case protocol.ItemFunctionCallOutput:
			isError := item.Success != nil && !*item.Success
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(item.CallID, item.Output, isError),
			))
		}
	}

	return result, nil
}

func convertToolsToAnthropic(tools []modelclient.ToolSchema) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(tool.Parameters) > 0 {
			if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
			}
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, toolParam)
	}
	return result, nil
}
