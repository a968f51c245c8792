package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// OpenAIClient implements modelclient.Client against OpenAI's chat
// completions streaming API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds an OpenAIClient. An empty APIKey is rejected with
// an error.
func NewOpenAIClient(config OpenAIConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}, nil
}

// Name implements modelclient.Client.
func (c *OpenAIClient) Name() string { return "openai" }

// Complete implements modelclient.Client.
func (c *OpenAIClient) Complete(ctx context.Context, req modelclient.Request) (<-chan modelclient.StreamEvent, error) {
	messages, err := convertItemsToOpenAI(req.Items, req.Instructions)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to convert history: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}
	if req.MaxOutputTokens > 0 {
		chatReq.MaxTokens = req.MaxOutputTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertToolsToOpenAI(req.Tools)
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	out := make(chan modelclient.StreamEvent)
	go translateOpenAIStream(stream, out)
	return out, nil
}

// pendingToolCall accumulates one tool call's streamed argument fragments,
// keyed by its index within the delta, the same way the teacher's
// processStream does.
type pendingToolCall struct {
	id   string
	name string
	args string
}

func translateOpenAIStream(stream *openai.ChatCompletionStream, out chan<- modelclient.StreamEvent) {
	defer close(out)
	defer stream.Close()

	pending := make(map[int]*pendingToolCall)

	flushPending := func() {
		for _, tc := range pending {
			if tc.id == "" || tc.name == "" {
				continue
			}
			out <- modelclient.StreamEvent{
				Type: modelclient.EventFunctionCall,
				Call: &modelclient.FunctionCall{CallID: tc.id, Name: tc.name, Arguments: tc.args},
			}
		}
		pending = make(map[int]*pendingToolCall)
	}

	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				flushPending()
				out <- modelclient.StreamEvent{Type: modelclient.EventCompleted}
				return
			}
			kind, retriable := classifyOpenAIErr(err)
			out <- modelclient.StreamEvent{Type: modelclient.EventError, ErrorKind: kind, ErrorMessage: err.Error(), Retriable: retriable}
			return
		}

		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			out <- modelclient.StreamEvent{Type: modelclient.EventMessageDelta, Delta: delta.Content}
		}
		if delta.ReasoningContent != "" {
			out <- modelclient.StreamEvent{Type: modelclient.EventReasoningDelta, Delta: delta.ReasoningContent}
		}

		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if pending[index] == nil {
				pending[index] = &pendingToolCall{}
			}
			if tc.ID != "" {
				pending[index].id = tc.ID
			}
			if tc.Function.Name != "" {
				pending[index].name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				pending[index].args += tc.Function.Arguments
			}
		}

		if choice.FinishReason == openai.FinishReasonToolCalls {
			flushPending()
		}
	}
}

func classifyOpenAIErr(err error) (modelclient.ErrorKind, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return modelclient.ErrorRateLimit, true
		case apiErr.HTTPStatusCode >= 500:
			return modelclient.ErrorServer, true
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return modelclient.ErrorAuth, false
		case apiErr.HTTPStatusCode >= 400:
			return modelclient.ErrorInvalidRequest, false
		}
	}
	return modelclient.ErrorUnknown, true
}

func convertItemsToOpenAI(items []protocol.ResponseItem, instructions string) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(items)+1)
	if instructions != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: instructions})
	}

	for _, item := range items {
		switch item.Kind {
		case protocol.ItemMessage:
			if item.Role == protocol.RoleSystem {
				continue
			}
			role := openai.ChatMessageRoleUser
			if item.Role == protocol.RoleAssistant {
				role = openai.ChatMessageRoleAssistant
			}
			result = append(result, openai.ChatCompletionMessage{Role: role, Content: item.Text()})

		case protocol.ItemFunctionCall:
			call := openai.ToolCall{
				ID:   item.CallID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			}
			result = append(result, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{call},
			})

		case protocol.ItemFunctionCallOutput:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    item.Output,
				ToolCallID: item.CallID,
			})
		}
	}

	return result, nil
}

func convertToolsToOpenAI(tools []modelclient.ToolSchema) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		var params map[string]interface{}
		if len(tool.Parameters) > 0 {
			_ = json.Unmarshal(tool.Parameters, &params)
		}
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return result
}
