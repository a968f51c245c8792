package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
}

// GeminiClient implements modelclient.Client against Google's Gemini API via
// the genai SDK's streaming iterator.
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiClient builds a GeminiClient.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}

	return &GeminiClient{client: client, defaultModel: defaultModel}, nil
}

// Name implements modelclient.Client.
func (c *GeminiClient) Name() string { return "gemini" }

// Complete implements modelclient.Client.
func (c *GeminiClient) Complete(ctx context.Context, req modelclient.Request) (<-chan modelclient.StreamEvent, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	contents, err := convertItemsToGemini(req.Items)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to convert history: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if req.Instructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.Instructions}}}
	}
	if len(req.Tools) > 0 {
		config.Tools = convertToolsToGemini(req.Tools)
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	streamIter := c.client.Models.GenerateContentStream(ctx, model, contents, config)

	out := make(chan modelclient.StreamEvent)
	go translateGeminiStream(ctx, streamIter, out)
	return out, nil
}

func translateGeminiStream(ctx context.Context, streamIter iter.Seq2[*genai.GenerateContentResponse, error], out chan<- modelclient.StreamEvent) {
	defer close(out)

	for resp, err := range streamIter {
		select {
		case <-ctx.Done():
			out <- modelclient.StreamEvent{Type: modelclient.EventError, ErrorKind: modelclient.ErrorTimeout, ErrorMessage: ctx.Err().Error(), Retriable: true}
			return
		default:
		}

		if err != nil {
			kind, retriable := classifyGeminiErr(err)
			out <- modelclient.StreamEvent{Type: modelclient.EventError, ErrorKind: kind, ErrorMessage: err.Error(), Retriable: retriable}
			return
		}
		if resp == nil {
			continue
		}

		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				if part.Text != "" {
					out <- modelclient.StreamEvent{Type: modelclient.EventMessageDelta, Delta: part.Text}
				}
				if part.FunctionCall != nil {
					argsJSON, jsonErr := json.Marshal(part.FunctionCall.Args)
					if jsonErr != nil {
						argsJSON = []byte("{}")
					}
					out <- modelclient.StreamEvent{
						Type: modelclient.EventFunctionCall,
						Call: &modelclient.FunctionCall{
							CallID:    part.FunctionCall.Name,
							Name:      part.FunctionCall.Name,
							Arguments: string(argsJSON),
						},
					}
				}
			}
		}
	}

	out <- modelclient.StreamEvent{Type: modelclient.EventCompleted}
}

// classifyGeminiErr mirrors the teacher's string-based classification: the
// genai SDK doesn't expose a typed API error the way the Anthropic/OpenAI
// SDKs do, so status is sniffed from the error text.
func classifyGeminiErr(err error) (modelclient.ErrorKind, bool) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "quota"):
		return modelclient.ErrorRateLimit, true
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return modelclient.ErrorServer, true
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return modelclient.ErrorTimeout, true
	case strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return modelclient.ErrorTimeout, true
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return modelclient.ErrorAuth, false
	default:
		return modelclient.ErrorUnknown, false
	}
}

func convertItemsToGemini(items []protocol.ResponseItem) ([]*genai.Content, error) {
	var result []*genai.Content

	for _, item := range items {
		switch item.Kind {
		case protocol.ItemMessage:
			if item.Role == protocol.RoleSystem {
				continue
			}
			role := genai.RoleUser
			if item.Role == protocol.RoleAssistant {
				role = genai.RoleModel
			}
			result = append(result, &genai.Content{
				Role:  role,
				Parts: []*genai.Part{{Text: item.Text()}},
			})

		case protocol.ItemFunctionCall:
			var args map[string]interface{}
			if item.Arguments != "" {
				if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
					return nil, fmt.Errorf("invalid function_call arguments for %s: %w", item.Name, err)
				}
			}
			result = append(result, &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{
					Name: item.Name,
					Args: args,
				}}},
			})

		case protocol.ItemFunctionCallOutput:
			result = append(result, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					Name:     item.Name,
					Response: map[string]interface{}{"output": item.Output},
				}}},
			})
		}
	}

	return result, nil
}

func convertToolsToGemini(tools []modelclient.ToolSchema) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schema *genai.Schema
		if len(tool.Parameters) > 0 {
			_ = json.Unmarshal(tool.Parameters, &schema)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
