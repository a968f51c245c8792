package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// BedrockConfig configures a BedrockClient.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
}

// BedrockClient implements modelclient.Client against AWS Bedrock's
// ConverseStream API.
type BedrockClient struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// NewBedrockClient builds a BedrockClient, resolving credentials the same way
// the teacher's provider does: explicit static credentials if given,
// otherwise the default AWS credential chain.
func NewBedrockClient(ctx context.Context, cfg BedrockConfig) (*BedrockClient, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var optFns []func(*awsconfig.LoadOptions) error
	optFns = append(optFns, awsconfig.WithRegion(region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}

	return &BedrockClient{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: defaultModel,
	}, nil
}

// Name implements modelclient.Client.
func (c *BedrockClient) Name() string { return "bedrock" }

// Complete implements modelclient.Client.
func (c *BedrockClient) Complete(ctx context.Context, req modelclient.Request) (<-chan modelclient.StreamEvent, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages, err := convertItemsToBedrock(req.Items)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to convert history: %w", err)
	}

	converseReq := &bedrockruntime.ConverseStreamInput{
		ModelId:  awssdk.String(model),
		Messages: messages,
	}
	if req.Instructions != "" {
		converseReq.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.Instructions},
		}
	}
	if req.MaxOutputTokens > 0 {
		converseReq.InferenceConfig = &types.InferenceConfiguration{
			MaxTokens: awssdk.Int32(int32(req.MaxOutputTokens)),
		}
	}
	if len(req.Tools) > 0 {
		converseReq.ToolConfig = convertToolsToBedrock(req.Tools)
	}

	resp, err := c.client.ConverseStream(ctx, converseReq)
	if err != nil {
		return nil, err
	}

	out := make(chan modelclient.StreamEvent)
	go translateBedrockStream(resp, out)
	return out, nil
}

func translateBedrockStream(resp *bedrockruntime.ConverseStreamOutput, out chan<- modelclient.StreamEvent) {
	defer close(out)

	eventStream := resp.GetStream()
	defer eventStream.Close()

	var currentCallID, currentCallName string
	var currentInput json.RawMessage
	var inputBuilder []byte
	inToolUse := false

	eventChan := eventStream.Events()
	for event := range eventChan {
		switch ev := event.(type) {
		case *types.ConverseStreamOutputMemberContentBlockStart:
			if toolUse, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
				currentCallID = awssdk.ToString(toolUse.Value.ToolUseId)
				currentCallName = awssdk.ToString(toolUse.Value.Name)
				inputBuilder = inputBuilder[:0]
				inToolUse = true
			}

		case *types.ConverseStreamOutputMemberContentBlockDelta:
			switch delta := ev.Value.Delta.(type) {
			case *types.ContentBlockDeltaMemberText:
				if delta.Value != "" {
					out <- modelclient.StreamEvent{Type: modelclient.EventMessageDelta, Delta: delta.Value}
				}
			case *types.ContentBlockDeltaMemberToolUse:
				if delta.Value.Input != nil {
					inputBuilder = append(inputBuilder, *delta.Value.Input...)
				}
			}

		case *types.ConverseStreamOutputMemberContentBlockStop:
			if inToolUse {
				currentInput = json.RawMessage(inputBuilder)
				if len(currentInput) == 0 {
					currentInput = json.RawMessage("{}")
				}
				out <- modelclient.StreamEvent{
					Type: modelclient.EventFunctionCall,
					Call: &modelclient.FunctionCall{CallID: currentCallID, Name: currentCallName, Arguments: string(currentInput)},
				}
				inToolUse = false
			}

		case *types.ConverseStreamOutputMemberMessageStop:
			out <- modelclient.StreamEvent{Type: modelclient.EventCompleted}
			return
		}
	}

	if err := eventStream.Err(); err != nil {
		kind, retriable := classifyBedrockErr(err)
		out <- modelclient.StreamEvent{Type: modelclient.EventError, ErrorKind: kind, ErrorMessage: err.Error(), Retriable: retriable}
	}
	// Channel closed with no MessageStop: incomplete_stream, left for the
	// retry layer to detect via the closed-without-Completed channel.
}

func classifyBedrockErr(err error) (modelclient.ErrorKind, bool) {
	var throttled *types.ThrottlingException
	if errors.As(err, &throttled) {
		return modelclient.ErrorRateLimit, true
	}
	var serviceErr *types.InternalServerException
	if errors.As(err, &serviceErr) {
		return modelclient.ErrorServer, true
	}
	var validationErr *types.ValidationException
	if errors.As(err, &validationErr) {
		return modelclient.ErrorInvalidRequest, false
	}
	return modelclient.ErrorUnknown, true
}

func convertItemsToBedrock(items []protocol.ResponseItem) ([]types.Message, error) {
	var result []types.Message

	for _, item := range items {
		switch item.Kind {
		case protocol.ItemMessage:
			if item.Role == protocol.RoleSystem {
				continue
			}
			role := types.ConversationRoleUser
			if item.Role == protocol.RoleAssistant {
				role = types.ConversationRoleAssistant
			}
			result = append(result, types.Message{
				Role:    role,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: item.Text()}},
			})

		case protocol.ItemFunctionCall:
			var input map[string]interface{}
			if item.Arguments != "" {
				if err := json.Unmarshal([]byte(item.Arguments), &input); err != nil {
					return nil, fmt.Errorf("invalid function_call arguments for %s: %w", item.Name, err)
				}
			}
			doc := bedrockDocument(input)
			result = append(result, types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: awssdk.String(item.CallID),
					Name:      awssdk.String(item.Name),
					Input:     doc,
				}}},
			})

		case protocol.ItemFunctionCallOutput:
			status := types.ToolResultStatusSuccess
			if item.Success != nil && !*item.Success {
				status = types.ToolResultStatusError
			}
			result = append(result, types.Message{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
					ToolUseId: awssdk.String(item.CallID),
					Status:    status,
					Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: item.Output}},
				}}},
			})
		}
	}

	return result, nil
}

// bedrockDocument wraps an arbitrary JSON-shaped value as the
// document.Interface Bedrock's Converse API expects for tool I/O.
func bedrockDocument(v interface{}) document.Interface {
	if v == nil {
		v = map[string]interface{}{}
	}
	return document.NewLazyDocument(v)
}

func convertToolsToBedrock(tools []modelclient.ToolSchema) *types.ToolConfiguration {
	cfg := &types.ToolConfiguration{}
	for _, tool := range tools {
		var input map[string]interface{}
		if len(tool.Parameters) > 0 {
			_ = json.Unmarshal(tool.Parameters, &input)
		}
		cfg.Tools = append(cfg.Tools, &types.ToolMemberToolSpec{Value: types.ToolSpecification{
			Name:        awssdk.String(tool.Name),
			Description: awssdk.String(tool.Description),
			InputSchema: &types.ToolInputSchemaMemberJson{Value: bedrockDocument(input)},
		}})
	}
	return cfg
}
