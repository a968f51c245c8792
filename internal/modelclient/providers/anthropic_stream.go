package providers

import (
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/openagentsinc/agentcore/internal/modelclient"
)

// maxEmptyStreamEvents bounds how many consecutive events we'll process
// without producing output before treating the stream as malformed.
const maxEmptyStreamEvents = 300

// translateAnthropicStream consumes one Anthropic SSE stream and emits the
// provider-neutral modelclient.StreamEvent sequence spec §4.2 defines. It
// closes out once a terminal event (Completed or Error) has been sent.
//
// Anthropic interleaves tool_use content blocks with text blocks in emission
// order, so a FunctionCall event is only emitted once its content_block_stop
// arrives with the accumulated input JSON.
func translateAnthropicStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], out chan<- modelclient.StreamEvent) {
	defer close(out)

	var currentCallID, currentCallName string
	var currentInput strings.Builder
	inToolUse := false

	emptyCount := 0

	for stream.Next() {
		event := stream.Current()
		produced := false

		switch event.Type {
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				toolUse := block.AsToolUse()
				currentCallID = toolUse.ID
				currentCallName = toolUse.Name
				currentInput.Reset()
				inToolUse = true
				produced = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					out <- modelclient.StreamEvent{Type: modelclient.EventMessageDelta, Delta: delta.Text}
					produced = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					out <- modelclient.StreamEvent{Type: modelclient.EventReasoningDelta, Delta: delta.Thinking}
					produced = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					currentInput.WriteString(delta.PartialJSON)
					produced = true
				}
			}

		case "content_block_stop":
			if inToolUse {
				out <- modelclient.StreamEvent{
					Type: modelclient.EventFunctionCall,
					Call: &modelclient.FunctionCall{
						CallID:    currentCallID,
						Name:      currentCallName,
						Arguments: normalizeToolArguments(currentInput.String()),
					},
				}
				inToolUse = false
				produced = true
			}

		case "message_delta":
			// Usage/stop-reason deltas carry no content this layer forwards.
			produced = true

		case "message_stop":
			out <- modelclient.StreamEvent{Type: modelclient.EventCompleted}
			return

		case "error":
			out <- modelclient.StreamEvent{
				Type:         modelclient.EventError,
				ErrorKind:    modelclient.ErrorServer,
				ErrorMessage: "anthropic stream error",
				Retriable:    true,
			}
			return
		}

		if produced {
			emptyCount = 0
		} else {
			emptyCount++
			if emptyCount >= maxEmptyStreamEvents {
				out <- modelclient.StreamEvent{
					Type:         modelclient.EventError,
					ErrorKind:    modelclient.ErrorUnknown,
					ErrorMessage: "anthropic: stream appears malformed: too many empty events",
					Retriable:    false,
				}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		kind, retriable := classifyAnthropicErr(err)
		out <- modelclient.StreamEvent{Type: modelclient.EventError, ErrorKind: kind, ErrorMessage: err.Error(), Retriable: retriable}
		return
	}

	// EOF with no message_stop: the spec's incomplete_stream condition. Leave
	// it to the retry layer by simply not emitting Completed; the channel
	// close alone signals this to modelclient.Stream.drain.
}

// normalizeToolArguments ensures empty accumulated input still produces
// valid JSON ("{}"), since some tool calls take no arguments.
func normalizeToolArguments(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "{}"
	}
	return raw
}

func classifyAnthropicErr(err error) (modelclient.ErrorKind, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return modelclient.ErrorRateLimit, true
		case apiErr.StatusCode >= 500:
			return modelclient.ErrorServer, true
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return modelclient.ErrorAuth, false
		case apiErr.StatusCode >= 400:
			return modelclient.ErrorInvalidRequest, false
		}
	}
	return modelclient.ErrorUnknown, true
}
