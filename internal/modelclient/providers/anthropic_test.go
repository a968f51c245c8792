package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestNewAnthropicClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewAnthropicClient(AnthropicConfig{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewAnthropicClient_DefaultsModel(t *testing.T) {
	c, err := NewAnthropicClient(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.defaultModel != "claude-sonnet-4-20250514" {
		t.Fatalf("unexpected default model: %s", c.defaultModel)
	}
	if c.Name() != "anthropic" {
		t.Fatalf("unexpected name: %s", c.Name())
	}
}

// writeSSE streams the given raw event/data lines, one per call, flushing
// after each so the client sees them incrementally.
func writeSSE(w http.ResponseWriter, lines []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		fmt.Fprintln(w, line)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func TestAnthropicClient_Complete_TextDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "messages") {
			t.Errorf("expected a messages endpoint, got %s", r.URL.Path)
		}
		writeSSE(w, []string{
			`event: message_start`,
			`data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","usage":{"input_tokens":5}}}`,
			``,
			`event: content_block_start`,
			`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			``,
			`event: content_block_delta`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
			``,
			`event: content_block_delta`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`,
			``,
			`event: content_block_stop`,
			`data: {"type":"content_block_stop","index":0}`,
			``,
			`event: message_delta`,
			`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`,
			``,
			`event: message_stop`,
			`data: {"type":"message_stop"}`,
			``,
		})
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	events, err := client.Complete(context.Background(), modelclient.Request{
		Items: []protocol.ResponseItem{protocol.TextMessage(protocol.RoleUser, "hi")},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	var deltas []string
	var sawCompleted bool
	for ev := range events {
		switch ev.Type {
		case modelclient.EventMessageDelta:
			deltas = append(deltas, ev.Delta)
		case modelclient.EventCompleted:
			sawCompleted = true
		case modelclient.EventError:
			t.Fatalf("unexpected error event: %s", ev.ErrorMessage)
		}
	}

	if got := strings.Join(deltas, ""); got != "Hello world" {
		t.Fatalf("expected concatenated deltas %q, got %q", "Hello world", got)
	}
	if !sawCompleted {
		t.Fatal("expected a Completed event")
	}
}
