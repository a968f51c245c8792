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

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestOpenAIClient_Complete_TextDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		chunks := []string{
			`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hello"}}]}`,
			`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":" world"}}]}`,
			`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	events, err := client.Complete(context.Background(), modelclient.Request{
		Model: "gpt-4o",
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
