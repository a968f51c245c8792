package providers

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

func TestConvertItemsToBedrock_Message(t *testing.T) {
	items := []protocol.ResponseItem{protocol.TextMessage(protocol.RoleUser, "hello")}
	messages, err := convertItemsToBedrock(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != types.ConversationRoleUser {
		t.Fatalf("unexpected messages: %+v", messages)
	}
}

func TestConvertItemsToBedrock_InvalidFunctionCallArguments(t *testing.T) {
	items := []protocol.ResponseItem{{
		Kind:      protocol.ItemFunctionCall,
		CallID:    "call_1",
		Name:      "search",
		Arguments: "not json",
	}}
	if _, err := convertItemsToBedrock(items); err == nil {
		t.Fatal("expected error for malformed arguments")
	}
}
