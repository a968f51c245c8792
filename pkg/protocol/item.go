// Package protocol defines the wire-level data model shared between the
// Conversation, Model Stream Client, Tool Dispatcher, Event Bus, and Runtime
// Projector: response items, events, operations, plans, and rollout records.
package protocol

import "encoding/json"

// ItemKind discriminates a ResponseItem's variant.
type ItemKind string

const (
	ItemMessage            ItemKind = "message"
	ItemReasoning          ItemKind = "reasoning"
	ItemFunctionCall       ItemKind = "function_call"
	ItemFunctionCallOutput ItemKind = "function_call_output"
	ItemLocalShellCall     ItemKind = "local_shell_call"
	ItemCustomToolCall     ItemKind = "custom_tool_call"
	ItemCustomToolOutput   ItemKind = "custom_tool_call_output"
	ItemWebSearchCall      ItemKind = "web_search_call"
	ItemGhostSnapshot      ItemKind = "ghost_snapshot"
	ItemCompaction         ItemKind = "compaction"
	ItemOther              ItemKind = "other"
)

// Role identifies the speaker of a Message item.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPart is one piece of a Message's content array: text, image, or
// other provider-specific content.
type ContentPart struct {
	Type string `json:"type"` // "text" | "image" | ...
	Text string `json:"text,omitempty"`
	// URL or data-URI for image/file content parts.
	Data string `json:"data,omitempty"`
}

// ResponseItem is the tagged-union history entry. Exactly the fields for
// Kind are meaningful; the rest are zero. This mirrors the teacher's
// AgentEvent pattern of a discriminator plus per-kind optional payloads,
// generalized to the conversation history's richer item taxonomy.
type ResponseItem struct {
	Kind ItemKind `json:"kind"`

	// Message
	Role    Role          `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`

	// Reasoning
	ReasoningText string `json:"reasoning_text,omitempty"`

	// FunctionCall
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"` // raw JSON text, parsed lazily

	// FunctionCallOutput / CustomToolCallOutput
	Output      string `json:"output,omitempty"`
	Success     *bool  `json:"success,omitempty"` // nil means "parse error"
	Truncated   bool   `json:"truncated,omitempty"`
	SpillPath   string `json:"spill_path,omitempty"`

	// LocalShellCall
	Command []string `json:"command,omitempty"`

	// WebSearchCall
	Query string `json:"query,omitempty"`

	// GhostSnapshot
	Commit string `json:"commit,omitempty"`

	// Compaction
	Summary string `json:"summary,omitempty"`

	// Other — unrecognized variant preserved for idempotent round-trip.
	RawType string          `json:"raw_type,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// IsSystemMessage reports whether the item is a Message with role "system".
func (r ResponseItem) IsSystemMessage() bool {
	return r.Kind == ItemMessage && r.Role == RoleSystem
}

// TextMessage builds a single-text-part Message item.
func TextMessage(role Role, text string) ResponseItem {
	return ResponseItem{
		Kind:    ItemMessage,
		Role:    role,
		Content: []ContentPart{{Type: "text", Text: text}},
	}
}

// Text concatenates the text content parts of a Message item.
func (r ResponseItem) Text() string {
	var out string
	for _, p := range r.Content {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// FunctionCallOutputItem builds a FunctionCallOutput item. success == nil
// represents the argument "parse error" case from spec §4.3's tie-breaks,
// distinct from a false-but-well-formed failure such as an unknown tool.
func FunctionCallOutputItem(callID, output string, success *bool) ResponseItem {
	return ResponseItem{
		Kind:    ItemFunctionCallOutput,
		CallID:  callID,
		Output:  output,
		Success: success,
	}
}

func boolPtr(b bool) *bool { return &b }

// Success and Failure are convenience constructors for the common
// well-formed-result case.
func Success(callID, output string) ResponseItem {
	return FunctionCallOutputItem(callID, output, boolPtr(true))
}

func Failure(callID, output string) ResponseItem {
	return FunctionCallOutputItem(callID, output, boolPtr(false))
}
