// Package conversation implements the append-only Response Item history
// described in spec §4.1: record, replace, and snapshot, with the
// is_api_message filter that decides what is ever sent back to the model.
package conversation

import (
	"encoding/json"
	"sync"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// Conversation is an ordered sequence of Response Items. It is owned
// exclusively by a single Turn Driver task per spec §5 ("History mutation
// is single-owner... no locking required"); the mutex here exists only to
// guard the rare cross-goroutine read (e.g. a concurrent rollout replay or
// debug inspector), not because concurrent writers are expected.
type Conversation struct {
	mu    sync.RWMutex
	items []protocol.ResponseItem
}

// New creates an empty Conversation.
func New() *Conversation {
	return &Conversation{}
}

// isAPIMessage reports whether an item is retained in API-submitted
// history. Grounded verbatim on conversation_history.rs's is_api_message:
// a Message is dropped only when its role is "system"; Other is always
// dropped; every other variant (Reasoning, FunctionCall,
// FunctionCallOutput, LocalShellCall, CustomToolCall*, WebSearchCall,
// GhostSnapshot, Compaction) is retained.
func isAPIMessage(item protocol.ResponseItem) bool {
	if item.Kind == protocol.ItemMessage {
		return item.Role != protocol.RoleSystem
	}
	return item.Kind != protocol.ItemOther
}

// RecordItems appends items in order, silently dropping any item that is a
// system message or Other. All other variants are retained. Never mutates
// prior items; performs no deduplication.
func (c *Conversation) RecordItems(items []protocol.ResponseItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		if !isAPIMessage(item) {
			continue
		}
		c.items = append(c.items, item)
	}
}

// Replace atomically swaps the entire history, used after compaction.
func (c *Conversation) Replace(items []protocol.ResponseItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]protocol.ResponseItem(nil), items...)
}

// Contents returns a snapshot clone of the history for model submission.
func (c *Conversation) Contents() []protocol.ResponseItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.ResponseItem, len(c.items))
	copy(out, c.items)
	for i := range out {
		out[i].Content = append([]protocol.ContentPart(nil), out[i].Content...)
		out[i].Command = append([]string(nil), out[i].Command...)
		out[i].Raw = append(json.RawMessage(nil), out[i].Raw...)
	}
	return out
}

// Len reports the number of retained history items.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Last returns the most recently recorded item, if any.
func (c *Conversation) Last() (protocol.ResponseItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 {
		return protocol.ResponseItem{}, false
	}
	return c.items[len(c.items)-1], true
}

// FindCall finds the FunctionCall item with the given call_id using a
// linear scan, per spec §9 ("resolve by linear scan or a small side-index;
// do not represent as a graph").
func (c *Conversation) FindCall(callID string) (protocol.ResponseItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.Kind == protocol.ItemFunctionCall && item.CallID == callID {
			return item, true
		}
	}
	return protocol.ResponseItem{}, false
}
