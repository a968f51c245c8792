package protocol

import "time"

// RolloutKind discriminates a RolloutRecord's variant, matching the
// `{"type": "<Kind>", ...}` rollout file format from spec §6.
type RolloutKind string

const (
	RolloutResponseItem RolloutKind = "ResponseItem"
	RolloutEventMsg     RolloutKind = "EventMsg"
	RolloutSessionMeta  RolloutKind = "SessionMeta"
	RolloutTurnContext  RolloutKind = "TurnContext"
	RolloutCompacted    RolloutKind = "Compacted"
)

// SessionMeta is the executive marker written once per session, recording
// its identity and creation time.
type SessionMeta struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CompactedMeta is the executive marker persisted when a Compact operation
// replaces history with a shorter summary.
type CompactedMeta struct {
	Summary      string `json:"summary"`
	ItemsDropped int    `json:"items_dropped"`
}

// RolloutRecord is one line of the on-disk rollout log: a ResponseItem, an
// EventMsg, or an executive marker. Exactly the field matching Type is set.
type RolloutRecord struct {
	Type RolloutKind `json:"type"`
	Time time.Time   `json:"time"`

	Item        *ResponseItem `json:"item,omitempty"`
	Event       *EventMsg     `json:"event,omitempty"`
	SessionMeta *SessionMeta  `json:"session_meta,omitempty"`
	TurnContext *TurnContext  `json:"turn_context,omitempty"`
	Compacted   *CompactedMeta `json:"compacted,omitempty"`
}

// IsPersistedResponseItem implements the is_persisted_response_item filter
// from spec §3/§4.5: user/agent messages, reasoning, tool calls and their
// outputs, web-search, ghost snapshots, compactions are persisted; system
// messages and unrecognized (Other) items are not.
func IsPersistedResponseItem(item ResponseItem) bool {
	if item.IsSystemMessage() {
		return false
	}
	return item.Kind != ItemOther
}
