package conversation

import "github.com/openagentsinc/agentcore/pkg/protocol"

// Compact replaces the history with [SystemSummary, Compaction{...}] per
// spec §9, and returns the Compaction marker for rollout persistence.
func (c *Conversation) Compact(summary string) protocol.ResponseItem {
	marker := protocol.ResponseItem{Kind: protocol.ItemCompaction, Summary: summary}
	c.Replace([]protocol.ResponseItem{
		protocol.TextMessage(protocol.RoleSystem, summary),
		marker,
	})
	return marker
}

// GhostSnapshot records a restorable workspace state. On a git-backed
// workspace it carries the given commit hash; on a non-git workspace it
// persists a no-op placeholder (empty Commit) rather than fabricating one,
// per spec §9's Open Question resolution.
func GhostSnapshot(turn protocol.TurnContext, commit string) protocol.ResponseItem {
	if !turn.GitBacked {
		return protocol.ResponseItem{Kind: protocol.ItemGhostSnapshot, Commit: ""}
	}
	return protocol.ResponseItem{Kind: protocol.ItemGhostSnapshot, Commit: commit}
}
