package turndriver

import "github.com/openagentsinc/agentcore/pkg/protocol"

// charsPerToken approximates token count from character count. Providers
// disagree on exact tokenization and the Model Stream Client's StreamEvent
// contract carries no per-request usage figure, so the Turn Driver uses
// this rough heuristic to decide when a turn has run over its configured
// token_budget (spec §9 Open Question: "token budget enforcement may be
// approximate"), rather than leaving the budget invariant unenforced.
const charsPerToken = 4

// budgetExceeded reports whether the conversation's current snapshot
// already exceeds turn.TokenBudget. A zero budget means "no limit".
func (d *Driver) budgetExceeded(turn protocol.TurnContext) bool {
	if turn.TokenBudget <= 0 {
		return false
	}
	var chars int
	for _, item := range d.conv.Contents() {
		chars += len(item.Text()) + len(item.Arguments) + len(item.Output) + len(item.ReasoningText)
	}
	return chars/charsPerToken > turn.TokenBudget
}
