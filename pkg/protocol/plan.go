package protocol

import (
	"encoding/json"
	"fmt"
)

// PlanStepStatus is the status of one plan step.
type PlanStepStatus string

const (
	PlanPending    PlanStepStatus = "pending"
	PlanInProgress PlanStepStatus = "in_progress"
	PlanCompleted  PlanStepStatus = "completed"
)

// PlanStep is one entry of an update_plan call.
type PlanStep struct {
	Step   string         `json:"step"`
	Status PlanStepStatus `json:"status"`
}

// updatePlanArgs mirrors the exact argument shape of the update_plan tool:
// {explanation?, plan:[{step,status}]}, grounded on
// codex-rs/core/src/plan_tool.rs's UpdatePlanArgs.
type updatePlanArgs struct {
	Explanation string     `json:"explanation,omitempty"`
	Plan        []PlanStep `json:"plan"`
}

// ParseUpdatePlanArguments parses and validates an update_plan call's raw
// JSON arguments. It enforces the at-most-one-in_progress invariant at
// parse time: a malformed plan is a parse error, not a runtime failure,
// matching plan_tool.rs's parse_update_plan_arguments.
func ParseUpdatePlanArguments(raw string) (string, []PlanStep, error) {
	var args updatePlanArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return "", nil, fmt.Errorf("failed to parse function arguments: %w", err)
	}
	inProgress := 0
	for _, step := range args.Plan {
		switch step.Status {
		case PlanPending, PlanInProgress, PlanCompleted:
		default:
			return "", nil, fmt.Errorf("failed to parse function arguments: invalid step status %q", step.Status)
		}
		if step.Status == PlanInProgress {
			inProgress++
		}
	}
	if inProgress > 1 {
		return "", nil, fmt.Errorf("failed to parse function arguments: at most one step may be in_progress, got %d", inProgress)
	}
	return args.Explanation, args.Plan, nil
}

// PlanUpdatedContent is the literal success content returned by update_plan,
// grounded verbatim on plan_tool.rs's handle_update_plan.
const PlanUpdatedContent = "Plan updated"
