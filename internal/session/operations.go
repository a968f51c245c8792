package session

import (
	"context"
	"fmt"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// handleUserInput starts one turn: records the submitted items, snapshots
// the current TurnContext, and runs the Turn Driver in the background so
// Submit returns immediately and an Interrupt Operation can cancel it.
// Only one turn may run at a time per session (spec §4.1: "Conversation...
// owned exclusively by a single Turn Driver task"); a UserInput arriving
// while a turn is active is rejected rather than queued.
func (s *Session) handleUserInput(op protocol.Operation) error {
	s.turnMu.Lock()
	if s.active {
		s.turnMu.Unlock()
		return fmt.Errorf("session: a turn is already running for sub_id %q", op.SubID)
	}
	s.active = true
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	s.turnMu.Unlock()

	s.conv.RecordItems(op.Items)
	for _, item := range op.Items {
		s.rollout.WriteItem(item)
	}

	turn := s.snapshotTurnContext()
	s.rollout.WriteTurnContext(turn)

	go func() {
		defer func() {
			s.turnMu.Lock()
			s.active = false
			s.cancelRun = nil
			s.turnMu.Unlock()
		}()
		if err := s.driver.RunTurn(runCtx, turn, op.SubID); err != nil {
			s.logger.Warn("turn ended with error", "sub_id", op.SubID, "error", err)
		}
	}()
	return nil
}

// handleInterrupt cancels the currently running turn, if any.
func (s *Session) handleInterrupt() error {
	s.turnMu.Lock()
	cancel := s.cancelRun
	s.turnMu.Unlock()
	if cancel == nil {
		return fmt.Errorf("session: no turn is running")
	}
	cancel()
	return nil
}

// handleApproveCommand resolves a pending approval prompt with the
// caller's decision. Resolving an unknown or already-resolved request id
// is a no-op (ApprovalChecker.Resolve's own idempotence), so this never
// fails on a stale retransmission.
func (s *Session) handleApproveCommand(op protocol.Operation) error {
	if s.approval == nil {
		return fmt.Errorf("session: approvals are disabled for this session")
	}
	s.approval.Resolve(op.RequestID, op.Decision)
	return nil
}

// handleOverrideTurnContext applies the caller's partial override to the
// recognized-option set, effective starting with the next turn (spec §6:
// "changes approval or sandbox for the next turn").
func (s *Session) handleOverrideTurnContext(op protocol.Operation) error {
	if op.Override == nil {
		return fmt.Errorf("session: OverrideTurnContext requires a non-nil override")
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if op.Override.ApprovalPolicy != nil {
		s.cfg.ApprovalPolicy = *op.Override.ApprovalPolicy
	}
	if op.Override.SandboxMode != nil {
		s.cfg.SandboxMode = *op.Override.SandboxMode
	}
	if op.Override.Cwd != nil {
		s.cfg.Cwd = *op.Override.Cwd
	}
	return nil
}

// handleAddToHistory injects items without running a turn.
func (s *Session) handleAddToHistory(op protocol.Operation) error {
	s.conv.RecordItems(op.Items)
	for _, item := range op.Items {
		s.rollout.WriteItem(item)
	}
	return nil
}
