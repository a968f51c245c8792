// Package turndriver implements the Turn Driver (spec §4.3): the turn-loop
// state machine that snapshots history, drives one Model Stream Client
// request per iteration, routes its events onto the Event Bus, dispatches
// any resulting tool calls through the Tool Dispatcher, and repeats until
// the model stops calling tools, the turn is cancelled, or a budget is
// exceeded. Grounded on the teacher's AgenticLoop.Run/streamPhase/
// executeToolsPhase/continuePhase (internal/agent/loop.go), generalized
// from its CompletionMessage/models.ToolCall model to the
// protocol.ResponseItem/modelclient.FunctionCall model.
package turndriver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openagentsinc/agentcore/internal/conversation"
	"github.com/openagentsinc/agentcore/internal/eventbus"
	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// Config bounds a Driver's turn loop, grounded on the teacher's LoopConfig.
type Config struct {
	// MaxIterations caps the number of stream/dispatch round-trips within
	// a single turn. Default: 50.
	MaxIterations int

	// MaxToolCallsPerTurn caps the total number of tool calls dispatched
	// within a single turn (0 = unlimited), mirroring the teacher's
	// MaxToolCalls.
	MaxToolCallsPerTurn int
}

// DefaultConfig returns the Driver defaults.
func DefaultConfig() *Config {
	return &Config{MaxIterations: 50, MaxToolCallsPerTurn: 0}
}

func sanitizeConfig(c *Config) *Config {
	if c == nil {
		return DefaultConfig()
	}
	cfg := *c
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	return &cfg
}

// Driver runs turns for a single session. It owns no conversation state of
// its own — the Conversation passed to New is the single-owner history
// described in spec §4.1 — and is safe to reuse across consecutive turns
// belonging to that session.
type Driver struct {
	conv     *conversation.Conversation
	client   modelclient.Client
	registry *tooldispatch.Registry
	executor *tooldispatch.Executor
	approval *tooldispatch.ApprovalChecker
	bus      *eventbus.Bus
	emit     *eventbus.Emitter
	config   *Config
}

// New builds a Driver wiring the Conversation, a Model Stream Client
// provider, the Tool Dispatcher's registry/executor/approval checker, and
// the Event Bus emitter for one session. A nil approval disables the
// approval gate entirely (every call proceeds straight to dispatch).
func New(conv *conversation.Conversation, client modelclient.Client, registry *tooldispatch.Registry, executor *tooldispatch.Executor, approval *tooldispatch.ApprovalChecker, bus *eventbus.Bus, emit *eventbus.Emitter, config *Config) *Driver {
	return &Driver{
		conv:     conv,
		client:   client,
		registry: registry,
		executor: executor,
		approval: approval,
		bus:      bus,
		emit:     emit,
		config:   sanitizeConfig(config),
	}
}

// RunTurn drives one turn to completion per spec §4.3: build the turn
// context snapshot, emit TaskStarted, then loop streaming from the model
// and dispatching any tool calls it returns until the model stops calling
// tools (Completed), the turn is aborted (ctx cancellation, interrupt, or
// budget), or the iteration cap is hit.
//
// subID groups every Event this turn emits with the Operation that
// started it, per spec §3.
func (d *Driver) RunTurn(ctx context.Context, turn protocol.TurnContext, subID string) error {
	d.publish(ctx, d.emit.TaskStarted(subID))

	state := &turnState{phase: PhaseStreaming}

	for state.iteration < d.config.MaxIterations {
		select {
		case <-ctx.Done():
			d.publish(ctx, d.emit.TurnAborted(subID, "interrupt"))
			return ctx.Err()
		default:
		}

		state.phase = PhaseStreaming
		var err error
		if d.budgetExceeded(turn) {
			err = &budgetExceededError{msg: "token budget exceeded"}
		} else {
			err = d.streamOnce(ctx, turn, subID, state)
		}
		if err != nil {
			if isBudgetExceeded(err) {
				d.publish(ctx, d.emit.TurnAborted(subID, "budget"))
				return err
			}
			if ctx.Err() != nil {
				d.publish(ctx, d.emit.TurnAborted(subID, "interrupt"))
				return ctx.Err()
			}
			d.publish(ctx, d.emit.Error(subID, protocol.ErrorPayload{Message: err.Error()}))
			return err
		}

		if len(state.pending) == 0 {
			d.publish(ctx, d.emit.TaskComplete(subID, state.messageText))
			state.phase = PhaseCompleted
			return nil
		}

		if d.config.MaxToolCallsPerTurn > 0 && state.totalToolCalls+len(state.pending) > d.config.MaxToolCallsPerTurn {
			err := fmt.Errorf("turn exceeds maximum of %d tool calls", d.config.MaxToolCallsPerTurn)
			d.publish(ctx, d.emit.Error(subID, protocol.ErrorPayload{Message: err.Error()}))
			return err
		}
		state.totalToolCalls += len(state.pending)

		state.phase = PhaseDispatching
		outputs, err := d.dispatch(ctx, turn, subID, state.pending)
		if err != nil {
			if ctx.Err() != nil {
				d.publish(ctx, d.emit.TurnAborted(subID, "interrupt"))
				return ctx.Err()
			}
			return err
		}
		d.conv.RecordItems(outputs)
		for _, item := range outputs {
			d.publish(ctx, d.emit.ItemCompleted(subID, item))
		}

		state.pending = nil
		state.messageText = ""
		state.reasoningText = ""
		state.iteration++
	}

	err := fmt.Errorf("turn exceeded maximum of %d iterations", d.config.MaxIterations)
	d.publish(ctx, d.emit.Error(subID, protocol.ErrorPayload{Message: err.Error()}))
	return err
}

// publish fans e out on the Event Bus using a background context rather
// than the turn's own (possibly already-cancelled) context: a cancelled
// or aborted turn must still reliably deliver its TurnAborted/Error
// lifecycle event to subscribers, so event delivery is deliberately
// decoupled from the turn's cancellation.
func (d *Driver) publish(ctx context.Context, e protocol.Event) {
	d.bus.Publish(context.Background(), e)
}

type budgetExceededError struct{ msg string }

func (e *budgetExceededError) Error() string { return e.msg }

func isBudgetExceeded(err error) bool {
	_, ok := err.(*budgetExceededError)
	return ok
}

// buildToolSchemas converts the registry's tool definitions to the
// provider-neutral schemas the Model Stream Client submits alongside
// history.
func buildToolSchemas(registry *tooldispatch.Registry) []modelclient.ToolSchema {
	defs := registry.Definitions()
	schemas := make([]modelclient.ToolSchema, 0, len(defs))
	for _, def := range defs {
		schemas = append(schemas, modelclient.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  json.RawMessage(def.Schema),
		})
	}
	return schemas
}
