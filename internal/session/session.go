// Package session wires the Conversation, Model Stream Client, Tool
// Dispatcher, Event Bus & Rollout, Turn Driver, and Runtime Projector into
// the single per-conversation unit spec §6 describes: it accepts
// Operations from a caller and emits Events, owning exactly one
// Conversation, one outbound event channel, and one rollout writer.
// Grounded on the teacher's AgenticRuntime wrapper (internal/agent/loop.go)
// for the "one struct fronting the turn loop" shape, and on Runtime's
// session-lock/shutdown handling (internal/agent/runtime.go) for
// single-writer turn serialization and graceful teardown.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/openagentsinc/agentcore/internal/config"
	"github.com/openagentsinc/agentcore/internal/conversation"
	"github.com/openagentsinc/agentcore/internal/eventbus"
	"github.com/openagentsinc/agentcore/internal/modelclient"
	"github.com/openagentsinc/agentcore/internal/projector"
	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/internal/turndriver"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// Deps are the externally-constructed collaborators a Session wires
// together. Client is required; a nil Config uses config.Default(). Registry, Executor, and
// Projector default to a sensible built-in (a registry populated with the
// built-in tool set, a fresh Executor over it, and an in-memory
// projector); Approval defaults to nil, which disables the approval gate
// entirely regardless of the configured approval_policy — callers that
// want approvals enforced must pass a *tooldispatch.ApprovalChecker.
type Deps struct {
	Home      string
	Config    *config.Config
	Client    modelclient.Client
	Registry  *tooldispatch.Registry
	Executor  *tooldispatch.Executor
	Approval  *tooldispatch.ApprovalChecker
	Projector projector.Pipeline
	Logger    *slog.Logger
}

// Session is the top-level per-conversation runtime unit.
type Session struct {
	id   string
	home string

	cfgMu sync.RWMutex
	cfg   *config.Config

	conv     *conversation.Conversation
	registry *tooldispatch.Registry
	executor *tooldispatch.Executor
	approval *tooldispatch.ApprovalChecker
	bus      *eventbus.Bus
	emit     *eventbus.Emitter
	rollout  *eventbus.RolloutWriter
	driver   *turndriver.Driver
	client   modelclient.Client
	proj     projector.Pipeline
	runID    uuid.UUID

	logger *slog.Logger

	janitor     *Janitor
	unsubscribe func()

	turnMu    sync.Mutex
	active    bool
	cancelRun context.CancelFunc

	shutdownOnce sync.Once
}

// New constructs a Session identified by id (a fresh uuid is generated if
// id is empty), wiring deps into a Conversation, Tool Dispatcher, Event
// Bus, rollout writer, Turn Driver, and Runtime Projector, and starts the
// background event bridge and maintenance janitor.
func New(id string, deps Deps) (*Session, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("session: Client is required")
	}
	if id == "" {
		id = uuid.NewString()
	}
	runID, err := uuid.Parse(id)
	if err != nil {
		// A caller-supplied id need not be a UUID; derive a stable one for
		// the projector's run-keyed checkpoint map.
		runID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", id)

	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	registry := deps.Registry
	executor := deps.Executor
	if registry == nil {
		registry = defaultRegistry(logger)
		executor = tooldispatch.NewExecutor(registry, nil)
	} else if executor == nil {
		executor = tooldispatch.NewExecutor(registry, nil)
	}

	proj := deps.Projector
	if proj == nil {
		proj = projector.NewInMemoryPipeline(logger)
	}

	home := deps.Home
	if home == "" {
		home = defaultHome()
	}

	rollout, err := eventbus.NewRolloutWriter(eventbus.RolloutPath(home, id), id, logger)
	if err != nil {
		return nil, fmt.Errorf("session: create rollout writer: %w", err)
	}

	conv := conversation.New()
	bus := eventbus.NewBus()
	emit := eventbus.NewEmitter(id)
	driver := turndriver.New(conv, deps.Client, registry, executor, deps.Approval, bus, emit, nil)

	s := &Session{
		id:       id,
		home:     home,
		cfg:      cfg,
		conv:     conv,
		registry: registry,
		executor: executor,
		approval: deps.Approval,
		bus:      bus,
		emit:     emit,
		rollout:  rollout,
		driver:   driver,
		client:   deps.Client,
		proj:     proj,
		runID:    runID,
		logger:   logger,
	}

	events, unsubscribe := bus.Subscribe()
	s.unsubscribe = unsubscribe
	go s.bridgeEvents(events)

	s.janitor = NewJanitor(s, "", logger)
	s.janitor.Start()

	s.bus.Publish(context.Background(), s.emit.SessionConfigured(""))
	return s, nil
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Events returns a fresh subscription to this session's Event Bus, plus an
// unsubscribe function, letting a caller observe every Event emitted from
// this point on (spec §6: "Events (session → caller)").
func (s *Session) Events() (<-chan protocol.Event, func()) {
	return s.bus.Subscribe()
}

// Submit routes one caller Operation to its handler, per spec §6's
// operation taxonomy.
func (s *Session) Submit(ctx context.Context, op protocol.Operation) error {
	switch op.Type {
	case protocol.OpUserInput:
		return s.handleUserInput(op)
	case protocol.OpInterrupt:
		return s.handleInterrupt()
	case protocol.OpApproveCommand:
		return s.handleApproveCommand(op)
	case protocol.OpCompact:
		return s.handleCompact(ctx, op)
	case protocol.OpOverrideTurnContext:
		return s.handleOverrideTurnContext(op)
	case protocol.OpAddToHistory:
		return s.handleAddToHistory(op)
	case protocol.OpShutdown:
		return s.Shutdown(ctx)
	default:
		return fmt.Errorf("session: unrecognized operation type %q", op.Type)
	}
}

// Shutdown gracefully tears the session down: cancels any running turn,
// stops the janitor, unsubscribes the event bridge, and flushes/fsyncs
// the rollout writer before closing it (spec §6: "gracefully closes the
// session; final events fsynced"). Idempotent — a second call is a no-op.
func (s *Session) Shutdown(_ context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		_ = s.handleInterrupt()
		if s.janitor != nil {
			s.janitor.Stop()
		}
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		shutdownErr = s.rollout.Shutdown()
	})
	return shutdownErr
}

// snapshotTurnContext projects the current recognized-option set onto an
// immutable TurnContext for the next turn.
func (s *Session) snapshotTurnContext() protocol.TurnContext {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.ToTurnContext()
}

// bridgeEvents fans every Bus event to the rollout writer (persisted kinds
// only, per RolloutWriter.WriteEvent's own filter) and into the Runtime
// Projector as a RunEvent, keyed by this session's run id. This is the
// piece of plumbing spec §4.6 assumes exists upstream of the projector:
// something turns session Events into the RunEvent stream the projector
// consumes.
func (s *Session) bridgeEvents(events <-chan protocol.Event) {
	for e := range events {
		s.rollout.WriteEvent(e.Msg)

		payload, err := json.Marshal(e.Msg)
		if err != nil {
			s.logger.Warn("marshal event for projector failed", "error", err)
			continue
		}
		runEvent := projector.RunEvent{
			Seq:        e.Seq,
			EventType:  string(e.Msg.Type),
			Payload:    payload,
			RecordedAt: e.Time,
		}
		if err := s.proj.ApplyRunEvent(context.Background(), s.runID, runEvent); err != nil {
			s.logger.Warn("apply run event failed", "error", err)
		}
	}
}
