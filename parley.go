// Package parley is a node-based dialogue orchestration engine for
// conversational agents. A flow is a graph of nodes, each exposing a
// prompt and a set of callable functions; the engine owns session state,
// dispatches the model's function calls, tracks failures against a
// configurable escalation policy, and survives interruption through
// resumable stable points.
package parley

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/runtime"
	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/observability"
	"github.com/parleyhq/parley/pkg/ports"
	"github.com/parleyhq/parley/pkg/registry"
	"github.com/parleyhq/parley/pkg/session"
)

// Engine is the high-level entry point. It wraps the internal turn
// runtime with session management, input sanitization and transactional
// persistence.
type Engine struct {
	runtime  *runtime.Engine
	registry *registry.Registry
	sessions *session.Manager
	entry    string

	recorder ports.Recorder
	metrics  *observability.Metrics
	logger   *slog.Logger

	store       ports.StateStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	policy      domain.FailurePolicy
	maxInput    int
	runtimeOpts []runtime.Option
}

// Option configures the Engine.
type Option func(*Engine)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithLocker enables distributed session locking for multi-instance
// deployments sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// WithLockTTL overrides the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.lockTTL = ttl }
}

// WithLogger sets a structured logger for the engine and its internals.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxInputSize overrides the per-utterance input byte limit.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxInput = n
		}
	}
}

// WithFailurePolicy replaces the default escalation thresholds.
func WithFailurePolicy(p domain.FailurePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithRecorder sets the escalation and teardown collaborator.
func WithRecorder(r ports.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithMetrics registers Prometheus collectors for the engine.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithEntryNode sets the node new sessions start on. Default "greeting".
func WithEntryNode(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.entry = name
		}
	}
}

// WithEscalationNode sets the node forced on threshold escalations.
func WithEscalationNode(name string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEscalationNode(name))
	}
}

// WithRecoveryNode sets the node forced on consistency violations.
func WithRecoveryNode(name string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRecoveryNode(name))
	}
}

// DefaultEntryNode is where new sessions begin unless configured.
const DefaultEntryNode = "greeting"

// New builds an Engine over a node registry and a model. It fails fast on
// wiring defects: missing entry, escalation or recovery nodes, and
// invalid failure policies are construction errors, not runtime
// surprises.
func New(reg *registry.Registry, model ports.Model, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}

	e := &Engine{
		registry: reg,
		entry:    DefaultEntryNode,
		recorder: ports.NopRecorder{},
		metrics:  observability.NewNop(),
		logger:   logging.NewNop(),
		policy:   domain.DefaultFailurePolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.policy.Validate(); err != nil {
		return nil, fmt.Errorf("failure policy: %w", err)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	rtOpts := append([]runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithFailurePolicy(e.policy),
		runtime.WithRecorder(e.recorder),
		runtime.WithMetrics(e.metrics),
	}, e.runtimeOpts...)
	e.runtime = runtime.NewEngine(reg, model, rtOpts...)

	for _, required := range []string{e.entry, e.runtime.EscalationNode(), e.runtime.RecoveryNode()} {
		if !reg.HasNode(required) {
			return nil, fmt.Errorf("%w: %q must be registered before the engine starts", domain.ErrUnknownNode, required)
		}
	}

	sessOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(e.locker))
	}
	if e.lockTTL > 0 {
		sessOpts = append(sessOpts, session.WithLockTTL(e.lockTTL))
	}
	e.sessions = session.NewManager(e.store, sessOpts...)

	return e, nil
}

// Sessions exposes the session manager, mostly for transports that need
// List or raw Load access.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// EntryNode returns the configured entry node name.
func (e *Engine) EntryNode() string { return e.entry }

// StartSession creates a session on the entry node, applies the seed
// values and persists it. Seed keys under the engine's reserved prefix
// are rejected.
func (e *Engine) StartSession(ctx context.Context, seed map[string]any) (*domain.State, error) {
	id := uuid.NewString()
	state := domain.NewState(id, e.entry)
	for k, v := range seed {
		if err := state.Set(k, v); err != nil {
			return nil, fmt.Errorf("seeding session: %w", err)
		}
	}

	if err := e.sessions.Save(ctx, id, state); err != nil {
		return nil, fmt.Errorf("persisting new session: %w", err)
	}
	e.metrics.ActiveSessions.Inc()
	e.logger.Info("session started", "session_id", id, "node", e.entry)
	return state, nil
}

// ProcessTurn runs one conversation turn for the session. The turn is
// transactional: it executes on a working copy of the state, and the
// store only sees the result when the whole turn succeeded. A failed
// turn leaves the session exactly as the previous turn left it.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, userText string) (*domain.TurnResult, error) {
	clean, err := SanitizeInput(userText, e.maxInput)
	if err != nil {
		return nil, fmt.Errorf("rejecting input: %w", err)
	}

	var result *domain.TurnResult
	err = e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		// Store access goes direct: the manager's Load/Save would retake
		// the session lock we already hold.
		state, err := e.sessions.Store().Load(ctx, sessionID)
		if err != nil {
			return err
		}

		working := state.Clone()
		result, err = e.runtime.Turn(ctx, working, clean)
		if err != nil {
			return err
		}
		return e.sessions.Store().Save(ctx, sessionID, working)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EndSession tears the session down: the recorder gets the final state,
// then the store forgets it. Unknown sessions are not an error, so
// disconnect races stay quiet.
func (e *Engine) EndSession(ctx context.Context, sessionID, reason string) error {
	return e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := e.sessions.Store().Load(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			return err
		}

		if err := e.recorder.SessionEnded(ctx, state, reason); err != nil {
			e.logger.Warn("session teardown recorder failed", "session_id", sessionID, "err", err)
		}
		if err := e.sessions.Store().Delete(ctx, sessionID); err != nil {
			return err
		}
		e.metrics.ActiveSessions.Dec()
		e.logger.Info("session ended", "session_id", sessionID, "reason", reason)
		return nil
	})
}
