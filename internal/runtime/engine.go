// Package runtime is the core turn loop of the Parley engine: render the
// current node, obtain model output, dispatch requested function calls
// through the failure-tracking middleware, and apply the resulting
// transition.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/observability"
	"github.com/parleyhq/parley/pkg/ports"
	"github.com/parleyhq/parley/pkg/registry"
)

// Default node names for forced transitions. Overridable per engine.
const (
	DefaultEscalationNode = "escalation"
	DefaultRecoveryNode   = "recovery"
)

// Engine drives single turns against session state. It holds no session
// state of its own; everything mutable lives in *domain.State, so one
// engine serves any number of concurrent sessions.
type Engine struct {
	registry *registry.Registry
	model    ports.Model

	policy         domain.FailurePolicy
	escalationNode string
	recoveryNode   string

	recorder ports.Recorder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFailurePolicy replaces the default three-tier failure policy.
func WithFailurePolicy(p domain.FailurePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithEscalationNode sets the node forced on threshold crossings.
func WithEscalationNode(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.escalationNode = name
		}
	}
}

// WithRecoveryNode sets the node forced on consistency violations.
func WithRecoveryNode(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.recoveryNode = name
		}
	}
}

// WithRecorder sets the escalation/teardown collaborator.
func WithRecorder(r ports.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine creates a turn engine over a registry and a model.
func NewEngine(reg *registry.Registry, model ports.Model, opts ...Option) *Engine {
	e := &Engine{
		registry:       reg,
		model:          model,
		policy:         domain.DefaultFailurePolicy(),
		escalationNode: DefaultEscalationNode,
		recoveryNode:   DefaultRecoveryNode,
		recorder:       ports.NopRecorder{},
		metrics:        observability.NewNop(),
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EscalationNode returns the configured escalation node name.
func (e *Engine) EscalationNode() string { return e.escalationNode }

// RecoveryNode returns the configured recovery node name.
func (e *Engine) RecoveryNode() string { return e.recoveryNode }

// Policy returns the active failure policy.
func (e *Engine) Policy() domain.FailurePolicy { return e.policy }

// Turn processes one conversation turn: render the current node, call the
// model, dispatch every requested function in order, and apply the
// transition dictated by the last transition-bearing result. Forced
// transitions (violation, escalation) override handler transitions and
// stop further dispatching.
//
// Turn mutates state in place; callers wanting transactional semantics
// run it on a clone and commit on success.
func (e *Engine) Turn(ctx context.Context, state *domain.State, userText string) (*domain.TurnResult, error) {
	node, err := e.registry.Node(state.Node, state)
	if err != nil {
		return nil, err
	}
	if err := e.registry.ValidateNode(node); err != nil {
		return nil, err
	}

	// A stable point refreshes the resume marker for the active task.
	if node.StablePoint {
		if task, ok := state.ActiveTask(); ok {
			state.SaveResumePoint(domain.ResumeMarker{Node: node.Name, Task: task})
		}
	}

	if userText != "" {
		state.History = append(state.History, domain.Message{Role: domain.RoleUser, Content: userText})
	}

	out, err := e.model.Complete(ctx, renderPrompt(node, e.registry.Globals()), state.History)
	if err != nil {
		return nil, fmt.Errorf("model completion: %w", err)
	}
	e.metrics.Turns.Inc()

	res := &domain.TurnResult{Node: state.Node, Reply: out.Text}
	if out.Text != "" {
		state.History = append(state.History, domain.Message{Role: domain.RoleAssistant, Content: out.Text})
	}

	var next *domain.Node
	cachedService := state.Slots().Service
	for _, call := range out.Calls {
		outcome, callNext, err := e.dispatch(ctx, state, node, call)
		if err != nil {
			return nil, err
		}
		e.recordCall(state, call, outcome)

		rec := domain.CallRecord{
			Function:  call.Name,
			Success:   outcome.Success,
			Ignored:   outcome.Ignorable && !outcome.Success,
			Violation: outcome.Violation,
		}

		if outcome.Violation {
			e.logger.Warn("consistency violation, aborting to recovery",
				"session_id", state.ID,
				"function", call.Name,
				"reason", outcome.Reason(),
			)
			next = &domain.Node{Name: e.recoveryNode}
			rec.Transitioned = true
			res.Calls = append(res.Calls, rec)
			break
		}

		escalate, category := e.track(ctx, state, call.Name, outcome)
		if escalate {
			next = &domain.Node{Name: e.escalationNode}
			res.Escalated = true
			res.EscalationCategory = category
			state.DiscardResumeMarker()
			rec.Transitioned = true
			res.Calls = append(res.Calls, rec)
			break
		}

		if outcome.ResumeTask {
			if marker, ok := state.TakeResumeMarker(); ok {
				next = &domain.Node{Name: marker.Node}
				rec.Transitioned = true
			}
		} else if callNext != nil {
			// Last transition-bearing result wins; a nil next node from a
			// later call never erases an earlier requested transition.
			next = callNext
			rec.Transitioned = true
		}
		res.Calls = append(res.Calls, rec)
	}

	if svc := state.Slots().Service; svc != cachedService && cachedService != "" {
		e.metrics.CacheEvents.WithLabelValues(observability.CacheInvalidated).Inc()
	}

	if next != nil {
		// Handlers only name their target; the canonical node comes from
		// the registry, rendered against the state the calls just mutated.
		target, err := e.registry.Node(next.Name, state)
		if err != nil {
			return nil, err
		}
		e.transition(state, node, target, res)
	}
	res.Node = state.Node
	return res, nil
}

// transition applies exit actions of the old node, entry actions of the
// new one, and moves the session.
func (e *Engine) transition(state *domain.State, from, to domain.Node, res *domain.TurnResult) {
	for _, a := range from.PostActions {
		e.runAction(state, a, res)
	}
	for _, a := range to.PreActions {
		e.runAction(state, a, res)
	}
	state.Node = to.Name
	res.Transitioned = true
	e.logger.Debug("node transition", "session_id", state.ID, "from", from.Name, "to", to.Name)
}

func (e *Engine) runAction(state *domain.State, a domain.Action, res *domain.TurnResult) {
	switch a.Type {
	case domain.ActionSay:
		res.Utterances = append(res.Utterances, a.Payload)
		state.History = append(state.History, domain.Message{Role: domain.RoleAssistant, Content: a.Payload})
	case domain.ActionNote:
		state.History = append(state.History, domain.Message{Role: domain.RoleSystem, Content: a.Payload})
	default:
		e.logger.Warn("unknown action type", "type", a.Type)
	}
}

// recordCall appends the function result to the history so the model sees
// it on the next completion.
func (e *Engine) recordCall(state *domain.State, call domain.FunctionCall, outcome domain.Outcome) {
	entry := map[string]any{"function": call.Name, "result": outcome.Payload}
	b, err := json.Marshal(entry)
	if err != nil {
		b = []byte(fmt.Sprintf(`{"function":%q}`, call.Name))
	}
	state.History = append(state.History, domain.Message{Role: domain.RoleFunction, Content: string(b)})
}

// renderPrompt produces the model-facing view of a node: its messages plus
// the schemas of local and global functions. Globals go last so node
// functions keep priority in the model's attention.
func renderPrompt(node domain.Node, globals []domain.Function) domain.Prompt {
	p := domain.Prompt{
		Node:         node.Name,
		RoleMessages: node.RoleMessages,
		TaskMessages: node.TaskMessages,
	}
	for _, fn := range node.Functions {
		p.Functions = append(p.Functions, fn.Schema())
	}
	for _, fn := range globals {
		p.Functions = append(p.Functions, fn.Schema())
	}
	return p
}
