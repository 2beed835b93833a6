package runtime

import (
	"context"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/observability"
)

// dispatch resolves one requested call against the current node and
// invokes its handler. Resolution failures (unknown name, ambiguous
// name) are configuration errors and abort the turn.
func (e *Engine) dispatch(ctx context.Context, state *domain.State, node domain.Node, call domain.FunctionCall) (domain.Outcome, *domain.Node, error) {
	fn, err := e.registry.Resolve(node, call.Name)
	if err != nil {
		return domain.Outcome{}, nil, err
	}

	args := call.Args
	if args == nil {
		args = domain.Args{}
	}

	e.logger.Debug("dispatching function",
		"session_id", state.ID,
		"node", node.Name,
		"function", fn.Name,
		"scope", fn.Scope,
	)

	outcome, next := fn.Handler(ctx, args, state)
	e.metrics.FunctionCalls.WithLabelValues(fn.Name, outcomeLabel(outcome)).Inc()
	return outcome, next, nil
}

func outcomeLabel(o domain.Outcome) string {
	switch {
	case o.Violation:
		return observability.OutcomeViolation
	case o.Success:
		return observability.OutcomeSuccess
	case o.Ignorable:
		return observability.OutcomeIgnored
	default:
		return observability.OutcomeFailure
	}
}
