package runtime

import (
	"context"
	"time"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

// track feeds one function outcome through the failure ledger and decides
// whether the session must escalate to a human.
//
// Rules, in order:
//   - success resets every counter (a working conversation is healthy,
//     whatever happened before);
//   - ignorable failures are user-fixable and never counted;
//   - any failure after the user asked for a transfer counts as
//     frustrated regardless of its declared category;
//   - recording bumps the category counter, and crossing the policy
//     threshold escalates.
func (e *Engine) track(ctx context.Context, state *domain.State, fn string, o domain.Outcome) (bool, domain.FailureCategory) {
	ledger := state.Failures()

	if o.Success {
		if len(ledger.Counts) > 0 {
			e.logger.Debug("success, clearing failure counters", "session_id", state.ID, "function", fn)
		}
		ledger.ResetCounts()
		return false, ""
	}

	if o.Ignorable {
		e.logger.Debug("ignorable failure, not counted", "session_id", state.ID, "function", fn, "reason", o.Reason())
		return false, ""
	}

	category := o.Category
	if category == "" {
		category = domain.CategoryRecoverable
	}
	if ledger.TransferRequested {
		category = domain.CategoryFrustrated
	}

	count := ledger.Record(domain.FailureRecord{
		Category: category,
		Function: fn,
		Reason:   o.Reason(),
		At:       time.Now().UTC(),
	})
	threshold := e.policy.Threshold(category)
	e.logger.Warn("function failure recorded",
		"session_id", state.ID,
		"function", fn,
		"category", category,
		"count", count,
		"threshold", threshold,
	)
	if count < threshold {
		return false, category
	}

	e.metrics.Escalations.WithLabelValues(string(category)).Inc()
	summary := ports.EscalationSummary{
		SessionID: state.ID,
		Category:  category,
		Failures:  append([]domain.FailureRecord(nil), ledger.History...),
		Reason:    o.Reason(),
	}
	if e.policy.ClearLedgerOnEscalation {
		ledger.Clear()
	} else {
		delete(ledger.Counts, category)
	}
	if err := e.recorder.Escalated(ctx, summary); err != nil {
		e.logger.Warn("escalation recorder failed", "session_id", state.ID, "err", err)
	}
	e.logger.Info("escalating to human operator", "session_id", state.ID, "category", category)
	return true, category
}
