package ports

import (
	"context"

	"github.com/parleyhq/parley/pkg/domain"
)

// EscalationSummary is the hand-off package given to the recorder when a
// failure threshold forces a transfer to a human operator.
type EscalationSummary struct {
	SessionID string
	Category  domain.FailureCategory
	Failures  []domain.FailureRecord
	Reason    string
}

// Recorder is the external collaborator notified of session lifecycle
// events. The engine keeps no persistent state of its own; analytics and
// call records are the recorder's concern.
//
// Recorder calls are best effort: a failing recorder must not break the
// conversation, so implementations should log and swallow their own errors
// where possible.
type Recorder interface {
	// Escalated is invoked when a threshold crossing forces a transfer.
	Escalated(ctx context.Context, summary EscalationSummary) error

	// SessionEnded is the teardown hook, invoked once per session on
	// disconnect or explicit end, with the final state to flush.
	SessionEnded(ctx context.Context, state *domain.State, reason string) error
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) Escalated(context.Context, EscalationSummary) error        { return nil }
func (NopRecorder) SessionEnded(context.Context, *domain.State, string) error { return nil }
