package domain

import "time"

// FailureCategory is the tier a failure counts against.
type FailureCategory string

const (
	// CategoryImmediate escalates on the first failure, e.g. a knowledge
	// lookup that returned nothing.
	CategoryImmediate FailureCategory = "immediate"

	// CategoryFrustrated escalates on the first failure after the user
	// explicitly asked for a human. The tracker arms it via
	// RequestTransfer; handlers do not declare it directly.
	CategoryFrustrated FailureCategory = "frustrated"

	// CategoryRecoverable escalates after repeated failures, e.g. a
	// transient external API error. Default for unclassified failures.
	CategoryRecoverable FailureCategory = "recoverable"
)

// FailurePolicy maps categories to escalation thresholds. Categories and
// thresholds are configuration, not code; deployments add their own tiers.
type FailurePolicy struct {
	Thresholds map[FailureCategory]int `yaml:"thresholds" json:"thresholds"`

	// ClearLedgerOnEscalation drops the whole failure history when an
	// escalation fires, not just the crossing category's counter.
	ClearLedgerOnEscalation bool `yaml:"clear_ledger_on_escalation" json:"clear_ledger_on_escalation"`
}

// DefaultFailurePolicy returns the three-tier policy observed in the
// voice-agent domain.
func DefaultFailurePolicy() FailurePolicy {
	return FailurePolicy{
		Thresholds: map[FailureCategory]int{
			CategoryImmediate:   1,
			CategoryFrustrated:  1,
			CategoryRecoverable: 3,
		},
		ClearLedgerOnEscalation: true,
	}
}

// Threshold returns the escalation threshold for a category. Unknown
// categories fall back to the recoverable tier so a misconfigured handler
// can never escalate on its first hiccup.
func (p FailurePolicy) Threshold(c FailureCategory) int {
	if t, ok := p.Thresholds[c]; ok {
		return t
	}
	if t, ok := p.Thresholds[CategoryRecoverable]; ok {
		return t
	}
	return 3
}

// Validate reports configuration defects (thresholds below one).
func (p FailurePolicy) Validate() error {
	for c, t := range p.Thresholds {
		if t < 1 {
			return &PolicyError{Category: c, Threshold: t}
		}
	}
	return nil
}

// PolicyError describes an invalid failure policy entry.
type PolicyError struct {
	Category  FailureCategory
	Threshold int
}

func (e *PolicyError) Error() string {
	return "failure policy: threshold for category " + string(e.Category) + " must be >= 1"
}

// FailureRecord is one appended entry in the failure ledger.
type FailureRecord struct {
	Category FailureCategory `json:"category"`
	Function string          `json:"function"`
	Reason   string          `json:"reason"`
	At       time.Time       `json:"at"`
}

// FailureLedger is the per-session failure state: a counter per category
// plus the append-only history. It lives in session state under a
// reserved key and is never shared across sessions.
type FailureLedger struct {
	Counts  map[FailureCategory]int `json:"counts"`
	History []FailureRecord         `json:"history"`

	// TransferRequested arms the frustrated tier: the user explicitly asked
	// for a human and the agent is getting one chance to help first.
	TransferRequested bool `json:"transfer_requested"`
}

// NewFailureLedger returns an empty ledger.
func NewFailureLedger() *FailureLedger {
	return &FailureLedger{Counts: make(map[FailureCategory]int)}
}

// Record appends a failure and returns the updated count for its category.
func (l *FailureLedger) Record(rec FailureRecord) int {
	if l.Counts == nil {
		l.Counts = make(map[FailureCategory]int)
	}
	l.Counts[rec.Category]++
	l.History = append(l.History, rec)
	return l.Counts[rec.Category]
}

// ResetCounts zeroes every category counter. Called on the first
// successful outcome after failures; history is kept for analytics, and
// an armed transfer request stays armed. A caller who already asked for
// an operator has spent their patience; only leaving the task or
// escalating disarms the flag.
func (l *FailureLedger) ResetCounts() {
	l.Counts = make(map[FailureCategory]int)
}

// RequestTransfer arms the frustrated tier and starts a fresh count for
// the help attempt.
func (l *FailureLedger) RequestTransfer() {
	l.ResetCounts()
	l.TransferRequested = true
}

// Clear drops the whole ledger: counters, history and transfer flag.
// Called when the session leaves the task that produced the failures, or
// on escalation when the policy says so.
func (l *FailureLedger) Clear() {
	l.Counts = make(map[FailureCategory]int)
	l.History = nil
	l.TransferRequested = false
}

// Clone returns an independent copy.
func (l *FailureLedger) Clone() *FailureLedger {
	c := &FailureLedger{
		Counts:            make(map[FailureCategory]int, len(l.Counts)),
		TransferRequested: l.TransferRequested,
	}
	for k, v := range l.Counts {
		c.Counts[k] = v
	}
	c.History = append([]FailureRecord(nil), l.History...)
	return c
}
