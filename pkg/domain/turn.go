package domain

// CallRecord summarizes one dispatched function call within a turn.
type CallRecord struct {
	Function     string `json:"function"`
	Success      bool   `json:"success"`
	Ignored      bool   `json:"ignored,omitempty"`
	Violation    bool   `json:"violation,omitempty"`
	Transitioned bool   `json:"transitioned,omitempty"`
}

// TurnResult is the outcome of processing one conversation turn.
type TurnResult struct {
	// Reply is the model's free-text response, possibly empty when the
	// turn consisted solely of function calls.
	Reply string `json:"reply,omitempty"`

	// Node is the conversation node after the turn.
	Node string `json:"node"`

	// Transitioned reports whether the turn moved to a different node.
	Transitioned bool `json:"transitioned"`

	// Utterances are fixed texts emitted by entry/exit actions during the
	// transition, in execution order.
	Utterances []string `json:"utterances,omitempty"`

	// Escalated reports a forced transition to the escalation node.
	Escalated bool `json:"escalated"`

	// EscalationCategory is the failure category that crossed its
	// threshold, when Escalated is set.
	EscalationCategory FailureCategory `json:"escalation_category,omitempty"`

	// Calls records the dispatched function calls in request order.
	Calls []CallRecord `json:"calls,omitempty"`
}
