package domain

// Outcome is the structured result half of a handler's return value. The
// payload is fed back to the model verbatim; the flags drive failure
// tracking and forced transitions inside the engine.
type Outcome struct {
	Success bool

	// Category classifies a failure for threshold purposes. Empty means
	// CategoryRecoverable. Ignored when Success is true.
	Category FailureCategory

	// Ignorable marks a failure the user can fix themselves (bad email
	// format, missing digit). Ignorable failures are not counted by the
	// failure tracker.
	Ignorable bool

	// Violation marks a detected consistency violation (stale or
	// foreign-owned cache hit, commit against an unverified slot). The
	// engine hard-aborts the turn to the error-recovery node.
	Violation bool

	// ResumeTask asks the engine to restore the node stored in the session's
	// resume marker, handing control back to the interrupted task.
	ResumeTask bool

	Payload map[string]any
}

// OK returns a successful outcome carrying the given payload.
func OK(payload map[string]any) Outcome {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	return Outcome{Success: true, Payload: payload}
}

// Fail returns a failure outcome in the given category. The message is
// both spoken material for the model and the reason recorded in the
// failure ledger.
func Fail(category FailureCategory, message string) Outcome {
	return Outcome{
		Success:  false,
		Category: category,
		Payload: map[string]any{
			"success": false,
			"message": message,
		},
	}
}

// UserFixable returns a failure outcome that the tracker must not count:
// the user can correct it on the next utterance.
func UserFixable(message string) Outcome {
	o := Fail("", message)
	o.Ignorable = true
	return o
}

// Abort returns a hard-abort outcome for a detected consistency
// violation. The engine transitions to the error-recovery node and does
// not execute any further calls this turn.
func Abort(reason string) Outcome {
	return Outcome{
		Success:   false,
		Violation: true,
		Payload: map[string]any{
			"success": false,
			"message": reason,
		},
	}
}

// Resume returns a successful outcome instructing the engine to restore
// the node saved in the resume marker.
func Resume(payload map[string]any) Outcome {
	o := OK(payload)
	o.ResumeTask = true
	return o
}

// Reason extracts the human-readable failure reason from the payload.
func (o Outcome) Reason() string {
	if o.Payload == nil {
		return ""
	}
	if m, ok := o.Payload["message"].(string); ok {
		return m
	}
	if m, ok := o.Payload["error"].(string); ok {
		return m
	}
	return ""
}

// WithContinuation attaches a continuation instruction to the payload when
// a task is in progress, directing the model to carry on with the task
// after answering rather than abandoning it. Informational global handlers
// call this so mid-task questions do not derail a booking.
func (o Outcome) WithContinuation(state *State) Outcome {
	task, ok := state.ActiveTask()
	if !ok {
		return o
	}
	if o.Payload == nil {
		o.Payload = map[string]any{}
	}
	o.Payload["continue_task"] = true
	o.Payload["instruction"] = "A " + task + " task is in progress. After responding, continue with the task by repeating your last question. Do not abandon it unless the user explicitly cancels."
	return o
}
