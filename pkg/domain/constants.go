package domain

// ReservedPrefix marks session state keys owned by the engine.
// Business handlers must not write keys under this prefix.
const ReservedPrefix = "engine."

// Reserved session state keys.
const (
	keyFailures = ReservedPrefix + "failures"
	keySlots    = ReservedPrefix + "slots"
	keyResume   = ReservedPrefix + "resume"
	keyTask     = ReservedPrefix + "task"
)

// Message roles used in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)
