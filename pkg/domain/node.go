package domain

// Message is a single prompt or history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Action types executed on node entry/exit.
const (
	// ActionSay emits a fixed utterance to the user.
	// Payload: string (the utterance)
	ActionSay = "SAY"

	// ActionNote records a system-level remark in the conversation history
	// without being spoken. Payload: string.
	ActionNote = "NOTE"
)

// Action is a side effect attached to a node, run when the conversation
// enters or leaves it.
type Action struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// Node is one conversation state: prompt content, the functions reachable
// while the conversation sits on it, and optional entry/exit actions.
//
// Nodes are immutable value objects. Builders construct them fresh each
// time they are needed so prompt content can reflect current session data
// without stale closures.
type Node struct {
	// Name identifies the node. Unique within a registry.
	Name string

	// RoleMessages set the persona. They persist across the conversation.
	RoleMessages []Message

	// TaskMessages describe what the model should do at this node.
	TaskMessages []Message

	// Functions locally available while on this node. Names must not
	// collide with global functions.
	Functions []Function

	// PreActions run when the conversation transitions onto this node.
	PreActions []Action

	// PostActions run when the conversation transitions off this node.
	PostActions []Action

	// RespondImmediately indicates the model should speak first on entry
	// rather than wait for user input.
	RespondImmediately bool

	// StablePoint marks the node as a safe resumption point for the active
	// task. The engine records a resume marker when rendering it.
	StablePoint bool
}

// Zero reports whether the node is the zero value (no name).
func (n Node) Zero() bool { return n.Name == "" }

// Prompt is the rendered view of a node handed to the model: content plus
// the handler-free schemas of every callable function.
type Prompt struct {
	Node         string
	RoleMessages []Message
	TaskMessages []Message
	Functions    []FunctionSchema
}
