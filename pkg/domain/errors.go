package domain

import "errors"

// Configuration errors. These indicate wiring defects, are fatal for the
// operation that hit them and are never surfaced conversationally.
var (
	// ErrUnknownNode is returned when a transition or render targets a node
	// name with no registered builder.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownFunction is returned when the model requests a function that
	// is neither local to the current node nor global.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrDuplicateFunction is returned when a function name appears more than
	// once in the union of a node's local functions and the global registry.
	ErrDuplicateFunction = errors.New("duplicate function name")

	// ErrDuplicateNode is returned when a node builder is registered twice
	// under the same name.
	ErrDuplicateNode = errors.New("duplicate node name")
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrReservedKey is returned when a handler writes a business value under
// the engine's reserved key prefix.
var ErrReservedKey = errors.New("reserved session state key")
