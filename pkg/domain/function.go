package domain

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Scope tags where a function is callable from.
type Scope string

const (
	// ScopeLocal functions are callable only while on the declaring node.
	ScopeLocal Scope = "local"
	// ScopeGlobal functions are callable from every node.
	ScopeGlobal Scope = "global"
)

// Args are the parameters supplied by the model for a function call.
// They are passed through to the handler untouched; only the handler
// knows correct defaults for missing or malformed values.
type Args map[string]any

// Handler is the business logic bound to a function.
//
// It must return exactly an outcome and an optional next node. A nil next
// node means "remain on the current node" and must never be conflated
// with failure. External-call errors are the handler's responsibility to
// catch and convert into a failure outcome.
type Handler func(ctx context.Context, args Args, state *State) (Outcome, *Node)

// Function describes one callable exposed to the model.
type Function struct {
	Name        string
	Description string

	// Parameters holds a JSON-Schema style property map, keyed by
	// parameter name.
	Parameters map[string]any

	// Required lists parameter names the model must supply.
	Required []string

	Scope   Scope
	Handler Handler
}

// FunctionSchema is the handler-free view of a Function given to the model.
type FunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Required    []string       `json:"required,omitempty"`
}

// Schema returns the model-facing descriptor.
func (f Function) Schema() FunctionSchema {
	return FunctionSchema{
		Name:        f.Name,
		Description: f.Description,
		Parameters:  f.Parameters,
		Required:    f.Required,
	}
}

// FunctionCall is a structured call request produced by the model.
type FunctionCall struct {
	Name string `json:"name"`
	Args Args   `json:"args,omitempty"`
}

// ModelOutput is what the language model returns for one turn: free text,
// zero or more function call requests, or both.
type ModelOutput struct {
	Text  string         `json:"text,omitempty"`
	Calls []FunctionCall `json:"calls,omitempty"`
}

// DecodeArgs decodes loosely-typed model arguments into a handler's typed
// parameter struct. Decoding is weakly typed ("3" decodes into an int)
// because models are not reliable about JSON number/string distinctions.
func DecodeArgs(args Args, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return fmt.Errorf("building args decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(args)); err != nil {
		return fmt.Errorf("decoding args: %w", err)
	}
	return nil
}
