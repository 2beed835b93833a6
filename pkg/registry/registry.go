// Package registry holds the node builders and global functions of a
// dialogue flow, validated for name uniqueness so configuration errors
// surface at wiring time instead of mid-conversation.
package registry

import (
	"fmt"

	"github.com/parleyhq/parley/pkg/domain"
)

// NodeBuilder constructs a node fresh from current session data. Nodes are
// immutable values; building them on demand keeps prompt content in sync
// with the session and avoids stale closures.
type NodeBuilder func(state *domain.State) domain.Node

// Registry is the typed map from names to node builders and global
// function descriptors. The model selects callables by string; the
// registry is what makes that dynamic dispatch safe.
type Registry struct {
	nodes   map[string]NodeBuilder
	globals []domain.Function
	byName  map[string]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		nodes:  make(map[string]NodeBuilder),
		byName: make(map[string]int),
	}
}

// RegisterNode adds a node builder. Registering the same name twice is a
// configuration error.
func (r *Registry) RegisterNode(name string, build NodeBuilder) error {
	if name == "" {
		return fmt.Errorf("%w: empty node name", domain.ErrUnknownNode)
	}
	if build == nil {
		return fmt.Errorf("node %q: nil builder", name)
	}
	if _, exists := r.nodes[name]; exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateNode, name)
	}
	r.nodes[name] = build
	return nil
}

// MustRegisterNode is RegisterNode that panics on configuration errors,
// for static flow wiring in main functions.
func (r *Registry) MustRegisterNode(name string, build NodeBuilder) {
	if err := r.RegisterNode(name, build); err != nil {
		panic(err)
	}
}

// RegisterGlobal adds a function callable from every node. Registration
// order is preserved; it is the order the model sees the functions in.
// Duplicate names are a configuration error.
func (r *Registry) RegisterGlobal(fn domain.Function) error {
	if fn.Name == "" {
		return fmt.Errorf("%w: empty function name", domain.ErrUnknownFunction)
	}
	if fn.Handler == nil {
		return fmt.Errorf("global function %q: nil handler", fn.Name)
	}
	if _, exists := r.byName[fn.Name]; exists {
		return fmt.Errorf("%w: global %q", domain.ErrDuplicateFunction, fn.Name)
	}
	fn.Scope = domain.ScopeGlobal
	r.byName[fn.Name] = len(r.globals)
	r.globals = append(r.globals, fn)
	return nil
}

// MustRegisterGlobal is RegisterGlobal that panics on configuration errors.
func (r *Registry) MustRegisterGlobal(fn domain.Function) {
	if err := r.RegisterGlobal(fn); err != nil {
		panic(err)
	}
}

// HasNode reports whether a builder is registered under the name.
func (r *Registry) HasNode(name string) bool {
	_, ok := r.nodes[name]
	return ok
}

// Node builds the named node against the given session state.
func (r *Registry) Node(name string, state *domain.State) (domain.Node, error) {
	build, ok := r.nodes[name]
	if !ok {
		return domain.Node{}, fmt.Errorf("%w: %q", domain.ErrUnknownNode, name)
	}
	node := build(state)
	if node.Name == "" {
		node.Name = name
	}
	return node, nil
}

// Globals returns the global functions in registration order.
func (r *Registry) Globals() []domain.Function {
	return r.globals
}

// ValidateNode checks the uniqueness invariant for one node: no duplicate
// local names, and no local name shadowing a global.
func (r *Registry) ValidateNode(node domain.Node) error {
	seen := make(map[string]struct{}, len(node.Functions))
	for _, fn := range node.Functions {
		if _, dup := seen[fn.Name]; dup {
			return fmt.Errorf("%w: node %q declares %q twice", domain.ErrDuplicateFunction, node.Name, fn.Name)
		}
		seen[fn.Name] = struct{}{}
		if _, global := r.byName[fn.Name]; global {
			return fmt.Errorf("%w: %q is both local to node %q and global", domain.ErrDuplicateFunction, fn.Name, node.Name)
		}
	}
	return nil
}

// Resolve finds the handler for a requested function name against the
// union of the node's local functions and the globals. A name present in
// both scopes is a configuration error, not a silent shadow.
func (r *Registry) Resolve(node domain.Node, name string) (domain.Function, error) {
	var local *domain.Function
	for i := range node.Functions {
		if node.Functions[i].Name == name {
			local = &node.Functions[i]
			break
		}
	}
	idx, global := r.byName[name]
	if local != nil && global {
		return domain.Function{}, fmt.Errorf("%w: %q is both local to node %q and global", domain.ErrDuplicateFunction, name, node.Name)
	}
	if local != nil {
		fn := *local
		fn.Scope = domain.ScopeLocal
		return fn, nil
	}
	if global {
		return r.globals[idx], nil
	}
	return domain.Function{}, fmt.Errorf("%w: %q (node %q)", domain.ErrUnknownFunction, name, node.Name)
}
