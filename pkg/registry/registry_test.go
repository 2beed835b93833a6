package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/registry"
)

func noopHandler(_ context.Context, _ domain.Args, _ *domain.State) (domain.Outcome, *domain.Node) {
	return domain.OK(nil), nil
}

func fnNamed(name string) domain.Function {
	return domain.Function{Name: name, Handler: noopHandler}
}

func nodeWith(fns ...domain.Function) registry.NodeBuilder {
	return func(_ *domain.State) domain.Node {
		return domain.Node{Functions: fns}
	}
}

func TestRegistry_RegisterNode(t *testing.T) {
	r := registry.New()

	require.NoError(t, r.RegisterNode("greeting", nodeWith()))
	assert.True(t, r.HasNode("greeting"))
	assert.False(t, r.HasNode("farewell"))

	err := r.RegisterNode("greeting", nodeWith())
	assert.ErrorIs(t, err, domain.ErrDuplicateNode)

	assert.Error(t, r.RegisterNode("", nodeWith()))
	assert.Error(t, r.RegisterNode("nil-builder", nil))
}

func TestRegistry_NodeFillsName(t *testing.T) {
	r := registry.New()
	r.MustRegisterNode("greeting", nodeWith())

	node, err := r.Node("greeting", domain.NewState("s1", "greeting"))
	require.NoError(t, err)
	assert.Equal(t, "greeting", node.Name)

	_, err = r.Node("missing", domain.NewState("s1", "greeting"))
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
}

func TestRegistry_RegisterGlobal(t *testing.T) {
	r := registry.New()

	fn := fnNamed("knowledge_base")
	fn.Scope = domain.ScopeLocal // forced to global on registration
	require.NoError(t, r.RegisterGlobal(fn))

	globals := r.Globals()
	require.Len(t, globals, 1)
	assert.Equal(t, domain.ScopeGlobal, globals[0].Scope)

	err := r.RegisterGlobal(fnNamed("knowledge_base"))
	assert.ErrorIs(t, err, domain.ErrDuplicateFunction)
}

func TestRegistry_GlobalsKeepRegistrationOrder(t *testing.T) {
	r := registry.New()
	for _, name := range []string{"start_booking", "knowledge_base", "request_transfer"} {
		r.MustRegisterGlobal(fnNamed(name))
	}

	var got []string
	for _, fn := range r.Globals() {
		got = append(got, fn.Name)
	}
	assert.Equal(t, []string{"start_booking", "knowledge_base", "request_transfer"}, got)
}

func TestRegistry_ValidateNode(t *testing.T) {
	r := registry.New()
	r.MustRegisterGlobal(fnNamed("knowledge_base"))

	t.Run("duplicate locals", func(t *testing.T) {
		node := domain.Node{Name: "n", Functions: []domain.Function{fnNamed("f"), fnNamed("f")}}
		assert.ErrorIs(t, r.ValidateNode(node), domain.ErrDuplicateFunction)
	})

	t.Run("local shadowing a global", func(t *testing.T) {
		node := domain.Node{Name: "n", Functions: []domain.Function{fnNamed("knowledge_base")}}
		assert.ErrorIs(t, r.ValidateNode(node), domain.ErrDuplicateFunction)
	})

	t.Run("clean node", func(t *testing.T) {
		node := domain.Node{Name: "n", Functions: []domain.Function{fnNamed("find_slots")}}
		assert.NoError(t, r.ValidateNode(node))
	})
}

func TestRegistry_Resolve(t *testing.T) {
	r := registry.New()
	r.MustRegisterGlobal(fnNamed("knowledge_base"))

	node := domain.Node{Name: "slot_search", Functions: []domain.Function{fnNamed("find_slots")}}

	t.Run("local wins its own name", func(t *testing.T) {
		fn, err := r.Resolve(node, "find_slots")
		require.NoError(t, err)
		assert.Equal(t, domain.ScopeLocal, fn.Scope)
	})

	t.Run("global reachable from any node", func(t *testing.T) {
		fn, err := r.Resolve(node, "knowledge_base")
		require.NoError(t, err)
		assert.Equal(t, domain.ScopeGlobal, fn.Scope)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.Resolve(node, "order_pizza")
		assert.ErrorIs(t, err, domain.ErrUnknownFunction)
	})

	t.Run("name in both scopes is a config error", func(t *testing.T) {
		clash := domain.Node{Name: "n", Functions: []domain.Function{fnNamed("knowledge_base")}}
		_, err := r.Resolve(clash, "knowledge_base")
		assert.ErrorIs(t, err, domain.ErrDuplicateFunction)
	})
}
