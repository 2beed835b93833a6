package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/domain"
)

// RunStateStoreContract verifies that a StateStore implementation adheres
// to the interface contract. Adapter test packages call this against
// their concrete store.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "greeting")
		require.NoError(t, state.Set("caller_name", "Ada"))
		require.NoError(t, state.Set("attempts", 2))
		state.History = append(state.History, domain.Message{Role: domain.RoleUser, Content: "hello"})

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Node, loaded.Node)
		assert.Equal(t, "Ada", loaded.GetString("caller_name"))
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "hello", loaded.History[0].Content)
		// JSON-backed stores turn ints into float64; only presence is part
		// of the contract.
		got, ok := loaded.Get("attempts")
		assert.True(t, ok)
		assert.NotNil(t, got)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Save Isolates Caller State", func(t *testing.T) {
		state := domain.NewState(sessionID, "greeting")
		require.NoError(t, state.Set("caller_name", "Ada"))
		require.NoError(t, store.Save(ctx, sessionID, state))

		// Mutations after Save must not leak into the stored copy.
		require.NoError(t, state.Set("caller_name", "Grace"))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", loaded.GetString("caller_name"))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewState(sessionID, "greeting")))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("Delete Non-Existent Is Idempotent", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "never-saved-"+sessionID))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "greeting"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "greeting"))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
