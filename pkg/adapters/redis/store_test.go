package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/adapters/redis"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redis.NewFromClient(client, opts...), mr
}

func TestStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunStateStoreContract(t, store)
}

func TestStore_KeyPrefix(t *testing.T) {
	store, mr := newTestStore(t, redis.WithPrefix("myapp:calls:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewState("s1", "greeting")))

	assert.True(t, mr.Exists("myapp:calls:s1"))
	assert.True(t, mr.Exists("myapp:calls:index"))
	assert.False(t, mr.Exists("parley:session:s1"))
}

func TestStore_TTLExpiry(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.NewState("s1", "greeting")))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sessions)

	mr.FastForward(2 * time.Minute)

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStore_ListPrunesExpiredIndexEntries(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old", domain.NewState("old", "greeting")))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, store.Save(ctx, "fresh", domain.NewState("fresh", "greeting")))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, sessions, "expired sessions must leave the index")
}

func TestStore_RoundTripKeepsEngineState(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	state := domain.NewState("s1", "slot_selection")
	state.BeginTask("booking")
	state.Slots().SetService("ultrasound")
	state.Slots().SetAuthoritative([]domain.Slot{
		{ID: "sl-1", Owner: "ultrasound", Date: "2026-09-01", Time: "09:30"},
	})
	state.SaveResumePoint(domain.ResumeMarker{Node: "slot_selection", Task: "booking"})

	require.NoError(t, store.Save(ctx, "s1", state))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)

	task, ok := loaded.ActiveTask()
	require.True(t, ok)
	assert.Equal(t, "booking", task)

	slot, ok := loaded.Slots().Lookup("2026-09-01", "09:30")
	require.True(t, ok, "slot cache must survive a store round trip")
	assert.Equal(t, "sl-1", slot.ID)
	assert.True(t, loaded.Slots().Verify(slot))

	marker, ok := loaded.ResumePoint()
	require.True(t, ok)
	assert.Equal(t, "slot_selection", marker.Node)
}
