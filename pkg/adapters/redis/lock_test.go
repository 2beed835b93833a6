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
)

func newTestLocker(t *testing.T) (*redis.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redis.NewLocker(client, "parley:"), mr
}

func TestLocker_LockUnlock(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("parley:lock:s1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("parley:lock:s1"))
}

func TestLocker_Contention(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	// Second holder polls until its context gives up.
	ctxTimeout, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker.Lock(ctxTimeout, "shared", 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	defer unlock2(ctx)

	assert.True(t, mr.Exists("parley:lock:shared"))
}

func TestLocker_UnlockIgnoresStolenLock(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", time.Second)
	require.NoError(t, err)

	// Simulate the TTL firing and another holder taking over.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)

	// The first holder's release must not delete the new holder's lock.
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("parley:lock:s1"))

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("parley:lock:s1"))
}
