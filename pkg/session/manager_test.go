package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
	"github.com/parleyhq/parley/pkg/session"
)

// slowStore adds latency to provoke races that missing locking would hide.
type slowStore struct {
	mu   sync.Mutex
	data map[string]*domain.State
}

func (s *slowStore) Save(_ context.Context, sessionID string, state *domain.State) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.State)
	}
	s.data[sessionID] = state
	return nil
}

func (s *slowStore) Load(_ context.Context, sessionID string) (*domain.State, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.data[sessionID]; ok {
		return state, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *slowStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *slowStore) List(context.Context) ([]string, error) { return nil, nil }

func TestManager_ConcurrentSaves(t *testing.T) {
	manager := session.NewManager(&slowStore{})
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Save(ctx, id, domain.NewState(id, "greeting")))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, manager.Save(ctx, id, domain.NewState(id, "updated")))
		}()
	}
	wg.Wait()
}

func TestManager_LoadOrStart(t *testing.T) {
	manager := session.NewManager(&slowStore{})
	ctx := context.Background()
	id := "atomic-init"

	// Two goroutines racing to initialize the same session must not both
	// create it.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := manager.LoadOrStart(ctx, id, "greeting")
			assert.NoError(t, err)
			assert.NotNil(t, state)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "greeting", state.Node)
}

func TestManager_LoadOrStartKeepsExisting(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	existing := domain.NewState("s1", "confirm")
	require.NoError(t, existing.Set("caller_name", "Ada"))
	require.NoError(t, manager.Save(ctx, "s1", existing))

	state, err := manager.LoadOrStart(ctx, "s1", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "confirm", state.Node, "an existing session must not be reset to the entry node")
	name, _ := state.Get("caller_name")
	assert.Equal(t, "Ada", name)
}

func TestManager_LoadMissing(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	_, err := manager.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_WithLockSerializes(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var inside int
	var max int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, "one-session", func(context.Context) error {
				mu.Lock()
				inside++
				if inside > max {
					max = inside
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "critical sections for one session must never overlap")
}

type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	lastTTL  time.Duration
	lastKey  string
	failLock bool
}

func (l *countingLocker) Lock(_ context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failLock {
		return nil, assert.AnError
	}
	l.locks++
	l.lastKey = key
	l.lastTTL = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(),
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "s1", domain.NewState("s1", "greeting")))

	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
	assert.Equal(t, "s1", locker.lastKey)
	assert.Equal(t, 5*time.Second, locker.lastTTL)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &countingLocker{failLock: true}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	err := manager.Save(context.Background(), "s1", domain.NewState("s1", "greeting"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquiring distributed lock")
}
