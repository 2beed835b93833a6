package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStore())
}

func TestStore_SaveClonesInput(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewState("s1", "greeting")
	require.NoError(t, state.Set("service", "ultrasound"))
	require.NoError(t, store.Save(ctx, "s1", state))

	// Mutations after Save must not reach the stored copy, and loads must
	// hand out independent copies too.
	require.NoError(t, state.Set("service", "orthopedics"))

	first, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ultrasound", first.GetString("service"))

	require.NoError(t, first.Set("service", "dermatology"))

	second, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ultrasound", second.GetString("service"))
}
