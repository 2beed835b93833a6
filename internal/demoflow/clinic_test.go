package demoflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/domain"
)

func TestClinic_BookRemovesAvailability(t *testing.T) {
	clinic := NewClinic()
	ctx := context.Background()

	slots, err := clinic.Availability(ctx, "ultrasound", "2026-09-01")
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	code, err := clinic.Book(ctx, slots[0])
	require.NoError(t, err)
	assert.Len(t, code, 8)

	remaining, err := clinic.Availability(ctx, "ultrasound", "2026-09-01")
	require.NoError(t, err)
	assert.Len(t, remaining, len(slots)-1)
	for _, s := range remaining {
		assert.NotEqual(t, slots[0].ID, s.ID)
	}
}

func TestClinic_BookErrors(t *testing.T) {
	clinic := NewClinic()
	ctx := context.Background()

	t.Run("unknown slot", func(t *testing.T) {
		_, err := clinic.Book(ctx, domain.Slot{ID: "made-up", Owner: "ultrasound", Date: "2026-09-01"})
		assert.Error(t, err)
	})

	t.Run("double booking", func(t *testing.T) {
		slots, err := clinic.Availability(ctx, "orthopedics", "2026-09-01")
		require.NoError(t, err)
		require.NotEmpty(t, slots)

		_, err = clinic.Book(ctx, slots[0])
		require.NoError(t, err)
		_, err = clinic.Book(ctx, slots[0])
		assert.Error(t, err)
	})
}

func TestClinic_Answers(t *testing.T) {
	clinic := NewClinic()

	answer, ok := clinic.Answer("opening_hours")
	assert.True(t, ok)
	assert.NotEmpty(t, answer)

	_, ok = clinic.Answer("quantum_mechanics")
	assert.False(t, ok)

	price, ok := clinic.Pricing("ultrasound")
	assert.True(t, ok)
	assert.Equal(t, "90 EUR", price)
}
