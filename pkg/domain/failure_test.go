package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(cat FailureCategory) FailureRecord {
	return FailureRecord{Category: cat, Function: "get_pricing", Reason: "backend down", At: time.Now().UTC()}
}

func TestFailureLedger_RecordCountsPerCategory(t *testing.T) {
	l := NewFailureLedger()

	assert.Equal(t, 1, l.Record(rec(CategoryRecoverable)))
	assert.Equal(t, 2, l.Record(rec(CategoryRecoverable)))
	assert.Equal(t, 1, l.Record(rec(CategoryImmediate)))
	assert.Len(t, l.History, 3)
}

func TestFailureLedger_ResetCountsKeepsHistoryAndFlag(t *testing.T) {
	l := NewFailureLedger()
	l.Record(rec(CategoryRecoverable))
	l.RequestTransfer()
	l.Record(rec(CategoryFrustrated))

	l.ResetCounts()

	assert.Empty(t, l.Counts)
	assert.NotEmpty(t, l.History)
	assert.True(t, l.TransferRequested, "a successful call must not forget that the caller asked for an operator")
}

func TestFailureLedger_RequestTransfer(t *testing.T) {
	l := NewFailureLedger()
	l.Record(rec(CategoryRecoverable))
	l.Record(rec(CategoryRecoverable))

	l.RequestTransfer()

	assert.True(t, l.TransferRequested)
	assert.Equal(t, 0, l.Counts[CategoryRecoverable], "asking for help restarts the count for the new attempt")
}

func TestFailureLedger_Clear(t *testing.T) {
	l := NewFailureLedger()
	l.Record(rec(CategoryRecoverable))
	l.RequestTransfer()

	l.Clear()

	assert.Empty(t, l.Counts)
	assert.Empty(t, l.History)
	assert.False(t, l.TransferRequested)
}

func TestFailureLedger_Clone(t *testing.T) {
	l := NewFailureLedger()
	l.Record(rec(CategoryRecoverable))

	c := l.Clone()
	c.Record(rec(CategoryRecoverable))
	c.TransferRequested = true

	assert.Equal(t, 1, l.Counts[CategoryRecoverable])
	assert.False(t, l.TransferRequested)
}

func TestFailurePolicy_Threshold(t *testing.T) {
	p := DefaultFailurePolicy()

	assert.Equal(t, 1, p.Threshold(CategoryImmediate))
	assert.Equal(t, 1, p.Threshold(CategoryFrustrated))
	assert.Equal(t, 3, p.Threshold(CategoryRecoverable))

	t.Run("unknown category falls back to recoverable", func(t *testing.T) {
		assert.Equal(t, 3, p.Threshold("mystery"))
	})

	t.Run("empty policy has a sane floor", func(t *testing.T) {
		assert.Equal(t, 3, FailurePolicy{}.Threshold(CategoryRecoverable))
	})
}

func TestFailurePolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultFailurePolicy().Validate())

	bad := FailurePolicy{Thresholds: map[FailureCategory]int{CategoryImmediate: 0}}
	err := bad.Validate()
	require.Error(t, err)

	var perr *PolicyError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CategoryImmediate, perr.Category)
}
