package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SetRejectsReservedKeys(t *testing.T) {
	s := NewState("s1", "greeting")

	err := s.Set(ReservedPrefix+"failures", "anything")
	require.ErrorIs(t, err, ErrReservedKey)

	require.NoError(t, s.Set("caller_name", "Ada"))
	assert.Equal(t, "Ada", s.GetString("caller_name"))
}

func TestState_TaskLifecycle(t *testing.T) {
	s := NewState("s1", "greeting")

	_, ok := s.ActiveTask()
	assert.False(t, ok)

	s.BeginTask("booking")
	task, ok := s.ActiveTask()
	require.True(t, ok)
	assert.Equal(t, "booking", task)

	s.Failures().Record(FailureRecord{Category: CategoryRecoverable, Function: "find_slots"})
	s.EndTask()

	_, ok = s.ActiveTask()
	assert.False(t, ok)
	assert.Empty(t, s.Failures().Counts, "failures belong to the task that produced them")
	assert.Empty(t, s.Failures().History)
}

func TestState_ResumeMarker(t *testing.T) {
	s := NewState("s1", "slot_search")

	_, ok := s.ResumePoint()
	assert.False(t, ok)

	s.SaveResumePoint(ResumeMarker{Node: "slot_search", Task: "booking"})

	m, ok := s.ResumePoint()
	require.True(t, ok)
	assert.Equal(t, "slot_search", m.Node)

	m, ok = s.TakeResumeMarker()
	require.True(t, ok)
	assert.Equal(t, "booking", m.Task)

	_, ok = s.ResumePoint()
	assert.False(t, ok, "taking the marker consumes it")

	s.SaveResumePoint(ResumeMarker{Node: "slot_search", Task: "booking"})
	s.DiscardResumeMarker()
	_, ok = s.ResumePoint()
	assert.False(t, ok)
}

// A state that went through a JSON store comes back with plain maps in
// Values; the typed accessors must transparently rebuild their structures.
func TestState_RehydrationAfterJSONRoundTrip(t *testing.T) {
	s := NewState("s1", "slot_selection")
	s.History = append(s.History, Message{Role: RoleUser, Content: "hi"})
	s.BeginTask("booking")
	s.SaveResumePoint(ResumeMarker{Node: "slot_search", Task: "booking"})

	cache := s.Slots()
	cache.SetService("ultrasound")
	cache.SetAuthoritative([]Slot{{ID: "u1", Owner: "ultrasound", Date: "2026-09-01", Time: "09:30"}})

	ledger := s.Failures()
	ledger.Record(FailureRecord{Category: CategoryRecoverable, Function: "get_pricing", Reason: "down", At: time.Now().UTC()})
	ledger.RequestTransfer()

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var loaded State
	require.NoError(t, json.Unmarshal(data, &loaded))

	assert.Equal(t, "slot_selection", loaded.Node)
	require.Len(t, loaded.History, 1)

	task, ok := loaded.ActiveTask()
	require.True(t, ok)
	assert.Equal(t, "booking", task)

	m, ok := loaded.ResumePoint()
	require.True(t, ok)
	assert.Equal(t, "slot_search", m.Node)

	gotCache := loaded.Slots()
	assert.Equal(t, "ultrasound", gotCache.Service)
	slot, ok := gotCache.Lookup("2026-09-01", "09:30")
	require.True(t, ok)
	assert.Equal(t, "u1", slot.ID)
	assert.True(t, gotCache.Verify(slot))

	gotLedger := loaded.Failures()
	assert.True(t, gotLedger.TransferRequested)
	require.Len(t, gotLedger.History, 1)
	assert.Equal(t, CategoryRecoverable, gotLedger.History[0].Category)
}

func TestState_CloneIsolation(t *testing.T) {
	s := NewState("s1", "greeting")
	require.NoError(t, s.Set("caller_name", "Ada"))
	s.Slots().SetService("ultrasound")
	s.Failures().Record(FailureRecord{Category: CategoryRecoverable, Function: "find_slots"})

	c := s.Clone()
	require.NoError(t, c.Set("caller_name", "Grace"))
	c.Node = "confirm"
	c.History = append(c.History, Message{Role: RoleUser, Content: "hi"})
	c.Slots().SetService("orthopedics")
	c.Failures().Record(FailureRecord{Category: CategoryRecoverable, Function: "find_slots"})

	assert.Equal(t, "Ada", s.GetString("caller_name"))
	assert.Equal(t, "greeting", s.Node)
	assert.Empty(t, s.History)
	assert.Equal(t, "ultrasound", s.Slots().Service)
	assert.Equal(t, 1, s.Failures().Counts[CategoryRecoverable])
}

func TestOutcome_Constructors(t *testing.T) {
	ok := OK(map[string]any{"answer": 42})
	assert.True(t, ok.Success)
	assert.Equal(t, true, ok.Payload["success"])

	fail := Fail(CategoryImmediate, "boom")
	assert.False(t, fail.Success)
	assert.Equal(t, CategoryImmediate, fail.Category)
	assert.Equal(t, "boom", fail.Reason())

	fixable := UserFixable("typo in the date")
	assert.True(t, fixable.Ignorable)
	assert.False(t, fixable.Success)

	abort := Abort("stale slot")
	assert.True(t, abort.Violation)

	resume := Resume(nil)
	assert.True(t, resume.Success)
	assert.True(t, resume.ResumeTask)
}

func TestOutcome_WithContinuation(t *testing.T) {
	s := NewState("s1", "slot_search")

	plain := OK(nil).WithContinuation(s)
	_, has := plain.Payload["continue_task"]
	assert.False(t, has, "no reminder without an active task")

	s.BeginTask("booking")
	reminded := OK(nil).WithContinuation(s)
	assert.Equal(t, true, reminded.Payload["continue_task"])
	assert.Contains(t, reminded.Payload["instruction"], "booking")
}
