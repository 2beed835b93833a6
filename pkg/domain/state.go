package domain

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// State is the mutable session container: one string-keyed map of
// heterogeneous values, visible to every handler and the orchestrator for
// the lifetime of a single conversation session.
//
// The engine's own bookkeeping (failure ledger, slot cache, resume marker,
// active task) lives under the reserved key prefix; Set rejects business
// writes into that namespace so the two can never collide.
type State struct {
	// ID is the session identifier.
	ID string `json:"id"`

	// Node is the name of the current conversation node.
	Node string `json:"node"`

	// History is the conversation transcript handed to the model.
	History []Message `json:"history"`

	// Values holds session data. Handlers read and write business keys
	// through Get/Set.
	Values map[string]any `json:"values"`
}

// NewState creates a clean session positioned at the given entry node.
func NewState(id, entryNode string) *State {
	return &State{
		ID:     id,
		Node:   entryNode,
		Values: make(map[string]any),
	}
}

// Set stores a business value. Keys under the reserved prefix are
// rejected; internal structures have dedicated accessors.
func (s *State) Set(key string, value any) error {
	if strings.HasPrefix(key, ReservedPrefix) {
		return fmt.Errorf("%w: %q", ErrReservedKey, key)
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
	return nil
}

// Get returns a business value.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// GetString returns a business value as a string, or "" when absent or of
// another type.
func (s *State) GetString(key string) string {
	v, _ := s.Values[key].(string)
	return v
}

// Delete removes a business value.
func (s *State) Delete(key string) {
	delete(s.Values, key)
}

// Slots returns the session's slot cache, creating it on first use.
// After a round trip through a persistence adapter the stored value is a
// plain map; it is rehydrated transparently.
func (s *State) Slots() *SlotCache {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	if c, ok := s.Values[keySlots].(*SlotCache); ok {
		return c
	}
	c := NewSlotCache()
	if raw, ok := s.Values[keySlots]; ok {
		if err := rehydrate(raw, c); err != nil {
			c = NewSlotCache()
		}
	}
	s.Values[keySlots] = c
	return c
}

// Failures returns the session's failure ledger, creating it on first use.
func (s *State) Failures() *FailureLedger {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	if l, ok := s.Values[keyFailures].(*FailureLedger); ok {
		return l
	}
	l := NewFailureLedger()
	if raw, ok := s.Values[keyFailures]; ok {
		if err := rehydrate(raw, l); err != nil {
			l = NewFailureLedger()
		}
	}
	s.Values[keyFailures] = l
	return l
}

// BeginTask marks a multi-step task (e.g. "booking") as in progress.
func (s *State) BeginTask(name string) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[keyTask] = name
}

// ActiveTask returns the task currently in progress, if any.
func (s *State) ActiveTask() (string, bool) {
	name, ok := s.Values[keyTask].(string)
	return name, ok && name != ""
}

// EndTask clears the active task and, with it, the failure ledger: the
// failures belonged to the task that just finished.
func (s *State) EndTask() {
	delete(s.Values, keyTask)
	s.Failures().Clear()
}

// ResumeMarker is a saved position in a multi-step task, captured at
// designated stable points and consumed when an interruption hands
// control back.
type ResumeMarker struct {
	Node string `json:"node"`
	Task string `json:"task"`
}

// SaveResumePoint records the marker, overwriting any previous one.
func (s *State) SaveResumePoint(m ResumeMarker) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[keyResume] = m
}

// ResumePoint returns the current marker without consuming it.
func (s *State) ResumePoint() (ResumeMarker, bool) {
	switch v := s.Values[keyResume].(type) {
	case ResumeMarker:
		return v, v.Node != ""
	case map[string]any:
		var m ResumeMarker
		if err := rehydrate(v, &m); err == nil && m.Node != "" {
			s.Values[keyResume] = m
			return m, true
		}
	}
	return ResumeMarker{}, false
}

// TakeResumeMarker returns and clears the marker.
func (s *State) TakeResumeMarker() (ResumeMarker, bool) {
	m, ok := s.ResumePoint()
	delete(s.Values, keyResume)
	return m, ok
}

// DiscardResumeMarker drops the marker, e.g. when a transfer is accepted
// and the interrupted task will not be resumed.
func (s *State) DiscardResumeMarker() {
	delete(s.Values, keyResume)
}

// Clone returns a deep copy suitable for transactional turn processing:
// mutations on the clone are invisible until the caller commits it.
// Engine-owned structures are copied deeply; business values are copied
// by key (handlers replace values rather than mutating them in place).
func (s *State) Clone() *State {
	c := &State{
		ID:      s.ID,
		Node:    s.Node,
		History: append([]Message(nil), s.History...),
		Values:  make(map[string]any, len(s.Values)),
	}
	for k, v := range s.Values {
		switch tv := v.(type) {
		case *SlotCache:
			c.Values[k] = tv.Clone()
		case *FailureLedger:
			c.Values[k] = tv.Clone()
		default:
			c.Values[k] = v
		}
	}
	return c
}

// rehydrate decodes a JSON-roundtripped map back into a typed engine
// structure. Weak typing tolerates numeric widening; time fields decode
// from RFC 3339 strings.
func rehydrate(raw, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05.999999999Z07:00"),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
