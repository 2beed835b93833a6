package domain

import "context"

// Slot is one availability record fetched from a booking backend. Owner is
// the service identifier the slot was fetched for; it back-references the
// search context so a cached slot can never silently answer a lookup for a
// different service.
type Slot struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`

	// Date is the coarse cache key, formatted 2006-01-02.
	Date string `json:"date"`

	// Time is the fine cache key, formatted 15:04.
	Time string `json:"time"`

	// Extra carries backend-specific fields (center, resource, price)
	// the engine does not interpret.
	Extra map[string]any `json:"extra,omitempty"`
}

// SlotCache holds previously fetched availability data within one session.
// It is scoped to a single service context: switching the active task to a
// different service clears it entirely. There is no TTL; invalidation is
// always explicit.
type SlotCache struct {
	// Service is the identifier of the service context the cached entries
	// belong to.
	Service string `json:"service"`

	// Entries index slots by date key then time key.
	Entries map[string]map[string]Slot `json:"entries"`

	// Authoritative is the most recent full availability list fetched for
	// Service. Commits are verified against it.
	Authoritative []Slot `json:"authoritative"`
}

// NewSlotCache returns an empty cache with no service context.
func NewSlotCache() *SlotCache {
	return &SlotCache{Entries: make(map[string]map[string]Slot)}
}

// SetService switches the cache to a service context. Moving to a
// different service wipes every entry and the authoritative list: a
// multi-service session must never serve one service's slots while
// operating on another.
func (c *SlotCache) SetService(service string) {
	if c.Service == service {
		return
	}
	c.Service = service
	c.Entries = make(map[string]map[string]Slot)
	c.Authoritative = nil
}

// Put stores a slot under its (date, time) key. Slots from a different
// owner than the current service context are dropped rather than cached.
func (c *SlotCache) Put(slot Slot) {
	if slot.Owner != c.Service {
		return
	}
	if c.Entries == nil {
		c.Entries = make(map[string]map[string]Slot)
	}
	day := c.Entries[slot.Date]
	if day == nil {
		day = make(map[string]Slot)
		c.Entries[slot.Date] = day
	}
	day[slot.Time] = slot
}

// Lookup is the primary path: exact match on (date, time).
func (c *SlotCache) Lookup(date, time string) (Slot, bool) {
	day, ok := c.Entries[date]
	if !ok {
		return Slot{}, false
	}
	slot, ok := day[time]
	return slot, ok
}

// LookupByTime is the fallback path for lookups where the model expressed
// a time without an exact date: scan every cached date for the time key.
// A candidate is only accepted when its owner equals the current service
// context. Without that check a fallback scan can return an entry captured
// during a different service's search.
func (c *SlotCache) LookupByTime(time string) (Slot, bool) {
	for _, day := range c.Entries {
		if slot, ok := day[time]; ok && slot.Owner == c.Service {
			return slot, true
		}
	}
	return Slot{}, false
}

// SetAuthoritative replaces the authoritative list with the latest full
// availability response for the current service and indexes its entries.
func (c *SlotCache) SetAuthoritative(slots []Slot) {
	c.Authoritative = append([]Slot(nil), slots...)
	for _, s := range slots {
		c.Put(s)
	}
}

// Verify reports whether the slot is present in the authoritative list
// most recently fetched for the current service. A slot that fails Verify
// must never be committed; it may be stale or hallucinated.
func (c *SlotCache) Verify(slot Slot) bool {
	if slot.Owner != c.Service {
		return false
	}
	for _, s := range c.Authoritative {
		if s.ID == slot.ID && s.Date == slot.Date && s.Time == slot.Time {
			return true
		}
	}
	return false
}

// Len returns the number of cached entries.
func (c *SlotCache) Len() int {
	n := 0
	for _, day := range c.Entries {
		n += len(day)
	}
	return n
}

// Clear drops every entry and the authoritative list, keeping the service
// context.
func (c *SlotCache) Clear() {
	c.Entries = make(map[string]map[string]Slot)
	c.Authoritative = nil
}

// Clone returns an independent copy.
func (c *SlotCache) Clone() *SlotCache {
	n := &SlotCache{
		Service: c.Service,
		Entries: make(map[string]map[string]Slot, len(c.Entries)),
	}
	for date, day := range c.Entries {
		nd := make(map[string]Slot, len(day))
		for t, s := range day {
			nd[t] = s
		}
		n.Entries[date] = nd
	}
	n.Authoritative = append([]Slot(nil), c.Authoritative...)
	return n
}

// GuardedCommit runs commit only when the slot passes Verify. On an
// unverified slot it returns a hard-abort outcome without calling commit:
// silently proceeding on a possibly hallucinated slot is forbidden.
func (c *SlotCache) GuardedCommit(ctx context.Context, slot Slot, commit func(context.Context) (Outcome, *Node)) (Outcome, *Node) {
	if !c.Verify(slot) {
		return Abort("slot " + slot.Date + " " + slot.Time + " is not in the latest availability list for " + c.Service), nil
	}
	return commit(ctx)
}
