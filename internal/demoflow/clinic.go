// Package demoflow ships a complete clinic booking flow used by the CLI,
// the replay command and the integration tests. It exercises the whole
// engine surface: stable points, slot caching, failure categories,
// transfer negotiation and task resumption.
package demoflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/domain"
)

// Clinic is a deterministic in-memory booking backend standing in for a
// real appointment system.
type Clinic struct {
	mu           sync.Mutex
	availability map[string]map[string][]domain.Slot
	booked       map[string]string
	pricing      map[string]string
	answers      map[string]string
	bookErr      error
	availErr     error
}

// NewClinic seeds a backend with two services and a few days of
// availability.
func NewClinic() *Clinic {
	c := &Clinic{
		availability: make(map[string]map[string][]domain.Slot),
		booked:       make(map[string]string),
		pricing: map[string]string{
			"ultrasound":  "90 EUR",
			"orthopedics": "120 EUR",
		},
		answers: map[string]string{
			"opening_hours": "We are open Monday to Friday, 8:00 to 18:00.",
			"address":       "Via Roma 42, second floor.",
			"parking":       "Free parking is available behind the building.",
			"preparation":   "For an ultrasound, please fast for six hours before the appointment.",
		},
	}
	c.seed("ultrasound", "2026-09-01", "09:00", "09:30", "11:00")
	c.seed("ultrasound", "2026-09-02", "10:00", "15:30")
	c.seed("orthopedics", "2026-09-01", "09:00", "14:00")
	c.seed("orthopedics", "2026-09-03", "08:30", "16:00")
	return c
}

func (c *Clinic) seed(service, date string, times ...string) {
	if c.availability[service] == nil {
		c.availability[service] = make(map[string][]domain.Slot)
	}
	for _, t := range times {
		c.availability[service][date] = append(c.availability[service][date], domain.Slot{
			ID:    service + "-" + date + "-" + t,
			Owner: service,
			Date:  date,
			Time:  t,
		})
	}
}

// Services lists the bookable service identifiers.
func (c *Clinic) Services() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.availability))
	for svc := range c.availability {
		out = append(out, svc)
	}
	return out
}

// HasService reports whether the identifier is bookable.
func (c *Clinic) HasService(service string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.availability[service]
	return ok
}

// Availability returns the open slots for a service on a date.
func (c *Clinic) Availability(ctx context.Context, service, date string) ([]domain.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.availErr != nil {
		return nil, c.availErr
	}

	var open []domain.Slot
	for _, s := range c.availability[service][date] {
		if _, taken := c.booked[s.ID]; !taken {
			open = append(open, s)
		}
	}
	return open, nil
}

// Book reserves a slot and returns a confirmation code. Booking a slot
// twice or booking one that was never offered is an error.
func (c *Clinic) Book(ctx context.Context, slot domain.Slot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bookErr != nil {
		return "", c.bookErr
	}

	found := false
	for _, s := range c.availability[slot.Owner][slot.Date] {
		if s.ID == slot.ID {
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("unknown slot %s", slot.ID)
	}
	if _, taken := c.booked[slot.ID]; taken {
		return "", fmt.Errorf("slot %s is already booked", slot.ID)
	}

	code := strings.ToUpper(uuid.NewString()[:8])
	c.booked[slot.ID] = code
	return code, nil
}

// Pricing returns the listed price for a service.
func (c *Clinic) Pricing(service string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pricing[service]
	return p, ok
}

// Answer returns the knowledge base entry for a topic.
func (c *Clinic) Answer(topic string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.answers[strings.ToLower(strings.TrimSpace(topic))]
	return a, ok
}

// FailAvailability makes Availability return err until reset with nil.
// Test hook.
func (c *Clinic) FailAvailability(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.availErr = err
}

// FailBooking makes Book return err until reset with nil. Test hook.
func (c *Clinic) FailBooking(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bookErr = err
}
