package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Function call outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeIgnored   = "ignored"
	OutcomeViolation = "violation"
)

// Slot cache event labels.
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheFallbackHit = "fallback_hit"
	CacheInvalidated = "invalidated"
)

// Metrics bundles the engine's Prometheus collectors.
type Metrics struct {
	Turns          prometheus.Counter
	FunctionCalls  *prometheus.CounterVec
	Escalations    *prometheus.CounterVec
	CacheEvents    *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// New creates the collectors and registers them on reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry or a private
// registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := newCollectors()
	if reg != nil {
		reg.MustRegister(m.Turns, m.FunctionCalls, m.Escalations, m.CacheEvents, m.ActiveSessions)
	}
	return m
}

// NewNop creates unregistered collectors, for callers that do not care
// about metrics. The collectors still work; they just are not scraped.
func NewNop() *Metrics {
	return newCollectors()
}

func newCollectors() *Metrics {
	return &Metrics{
		Turns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "turns_total",
			Help:      "Conversation turns processed.",
		}),
		FunctionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "function_calls_total",
			Help:      "Dispatched function calls by function name and outcome.",
		}, []string{"function", "outcome"}),
		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "escalations_total",
			Help:      "Forced transfers to a human operator by failure category.",
		}, []string{"category"}),
		CacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "slot_cache_events_total",
			Help:      "Slot cache lookups and invalidations.",
		}, []string{"event"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parley",
			Name:      "active_sessions",
			Help:      "Sessions currently live.",
		}),
	}
}
