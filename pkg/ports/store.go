package ports

import (
	"context"

	"github.com/parleyhq/parley/pkg/domain"
)

// StateStore persists session state between turns. A session's state is
// in-memory for its lifetime from the engine's point of view; the store
// exists so replicas can share sessions, not for durable business records.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of live sessions.
	List(ctx context.Context) ([]string, error)
}
