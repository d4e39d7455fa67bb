package repository

import (
	"context"
	"time"

	"horeca-pos/backend/internal/session/domain"
)

// Repository defines persistence for co-browsing sessions.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ActiveByTenant returns the most recent active session for the
	// tenant, or nil if none is active.
	ActiveByTenant(ctx context.Context, tenantID string) (*domain.Session, error)
	// StartExclusive ends any active session for the tenant and inserts s
	// as the new active one, as connected steps. Racing starts serialize
	// in the store, last write wins on the active row.
	StartExclusive(ctx context.Context, s *domain.Session) error
	// End marks the session ended at the given time. Ending an already
	// ended session is a no-op.
	End(ctx context.Context, id string, at time.Time) error
}
