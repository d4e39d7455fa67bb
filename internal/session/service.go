// Package session owns the co-browsing session record: domain type,
// repositories, the lifecycle service, and the HTTP surface.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"horeca-pos/backend/internal/session/domain"
	"horeca-pos/backend/internal/session/repository"
)

// ErrInvalidInput is returned for empty tenant, operator, or session ids.
var ErrInvalidInput = errors.New("session: invalid input")

// Service implements the session lifecycle over a repository. It satisfies
// the cobrowse.SessionStore collaborator interface, so server-colocated
// page runtimes can use it directly while remote runtimes go through
// client.StoreClient.
type Service struct {
	repo repository.Repository
	now  func() time.Time
}

// NewService returns a session service backed by repo.
func NewService(repo repository.Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Start ends any active session for the tenant and creates a new active
// one, returning the full record.
func (s *Service) Start(ctx context.Context, tenantID, operatorName string) (*domain.Session, error) {
	if tenantID == "" || operatorName == "" {
		return nil, ErrInvalidInput
	}
	sess := &domain.Session{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		OperatorName: operatorName,
		Status:       domain.StatusActive,
		StartedAt:    s.now(),
	}
	if err := s.repo.StartExclusive(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// End marks the session ended.
func (s *Service) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidInput
	}
	return s.repo.End(ctx, sessionID, s.now())
}

// Active returns the most recent active session for the tenant, or nil.
func (s *Service) Active(ctx context.Context, tenantID string) (*domain.Session, error) {
	if tenantID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ActiveByTenant(ctx, tenantID)
}
