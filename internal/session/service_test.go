package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"horeca-pos/backend/internal/session/domain"
)

type fakeRepository struct {
	byID     map[string]*domain.Session
	active   map[string]*domain.Session
	startErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byID:   make(map[string]*domain.Session),
		active: make(map[string]*domain.Session),
	}
}

func (r *fakeRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.byID[id], nil
}

func (r *fakeRepository) ActiveByTenant(ctx context.Context, tenantID string) (*domain.Session, error) {
	return r.active[tenantID], nil
}

func (r *fakeRepository) StartExclusive(ctx context.Context, s *domain.Session) error {
	if r.startErr != nil {
		return r.startErr
	}
	if prev := r.active[s.TenantID]; prev != nil {
		now := time.Now().UTC()
		prev.Status = domain.StatusEnded
		prev.EndedAt = &now
	}
	r.byID[s.ID] = s
	r.active[s.TenantID] = s
	return nil
}

func (r *fakeRepository) End(ctx context.Context, id string, at time.Time) error {
	s := r.byID[id]
	if s == nil || s.Status == domain.StatusEnded {
		return nil
	}
	s.Status = domain.StatusEnded
	s.EndedAt = &at
	delete(r.active, s.TenantID)
	return nil
}

func TestServiceStart(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	frozen := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	sess, err := svc.Start(context.Background(), "tenant-1", "Rudi")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.ID == "" {
		t.Error("session id not assigned")
	}
	if sess.TenantID != "tenant-1" || sess.OperatorName != "Rudi" {
		t.Errorf("session = %+v", sess)
	}
	if sess.Status != domain.StatusActive || !sess.StartedAt.Equal(frozen) {
		t.Errorf("status = %q, started = %v", sess.Status, sess.StartedAt)
	}
}

func TestServiceStartReplacesActive(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	first, err := svc.Start(context.Background(), "tenant-1", "Rudi")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := svc.Start(context.Background(), "tenant-1", "Anja")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}

	if repo.byID[first.ID].Status != domain.StatusEnded {
		t.Error("first session still active after racing start")
	}
	active, _ := svc.Active(context.Background(), "tenant-1")
	if active == nil || active.ID != second.ID {
		t.Errorf("active = %+v, want %s", active, second.ID)
	}
}

func TestServiceEnd(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	sess, err := svc.Start(context.Background(), "tenant-1", "Rudi")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := svc.End(context.Background(), sess.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if repo.byID[sess.ID].Status != domain.StatusEnded || repo.byID[sess.ID].EndedAt == nil {
		t.Errorf("ended session = %+v", repo.byID[sess.ID])
	}
	if active, _ := svc.Active(context.Background(), "tenant-1"); active != nil {
		t.Errorf("active after end = %+v", active)
	}

	// Ending again is a no-op.
	if err := svc.End(context.Background(), sess.ID); err != nil {
		t.Fatalf("second end: %v", err)
	}
}

func TestServiceInvalidInput(t *testing.T) {
	svc := NewService(newFakeRepository())
	ctx := context.Background()

	if _, err := svc.Start(ctx, "", "Rudi"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty tenant: %v", err)
	}
	if _, err := svc.Start(ctx, "tenant-1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty operator: %v", err)
	}
	if err := svc.End(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty session id: %v", err)
	}
	if _, err := svc.Active(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty tenant for active: %v", err)
	}
}

func TestServiceStartRepositoryFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.startErr = errors.New("connection refused")
	svc := NewService(repo)

	if _, err := svc.Start(context.Background(), "tenant-1", "Rudi"); err == nil {
		t.Fatal("start swallowed repository error")
	}
}
