package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"horeca-pos/backend/internal/session/domain"
)

// uniqueViolation is the Postgres error code raised when an insert loses
// the race against the partial unique index on active sessions.
const uniqueViolation = "23505"

// PostgresRepository persists sessions in the cobrowse_sessions table. The
// partial unique index (tenant_id) WHERE status='active' enforces the
// at-most-one-active invariant in the store itself.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = "id, tenant_id, operator_name, status, started_at, ended_at"

// GetByID returns the session for id, or nil if not found. It returns an
// error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM cobrowse_sessions WHERE id = $1", id)
	return scanSession(row)
}

// ActiveByTenant returns the most recent active session for the tenant, or
// nil if none is active.
func (r *PostgresRepository) ActiveByTenant(ctx context.Context, tenantID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+` FROM cobrowse_sessions
		 WHERE tenant_id = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`, tenantID, domain.StatusActive)
	return scanSession(row)
}

// StartExclusive ends any active session for the tenant and inserts s in
// one transaction. If a racing start commits first, the insert hits the
// partial unique index; the whole sequence is retried once so the last
// writer wins without surfacing an error.
func (r *PostgresRepository) StartExclusive(ctx context.Context, s *domain.Session) error {
	err := r.startOnce(ctx, s)
	if isUniqueViolation(err) {
		err = r.startOnce(ctx, s)
	}
	return err
}

func (r *PostgresRepository) startOnce(ctx context.Context, s *domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE cobrowse_sessions SET status = $1, ended_at = $2
		 WHERE tenant_id = $3 AND status = $4`,
		domain.StatusEnded, s.StartedAt, s.TenantID, domain.StatusActive); err != nil {
		return fmt.Errorf("end existing sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cobrowse_sessions (id, tenant_id, operator_name, status, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, NULL)`,
		s.ID, s.TenantID, s.OperatorName, domain.StatusActive, s.StartedAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return tx.Commit()
}

// End marks the session ended at the given time; already ended sessions
// are left as they are.
func (r *PostgresRepository) End(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cobrowse_sessions SET status = $1, ended_at = $2
		 WHERE id = $3 AND status = $4`,
		domain.StatusEnded, at, id, domain.StatusActive)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var endedAt sql.NullTime
	err := row.Scan(&s.ID, &s.TenantID, &s.OperatorName, &s.Status, &s.StartedAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
