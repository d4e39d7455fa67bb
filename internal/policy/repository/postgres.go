package repository

import (
	"context"
	"database/sql"
	"errors"

	"horeca-pos/backend/internal/policy/domain"
)

const policyColumns = "id, tenant_id, rules, enabled, created_at"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the policy for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+policyColumns+" FROM policies WHERE id = $1", id)
	return scanPolicy(row)
}

// ListByTenant returns all policies for the given tenant, newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+policyColumns+" FROM policies WHERE tenant_id = $1 ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPolicies(rows)
}

// EnabledByTenant returns the enabled policies for the given tenant.
func (r *PostgresRepository) EnabledByTenant(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+policyColumns+" FROM policies WHERE tenant_id = $1 AND enabled ORDER BY created_at", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPolicies(rows)
}

// Create persists the policy. The policy must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO policies (id, tenant_id, rules, enabled, created_at) VALUES ($1, $2, $3, $4, $5)",
		p.ID, p.TenantID, p.Rules, p.Enabled, p.CreatedAt)
	return err
}

// Update updates the existing policy record.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Policy) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE policies SET rules = $2, enabled = $3 WHERE id = $1",
		p.ID, p.Rules, p.Enabled)
	return err
}

func scanPolicy(row *sql.Row) (*domain.Policy, error) {
	var p domain.Policy
	err := row.Scan(&p.ID, &p.TenantID, &p.Rules, &p.Enabled, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func collectPolicies(rows *sql.Rows) ([]*domain.Policy, error) {
	var out []*domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
