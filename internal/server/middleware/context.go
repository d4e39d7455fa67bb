package middleware

import (
	"context"

	"horeca-pos/backend/internal/security"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the authenticated staff identity.
// Handlers read it via GetIdentity or the field accessors.
func WithIdentity(ctx context.Context, id security.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the identity from context and true if set.
func GetIdentity(ctx context.Context) (security.Identity, bool) {
	v, ok := ctx.Value(identityKey).(security.Identity)
	return v, ok
}

// GetTenantID returns the tenant_id from context and true if set; otherwise "", false.
func GetTenantID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok || id.TenantID == "" {
		return "", false
	}
	return id.TenantID, true
}

// GetStaffRole returns the staff role from context and true if set; otherwise "", false.
func GetStaffRole(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok || id.Role == "" {
		return "", false
	}
	return id.Role, true
}

// GetDisplayName returns the staff display name from context and true if set; otherwise "", false.
func GetDisplayName(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok || id.DisplayName == "" {
		return "", false
	}
	return id.DisplayName, true
}
