package domain

import "time"

// Policy is a tenant-level Rego policy overriding the default co-browse
// access rules. Rules holds the Rego module source.
type Policy struct {
	ID        string
	TenantID  string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}
