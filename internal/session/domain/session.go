package domain

import "time"

// Session status values.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Session represents one co-browsing guidance episode scoped to a tenant.
// At most one session per tenant is active at any time; rows are retained
// after ending for audit.
type Session struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	OperatorName string     `json:"operator_name"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"` // nil while active
}

// Active reports whether the session has not ended.
func (s *Session) Active() bool {
	return s != nil && s.Status == StatusActive
}
