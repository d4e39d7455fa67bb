package engine

import "context"

// Decision holds the result of co-browse access policy evaluation.
type Decision struct {
	AllowOperate bool
	AllowView    bool
}

// AccessInput describes the staff member requesting co-browse access.
type AccessInput struct {
	TenantID    string
	StaffRole   string
	DisplayName string
}

// Evaluator evaluates co-browse access policies using OPA or other engines.
type Evaluator interface {
	// EvaluateAccess evaluates platform and tenant policy for the given
	// staff member. Returns whether they may operate a co-browse session
	// (drive the viewer's screen) and whether they may view one.
	EvaluateAccess(ctx context.Context, in AccessInput) (Decision, error)
}
