package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"horeca-pos/backend/internal/policy/repository"
)

// Default Rego policy: support staff and admins may operate, managers may
// additionally view. Tenants override this with their own enabled policies.
const defaultRegoPolicy = `package horeca.cobrowse

default allow_operate = false
default allow_view = false

allow_operate if {
	input.staff.role == "support"
}

allow_operate if {
	input.staff.role == "admin"
}

allow_view if {
	allow_operate
}

allow_view if {
	input.staff.role == "manager"
}
`

// OPAEvaluator evaluates co-browse access policies using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based policy evaluator.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and
// evaluate the default policy. Does not call the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	input := buildInput(AccessInput{TenantID: "", StaffRole: "support"})
	q := rego.New(
		rego.Query("data.horeca.cobrowse.allow_operate"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateAccess evaluates co-browse access using the tenant's enabled
// Rego policies, falling back to the default policy. A failed evaluation
// denies operate but never returns an error to the caller.
func (e *OPAEvaluator) EvaluateAccess(ctx context.Context, in AccessInput) (Decision, error) {
	input := buildInput(in)

	var policies []string
	if e.policyRepo != nil && in.TenantID != "" {
		enabled, err := e.policyRepo.EnabledByTenant(ctx, in.TenantID)
		if err != nil {
			log.Printf("policy: failed to load policies for tenant %s: %v", in.TenantID, err)
		} else {
			for _, p := range enabled {
				if p.Enabled && p.Rules != "" {
					policies = append(policies, p.Rules)
				}
			}
		}
	}
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}

	decision, err := e.evaluatePolicies(ctx, policies, input)
	if err != nil {
		log.Printf("policy: evaluation failed: %v, denying access", err)
		return Decision{}, nil
	}
	return decision, nil
}

func buildInput(in AccessInput) map[string]interface{} {
	return map[string]interface{}{
		"tenant_id": in.TenantID,
		"staff": map[string]interface{}{
			"role": in.StaffRole,
			"name": in.DisplayName,
		},
	}
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (Decision, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return Decision{}, fmt.Errorf("compile policies: %w", err)
	}

	var out Decision
	out.AllowOperate = e.queryBool(ctx, compiler, input, "data.horeca.cobrowse.allow_operate")
	out.AllowView = e.queryBool(ctx, compiler, input, "data.horeca.cobrowse.allow_view")
	return out, nil
}

func (e *OPAEvaluator) queryBool(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, query string) bool {
	q := rego.New(
		rego.Query(query),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	return ok && v
}
