// seed inserts development sample data for local testing. Run via ./scripts/seed.sh.
// Idempotent: skips inserts if the dev tenant policy already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"horeca-pos/backend/internal/config"
	"horeca-pos/backend/internal/db"
	policydomain "horeca-pos/backend/internal/policy/domain"
	policyrepo "horeca-pos/backend/internal/policy/repository"
	sessiondomain "horeca-pos/backend/internal/session/domain"
	sessionrepo "horeca-pos/backend/internal/session/repository"
)

// devRegoPolicy lets managers operate sessions too, on top of the built-in
// default for support and admin staff.
const devRegoPolicy = `package horeca.cobrowse

default allow_operate = false
default allow_view = false

allow_operate if {
	input.staff.role == "support"
}

allow_operate if {
	input.staff.role == "admin"
}

allow_operate if {
	input.staff.role == "manager"
}

allow_view if {
	allow_operate
}
`

const (
	devTenantID  = "dev-tenant-001"
	devPolicyID  = "dev-policy-001"
	devSessionID = "dev-session-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	policies := policyrepo.NewPostgresRepository(conn)

	existing, err := policies.GetByID(ctx, devPolicyID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev policy exists). Skipping.")
		os.Exit(0)
	}

	now := time.Now().UTC()
	if err := policies.Create(ctx, &policydomain.Policy{
		ID:        devPolicyID,
		TenantID:  devTenantID,
		Rules:     devRegoPolicy,
		Enabled:   true,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("seed policy: %v", err)
	}

	// One ended sample session so the session list is not empty.
	sessions := sessionrepo.NewPostgresRepository(conn)
	sess := &sessiondomain.Session{
		ID:           devSessionID,
		TenantID:     devTenantID,
		OperatorName: "Rudi",
		Status:       sessiondomain.StatusActive,
		StartedAt:    now.Add(-30 * time.Minute),
	}
	if err := sessions.StartExclusive(ctx, sess); err != nil {
		log.Fatalf("seed session: %v", err)
	}
	if err := sessions.End(ctx, devSessionID, now.Add(-25*time.Minute)); err != nil {
		log.Fatalf("seed session end: %v", err)
	}

	log.Printf("Seed applied: tenant %s, policy %s, sample session %s", devTenantID, devPolicyID, devSessionID)
}
