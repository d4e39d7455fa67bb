// Package server assembles the HTTP surface: session API, realtime
// gateway, and health checks, wrapped in auth, audit, and telemetry
// middleware.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	auditrepo "horeca-pos/backend/internal/audit/repository"
	"horeca-pos/backend/internal/security"
	"horeca-pos/backend/internal/server/middleware"
	sessionhandler "horeca-pos/backend/internal/session/handler"
	"horeca-pos/backend/internal/telemetry/producer"
)

// Pinger reports database reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports policy engine health (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies for the HTTP handler. Nil fields disable
// the corresponding concern.
type Deps struct {
	// Tokens validates Bearer tokens. Required.
	Tokens *security.TokenProvider
	// Sessions serves the session API. Required.
	Sessions *sessionhandler.Handler
	// Realtime serves the websocket gateway at /realtime. May be nil.
	Realtime http.Handler
	// AuditRepo records audited requests. May be nil.
	AuditRepo auditrepo.Repository
	// Telemetry emits http_request events. May be nil.
	Telemetry producer.Producer
	// DBPinger and Policy feed the readiness check. Either may be nil.
	DBPinger Pinger
	Policy   PolicyChecker
}

// publicPaths do not require a Bearer token at the middleware and are not
// audited or telemetered. The gateway validates its own tokens on join
// (Authorization header or token query parameter, for clients that cannot
// set headers).
var publicPaths = map[string]bool{
	"/healthz":  true,
	"/realtime": true,
}

// NewHandler returns the assembled HTTP handler.
func NewHandler(deps Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthz(deps.DBPinger, deps.Policy))
	deps.Sessions.Register(mux)
	if deps.Realtime != nil {
		mux.Handle("/realtime", deps.Realtime)
	}

	// Telemetry and Audit sit inside Auth so both see the identity-carrying
	// request context and events carry tenant attribution.
	var h http.Handler = mux
	if deps.AuditRepo != nil {
		h = middleware.Audit(deps.AuditRepo, publicPaths)(h)
	}
	h = middleware.Telemetry(deps.Telemetry, publicPaths)(h)
	h = middleware.Auth(deps.Tokens, publicPaths)(h)
	return h
}

type healthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// healthz reports readiness: serving only when the database and the
// policy engine both answer within the deadline.
func healthz(db Pinger, policy PolicyChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := healthResponse{Status: "serving"}
		status := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				resp = healthResponse{Status: "not_serving", Detail: "database unreachable"}
				status = http.StatusServiceUnavailable
			}
		}
		if status == http.StatusOK && policy != nil {
			if err := policy.HealthCheck(ctx); err != nil {
				resp = healthResponse{Status: "not_serving", Detail: "policy engine unhealthy"}
				status = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
