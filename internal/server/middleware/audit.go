package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"horeca-pos/backend/internal/audit"
	"horeca-pos/backend/internal/audit/domain"
	auditrepo "horeca-pos/backend/internal/audit/repository"
)

// Audit returns middleware that records an audit log entry after each
// request. skipPaths is the set of paths to not audit (e.g. /healthz).
// Create is best-effort: failures are logged and do not fail the request.
// Only writes when the tenant is set (authenticated context).
func Audit(auditRepo auditrepo.Repository, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if skipPaths[r.URL.Path] {
				return
			}
			ctx := r.Context()
			tenantID, _ := GetTenantID(ctx)
			if tenantID == "" {
				return
			}
			id, _ := GetIdentity(ctx)
			ar := audit.ParseRoute(r.Method, r.URL.Path)
			entry := &domain.AuditLog{
				ID:        uuid.New().String(),
				TenantID:  tenantID,
				StaffID:   id.DisplayName,
				Action:    ar.Action,
				Resource:  ar.Resource,
				IP:        ClientIP(r),
				Metadata:  "",
				CreatedAt: time.Now().UTC(),
			}
			if createErr := auditRepo.Create(ctx, entry); createErr != nil {
				log.Printf("audit: failed to create audit log: %v", createErr)
			}
		})
	}
}

// ClientIP returns the client IP from X-Forwarded-For, X-Real-IP, or the
// remote address, or "unknown".
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-Ip")); s != "" {
		return s
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
