// Package handler exposes the co-browse session API over HTTP JSON.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"horeca-pos/backend/internal/audit"
	"horeca-pos/backend/internal/policy/engine"
	"horeca-pos/backend/internal/security"
	"horeca-pos/backend/internal/server/middleware"
	"horeca-pos/backend/internal/session/domain"
	"horeca-pos/backend/internal/telemetry"
)

// SessionService is the session lifecycle surface the handler exposes.
type SessionService interface {
	Start(ctx context.Context, tenantID, operatorName string) (*domain.Session, error)
	End(ctx context.Context, sessionID string) error
	Active(ctx context.Context, tenantID string) (*domain.Session, error)
}

// Handler serves the session API. Policy gates the lifecycle endpoints on
// allow_operate and the active lookup on allow_view; audit and telemetry
// record every state change best-effort.
type Handler struct {
	svc      SessionService
	policy   engine.Evaluator
	auditLog audit.AuditLogger
	emitter  telemetry.EventEmitter
}

// NewHandler returns a session API handler. policy, auditLog, and emitter
// may be nil; then the corresponding step is skipped.
func NewHandler(svc SessionService, policy engine.Evaluator, auditLog audit.AuditLogger, emitter telemetry.EventEmitter) *Handler {
	return &Handler{svc: svc, policy: policy, auditLog: auditLog, emitter: emitter}
}

// Register adds the session routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions/start", h.start)
	mux.HandleFunc("POST /v1/sessions/end", h.end)
	mux.HandleFunc("GET /v1/sessions/active", h.active)
}

type endRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := middleware.GetIdentity(ctx)
	if !ok || id.TenantID == "" {
		http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
		return
	}
	if !h.decide(ctx, id).AllowOperate {
		http.Error(w, "not allowed to operate a co-browse session", http.StatusForbidden)
		return
	}

	sess, err := h.svc.Start(ctx, id.TenantID, id.DisplayName)
	if err != nil {
		log.Printf("session: start failed for tenant %s: %v", id.TenantID, err)
		http.Error(w, "could not start session", http.StatusInternalServerError)
		return
	}

	if h.auditLog != nil {
		h.auditLog.LogEvent(ctx, id.TenantID, id.DisplayName, "session_started", "session", `{"session_id":"`+sess.ID+`"}`)
	}
	h.emit(id.TenantID, sess.ID, "session_start")

	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := middleware.GetIdentity(ctx)
	if !ok || id.TenantID == "" {
		http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
		return
	}
	if !h.decide(ctx, id).AllowOperate {
		http.Error(w, "not allowed to operate a co-browse session", http.StatusForbidden)
		return
	}
	var req endRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	// The session must belong to the caller's tenant.
	active, err := h.svc.Active(ctx, id.TenantID)
	if err != nil {
		log.Printf("session: active lookup failed for tenant %s: %v", id.TenantID, err)
		http.Error(w, "could not end session", http.StatusInternalServerError)
		return
	}
	if active == nil || active.ID != req.SessionID {
		http.Error(w, "no such active session", http.StatusNotFound)
		return
	}

	if err := h.svc.End(ctx, req.SessionID); err != nil {
		log.Printf("session: end failed for %s: %v", req.SessionID, err)
		http.Error(w, "could not end session", http.StatusInternalServerError)
		return
	}

	if h.auditLog != nil {
		h.auditLog.LogEvent(ctx, id.TenantID, id.DisplayName, "session_ended", "session", `{"session_id":"`+req.SessionID+`"}`)
	}
	h.emit(id.TenantID, req.SessionID, "session_end")

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := middleware.GetIdentity(ctx)
	if !ok || id.TenantID == "" {
		http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
		return
	}
	if !h.decide(ctx, id).AllowView {
		http.Error(w, "not allowed to view co-browse sessions", http.StatusForbidden)
		return
	}
	sess, err := h.svc.Active(ctx, id.TenantID)
	if err != nil {
		log.Printf("session: active lookup failed for tenant %s: %v", id.TenantID, err)
		http.Error(w, "could not look up active session", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// decide evaluates the access policy for the caller. A nil policy allows
// everything; a failed evaluation denies.
func (h *Handler) decide(ctx context.Context, id security.Identity) engine.Decision {
	if h.policy == nil {
		return engine.Decision{AllowOperate: true, AllowView: true}
	}
	decision, err := h.policy.EvaluateAccess(ctx, engine.AccessInput{
		TenantID:    id.TenantID,
		StaffRole:   id.Role,
		DisplayName: id.DisplayName,
	})
	if err != nil {
		return engine.Decision{}
	}
	return decision
}

func (h *Handler) emit(tenantID, sessionID, eventType string) {
	if h.emitter == nil {
		return
	}
	telemetry.EmitAsync(h.emitter, telemetry.NewEvent(tenantID, sessionID, eventType, "session_api", nil))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("session: write response: %v", err)
	}
}
