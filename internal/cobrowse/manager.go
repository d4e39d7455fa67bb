package cobrowse

import (
	"context"
	"encoding/json"
	"log/slog"

	"horeca-pos/backend/internal/session/domain"
)

// Manager owns the local session lifecycle for one page runtime: it
// starts and ends sessions against the store, reconciles state on (re)join,
// and mirrors lifecycle broadcasts into the shared State.
//
// Store failures never surface to the caller: the operation is logged and
// the local state is left unchanged.
type Manager struct {
	tenantID  string
	store     SessionStore
	transport Transport
	state     *State
	logger    *slog.Logger

	removes []func()
}

// NewManager returns a lifecycle manager for the given tenant scope.
func NewManager(tenantID string, store SessionStore, transport Transport, state *State, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tenantID:  tenantID,
		store:     store,
		transport: transport,
		state:     state,
		logger:    logger,
	}
}

// Join subscribes to lifecycle broadcasts and adopts any in-progress
// session for the tenant as viewer state. The store re-query is the only
// late-discovery mechanism; the transport never replays a missed
// session_start.
func (m *Manager) Join(ctx context.Context) {
	m.removes = append(m.removes,
		m.transport.OnMessage(EventSessionStart, m.handleSessionStart),
		m.transport.OnMessage(EventSessionEnd, m.handleSessionEnd),
		m.transport.OnStatus(func(connected bool) {
			m.state.update(func(s *Snapshot) { s.Connected = connected })
		}),
	)

	sess, err := m.store.Active(ctx, m.tenantID)
	if err != nil {
		m.logger.Warn("cobrowse: active session query failed", "tenant_id", m.tenantID, "err", err)
		return
	}
	if sess.Active() {
		m.state.update(func(s *Snapshot) {
			s.Role = RoleViewer
			s.Session = sess
		})
	}
}

// Start ends any existing active session for the tenant in the store,
// inserts a new active one, transitions the local role to operator, and
// broadcasts session_start with the full record. A store failure is logged
// and leaves the local state unchanged.
func (m *Manager) Start(ctx context.Context, operatorName string) {
	sess, err := m.store.Start(ctx, m.tenantID, operatorName)
	if err != nil {
		m.logger.Warn("cobrowse: session start failed", "tenant_id", m.tenantID, "err", err)
		return
	}
	m.state.update(func(s *Snapshot) {
		s.Role = RoleOperator
		s.Session = sess
	})
	if err := m.transport.Publish(ctx, EventSessionStart, sess); err != nil {
		m.logger.Warn("cobrowse: session_start publish failed", "session_id", sess.ID, "err", err)
	}
}

// End marks the active local session ended in the store, broadcasts
// session_end, and clears the local role and session reference. Without an
// active local session it is a no-op.
func (m *Manager) End(ctx context.Context) {
	snap := m.state.Snapshot()
	if snap.Session == nil {
		return
	}
	if err := m.store.End(ctx, snap.Session.ID); err != nil {
		m.logger.Warn("cobrowse: session end failed", "session_id", snap.Session.ID, "err", err)
		return
	}
	if err := m.transport.Publish(ctx, EventSessionEnd, struct{}{}); err != nil {
		m.logger.Warn("cobrowse: session_end publish failed", "session_id", snap.Session.ID, "err", err)
	}
	m.state.update(func(s *Snapshot) {
		s.Role = RoleNone
		s.Session = nil
	})
}

// Leave removes the transport subscriptions. Local state is untouched.
func (m *Manager) Leave() {
	for _, remove := range m.removes {
		remove()
	}
	m.removes = nil
}

func (m *Manager) handleSessionStart(payload json.RawMessage) {
	var sess domain.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		m.logger.Warn("cobrowse: bad session_start payload", "err", err)
		return
	}
	// Role is derived from who issued Start. If this participant is the
	// operator and another operator won a racing start, the local state is
	// deliberately not corrected retroactively.
	if m.state.Snapshot().Role == RoleOperator {
		return
	}
	m.state.update(func(s *Snapshot) {
		s.Role = RoleViewer
		s.Session = &sess
	})
}

func (m *Manager) handleSessionEnd(json.RawMessage) {
	if m.state.Snapshot().Role == RoleOperator {
		return
	}
	m.state.update(func(s *Snapshot) {
		s.Role = RoleNone
		s.Session = nil
	})
}
