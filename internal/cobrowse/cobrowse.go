// Package cobrowse implements the live co-browsing subsystem: one
// participant (the operator) drives a second participant's (the viewer)
// live page over a real-time channel. The operator's interactions are
// captured as replayable actions, relayed through a tenant-scoped
// publish/subscribe transport, and re-applied against the viewer's own
// document.
//
// The package depends only on two collaborator interfaces: SessionStore
// for the persisted session record and Transport for the real-time
// channel. Mount composes the lifecycle manager, capture, replayer, and
// presence indicators for one page runtime behind a Supervisor, which
// guarantees that no failure inside the subsystem ever reaches the host
// page.
package cobrowse

import (
	"context"
	"encoding/json"

	"horeca-pos/backend/internal/cobrowse/dom"
	"horeca-pos/backend/internal/session/domain"
)

// Transport message kinds. Delivery is at-most-once and unordered; the
// replayer enforces ordering with its watermark.
const (
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
	EventAction       = "action"
)

// Action kinds.
const (
	ActionClick  = "click"
	ActionInput  = "input"
	ActionFocus  = "focus"
	ActionScroll = "scroll"
)

// Action is one replayable interaction event. It is transmitted only,
// never persisted, and discarded after being applied or dropped.
type Action struct {
	Kind           string            `json:"kind"`
	Selector       string            `json:"selector"`
	Value          string            `json:"value,omitempty"`
	ScrollOffset   *dom.ScrollOffset `json:"scrollOffset,omitempty"`
	Timestamp      int64             `json:"timestamp"`
	OriginatorName string            `json:"originatorName"`
}

// SessionStore is the persisted-record collaborator. Implementations must
// guarantee at most one active session per tenant: Start ends any existing
// active session for the tenant before inserting the new one, serializing
// racing starts last-write-wins.
type SessionStore interface {
	Start(ctx context.Context, tenantID, operatorName string) (*domain.Session, error)
	End(ctx context.Context, sessionID string) error
	Active(ctx context.Context, tenantID string) (*domain.Session, error)
}

// Transport is the tenant-scoped publish/subscribe collaborator. Delivery
// is at-most-once, unordered, with no replay on reconnect; missed
// lifecycle broadcasts are recovered through the SessionStore re-query,
// never through the transport.
type Transport interface {
	Publish(ctx context.Context, event string, payload any) error
	OnMessage(event string, handler func(payload json.RawMessage)) (remove func())
	OnStatus(fn func(connected bool)) (remove func())
}
