// Package telemetry defines the platform telemetry event and the emitter
// contract. Events are fire-and-forget: producers emit best-effort to
// Kafka or OTel logs, the worker ships them to Loki.
package telemetry

import (
	"encoding/json"
	"time"
)

// Event is one telemetry event. TenantID scopes the event; SessionID is
// set for events tied to a co-browsing session. Metadata is free-form
// JSON specific to the event type.
type Event struct {
	TenantID  string          `json:"tenant_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent returns an event stamped with the current time.
func NewEvent(tenantID, sessionID, eventType, source string, metadata json.RawMessage) *Event {
	return &Event{
		TenantID:  tenantID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}
