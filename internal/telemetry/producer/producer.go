// Package producer defines the interface for emitting telemetry events to
// a broker (e.g. Kafka).
package producer

import (
	"context"

	"horeca-pos/backend/internal/telemetry"
)

// Producer emits telemetry events. Callers use it best-effort: log and
// ignore errors.
type Producer interface {
	// Emit sends a single telemetry event. Implementations may block
	// briefly; call from a goroutine if needed. Returns an error only on
	// write failure; callers typically log and ignore.
	Emit(ctx context.Context, event *telemetry.Event) error
	// Close releases resources (e.g. the Kafka writer). Safe to call if
	// already closed.
	Close() error
}
