package telemetry

import "context"

// EventEmitter emits telemetry events (e.g. to Kafka or OTel logs).
// Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
