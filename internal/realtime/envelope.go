// Package realtime carries the tenant-scoped publish/subscribe channel
// between co-browsing participants: a WebSocket relay gateway on the
// server and a reconnecting client implementing the cobrowse.Transport
// collaborator. Delivery is at-most-once and unordered; the gateway drops
// messages on backpressure and never replays history on reconnect.
package realtime

import "encoding/json"

// Envelope is the wire frame for one channel message.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// knownEvent reports whether the gateway relays this event kind. Anything
// else is dropped at the edge.
func knownEvent(event string) bool {
	switch event {
	case "session_start", "session_end", "action":
		return true
	}
	return false
}
