package callcontrol

import "time"

// EventType identifies a typed lifecycle notification. The UI layer
// subscribes to these instead of deriving meaning from status strings.
type EventType string

const (
	EventContactIncoming   EventType = "contact_incoming"
	EventContactConnecting EventType = "contact_connecting"
	EventContactConnected  EventType = "contact_connected"
	EventContactEnded      EventType = "contact_ended"
	EventMuteChanged       EventType = "mute_changed"
	EventError             EventType = "error"
)

// Event is a discrete transition notification emitted by the session.
type Event struct {
	Type      EventType `json:"type"`
	ContactID string    `json:"contact_id,omitempty"`
	State     State     `json:"state"`
	SubState  SubState  `json:"sub_state,omitempty"`
	Muted     bool      `json:"muted,omitempty"`

	// Detail carries a short human-readable note (error kind, operation).
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// EventSink receives session events. Sinks must not block.
type EventSink func(Event)
