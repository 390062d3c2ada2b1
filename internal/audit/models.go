package audit

import "time"

// Event is an immutable, append-only audit record of one call-control
// action or agent-state transition.
//
// Invariants:
// - Events are never updated or deleted.
// - workspace_id is required for tenancy isolation.
// - Audit capture is best-effort; call control never blocks on it.

type Event struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// AgentID is the agent whose session produced the event.
	AgentID string `json:"agent_id,omitempty" db:"agent_id"`

	// Target identifiers (optional, depending on the event type).
	ContactID    string `json:"contact_id,omitempty" db:"contact_id"`
	ConnectionID string `json:"connection_id,omitempty" db:"connection_id"`

	// Operation names the call-control action (accept, hold, transfer, ...).
	Operation string `json:"operation,omitempty" db:"operation"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallOperation EventType = "call_operation"
	EventTypeStateChange   EventType = "agent_state_change"
)
