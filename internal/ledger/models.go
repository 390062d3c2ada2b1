package ledger

import (
	"time"

	"softphone-core/internal/endpoint"
)

// Connection is one leg of the active contact: the agent's leg, the
// original customer leg, or a leg added for transfer/conference.
//
// Invariants:
// - Exactly one connection has Role == RoleAgent while a contact is active.
// - The customer leg is never removable via conference removal.
type Connection struct {
	ConnectionID string            `json:"connection_id"`
	Role         Role              `json:"role"`
	Endpoint     endpoint.Endpoint `json:"endpoint"`
	Status       Status            `json:"status"`
	InConference bool              `json:"in_conference"`
	CreatedAt    time.Time         `json:"created_at"`
}

type Role string

const (
	RoleAgent       Role = "agent"
	RoleCustomer    Role = "customer"
	RoleParticipant Role = "participant"
)

type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusHold         Status = "hold"
	StatusDisconnected Status = "disconnected"
)

// PendingTransfer is the bookkeeping record for a warm transfer or a
// conference participant that has not been merged/confirmed yet.
//
// A record exists only between "warm transfer initiated / participant
// added" and "transfer completed / participant removed or merged".
type PendingTransfer struct {
	ConnectionID string            `json:"connection_id"`
	Target       endpoint.Endpoint `json:"target"`
	IsConference bool              `json:"is_conference"`
	CreatedAt    time.Time         `json:"created_at"`
}
