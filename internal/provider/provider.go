package provider

import (
	"context"
	"time"

	"softphone-core/internal/endpoint"
)

// Binding is the provider-agnostic call-control contract implemented by each
// vendor binding. The call-control session never branches on provider
// identity; it only speaks this interface.
//
// Rules:
// - No vendor SDK calls outside provider bindings.
// - Every method resolves or fails exactly once (single-resolution outcome),
//   regardless of the vendor's callback or event-emitter style.
// - Bindings perform no precondition checks; the session gates dispatch.
type Binding interface {
	Name() string

	// PlaceCall dials an outbound contact and returns the vendor contact id.
	PlaceCall(ctx context.Context, ep endpoint.Endpoint) (string, error)

	AcceptContact(ctx context.Context, contactID string) error
	DeclineContact(ctx context.Context, contactID string) error

	// CompleteContact closes the contact on the vendor side after the agent
	// leg is gone (wrap-up completion).
	CompleteContact(ctx context.Context, contactID string) error

	DestroyConnection(ctx context.Context, connectionID string) error
	HoldConnection(ctx context.Context, connectionID string) error
	ResumeConnection(ctx context.Context, connectionID string) error

	// ColdTransfer atomically swaps the active connection to the endpoint,
	// dropping the agent leg as part of the swap.
	ColdTransfer(ctx context.Context, contactID string, ep endpoint.Endpoint) error

	// AddParticipant adds a leg without dropping the agent (warm transfer or
	// conference add) and returns the new connection id.
	AddParticipant(ctx context.Context, contactID string, ep endpoint.Endpoint) (string, error)

	// MergeConnections merges all current legs into one conference.
	MergeConnections(ctx context.Context, contactID string) error

	// ActiveConnectionID is the uniform accessor for the vendor's notion of
	// the agent's active connection.
	ActiveConnectionID() (string, bool)

	// Subscribe registers the single contact-event handler. Bindings deliver
	// vendor contact events through it; at most one handler is supported.
	Subscribe(h ContactHandler)
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ContactEvent is a normalized vendor contact notification.
type ContactEvent struct {
	ContactID            string
	Direction            Direction
	AgentConnectionID    string
	CustomerConnectionID string
	CustomerEndpoint     endpoint.Endpoint
	At                   time.Time
}

// ContactHandler is implemented by the call-control session. Bindings call
// these from their event plumbing; handlers are non-blocking.
type ContactHandler interface {
	// HandleContactIncoming fires once per new inbound contact.
	HandleContactIncoming(ev ContactEvent)

	// HandleContactConnected fires when the vendor reports the contact live
	// (inbound accept confirmation or outbound answer).
	HandleContactConnected(ev ContactEvent)

	// HandleContactEnded fires when the vendor tears the contact down on its
	// own (customer hangup, network drop).
	HandleContactEnded(ev ContactEvent)
}
