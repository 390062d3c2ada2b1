package amazonconnect

// The vendor models a call as one contact carrying multiple connections and
// exposes synchronous SDK objects whose methods take success/failure
// callback pairs. Bridge is the subset of that surface this binding drives;
// it is implemented by the transport that fronts the already-initialized
// vendor SDK (the binding never bootstraps the SDK itself).
type Bridge interface {
	// OnContactIncoming registers the callback invoked once per new contact.
	OnContactIncoming(fn func(ContactSnapshot))
	// OnContactConnected registers the callback for contact-live notifications.
	OnContactConnected(fn func(ContactSnapshot))
	// OnContactEnded registers the callback for vendor-side teardown.
	OnContactEnded(fn func(ContactSnapshot))

	AcceptContact(contactID string, cb Callbacks)
	RejectContact(contactID string, cb Callbacks)
	CompleteContact(contactID string, cb Callbacks)

	DestroyConnection(connectionID string, cb Callbacks)
	HoldConnection(connectionID string, cb Callbacks)
	ResumeConnection(connectionID string, cb Callbacks)

	// TransferContact swaps the active connection to the endpoint, dropping
	// the agent leg.
	TransferContact(contactID, address string, queue bool, cb Callbacks)

	// AddConnection adds a leg without dropping the agent; the new
	// connection id arrives on success.
	AddConnection(contactID, address string, queue bool, cb IDCallbacks)

	// ConferenceConnections merges every connection of the contact.
	ConferenceConnections(contactID string, cb Callbacks)

	// PlaceOutboundCall dials a new outbound contact.
	PlaceOutboundCall(address string, cb IDCallbacks)

	// ActiveConnectionID reports the agent's current connection, if any.
	ActiveConnectionID() (string, bool)

	Agent() AgentBridge
}

// Callbacks mirrors the vendor's success/failure callback pair.
type Callbacks struct {
	OnSuccess func()
	OnFailure func(vendorErr string)
}

// IDCallbacks is the callback pair for operations that yield an identifier.
type IDCallbacks struct {
	OnSuccess func(id string)
	OnFailure func(vendorErr string)
}

// ContactSnapshot is the vendor's contact notification payload.
type ContactSnapshot struct {
	ContactID            string
	Inbound              bool
	AgentConnectionID    string
	CustomerConnectionID string
	CustomerAddress      string
}

// AgentBridge is the vendor's agent object surface.
type AgentBridge interface {
	// HasSession reports whether an agent session is established.
	HasSession() bool

	// StateCatalog lists the configured agent states, in vendor order.
	StateCatalog() []AgentStateDef
	CurrentState() AgentStateDef

	SetState(name string, cb Callbacks)

	// SetMute toggles the microphone on the active voice connection.
	SetMute(muted bool, cb Callbacks)
	HasActiveCall() bool
}

// AgentStateDef is one entry of the vendor's agent state catalog.
type AgentStateDef struct {
	Name string
	// Type accepts: routable, not_routable, offline, system.
	Type string
	// IsACW marks the vendor's after-contact-work activity.
	IsACW bool
}
