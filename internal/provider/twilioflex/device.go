package twilioflex

import "context"

// The vendor models a call as a device connection joined to a conference,
// with every extra party a conference participant. Call control is split
// across three SDK objects: the media device (event emitter), a REST
// conference resource, and the routing worker. Device is the subset of the
// media SDK this binding drives.
type Device interface {
	// OnIncoming registers the handler invoked once per inbound call.
	OnIncoming(fn func(Call))

	// Connect dials an outbound call. The returned Call is in progress;
	// the accept event fires when media is up.
	Connect(to string) (Call, error)

	// ActiveCall reports the device's current call, if any.
	ActiveCall() (Call, bool)
}

// CallEvent names the lifecycle events a Call emits. Operation outcomes
// arrive as events, not return values.
type CallEvent string

const (
	CallEventAccept     CallEvent = "accept"
	CallEventReject     CallEvent = "reject"
	CallEventDisconnect CallEvent = "disconnect"
	CallEventError      CallEvent = "error"
)

// Call is the device-side leg of a conference. Control methods are
// fire-and-forget; subscribe to events for the outcome.
type Call interface {
	// SID identifies this leg; it doubles as the agent's participant id.
	SID() string

	// ConferenceSID identifies the conference the leg belongs to. It is
	// the contact identifier for the whole interaction.
	ConferenceSID() string

	// From is the remote party's address on inbound calls.
	From() string

	// CustomerSID is the customer participant's call SID.
	CustomerSID() string

	Accept()
	Reject()
	Disconnect()

	Mute(muted bool)
	IsMuted() bool

	// On registers an event handler. Handlers accumulate; each receives
	// the vendor error message on error events, empty otherwise.
	On(ev CallEvent, fn func(errMsg string))
}

// ConferenceClient is the REST surface for participant control. Unlike the
// device, these calls return their outcome synchronously.
type ConferenceClient interface {
	HoldParticipant(ctx context.Context, conferenceSID, callSID string) error
	ResumeParticipant(ctx context.Context, conferenceSID, callSID string) error

	// AddParticipant dials address into the conference and returns the new
	// participant's call SID.
	AddParticipant(ctx context.Context, conferenceSID, address string) (string, error)

	RemoveParticipant(ctx context.Context, conferenceSID, callSID string) error

	// MergeParticipants takes every participant off hold so all parties
	// hear each other.
	MergeParticipants(ctx context.Context, conferenceSID string) error

	// RedirectParticipant moves one participant out to a new address,
	// detaching it from the conference.
	RedirectParticipant(ctx context.Context, conferenceSID, callSID, address string) error

	// CompleteConference tears the conference down, dropping all
	// remaining participants.
	CompleteConference(ctx context.Context, conferenceSID string) error
}

// Activity is one entry of the worker's activity catalog.
type Activity struct {
	SID       string
	Name      string
	Available bool
}

// Worker is the routing-side agent object. It has no wrap-up activity;
// availability is a plain boolean per activity.
type Worker interface {
	SID() string
	Activities() []Activity
	CurrentActivity() Activity
	UpdateActivity(ctx context.Context, activitySID string) error
	OnActivityUpdated(fn func(Activity))
}
