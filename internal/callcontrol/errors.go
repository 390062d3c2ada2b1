package callcontrol

import "errors"

// Error taxonomy for call-control operations. Every operation surfaces
// failures to its caller; the session performs no silent retries.
var (
	// ErrNoContact: operation requires an active contact; none exists.
	ErrNoContact = errors.New("callcontrol: No contact instance available")

	// ErrOperationInFlight: a mutating operation is already unsettled. The
	// browser-side original relied on single-threaded execution for this
	// gate; under real threads it is explicit.
	ErrOperationInFlight = errors.New("callcontrol: operation already in flight")

	// ErrWrongState: the contact lifecycle state does not satisfy the
	// operation's precondition.
	ErrWrongState = errors.New("callcontrol: contact is not in the required state")

	// ErrWrongConnectionState: a connection leg is not in the status the
	// operation requires (e.g. hold requires connected).
	ErrWrongConnectionState = errors.New("callcontrol: connection is not in the required state")

	ErrAcceptRejected           = errors.New("callcontrol: provider rejected accept")
	ErrTransferNotFound         = errors.New("callcontrol: pending transfer not found")
	ErrConnectionNotFound       = errors.New("callcontrol: connection not found")
	ErrInsufficientParticipants = errors.New("callcontrol: conference merge requires at least three connections")
)
