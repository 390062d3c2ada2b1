package callcontrol

import (
	"time"

	"softphone-core/internal/provider"
)

// Contact is the single currently active call session.
// At most one Contact exists at a time; a new inbound/outbound contact
// cannot be created while one is active.
type Contact struct {
	ContactID string             `json:"contact_id"`
	Direction provider.Direction `json:"direction"`
	StartedAt time.Time          `json:"started_at"`
}

// State is the contact lifecycle state.
type State string

const (
	StateIdle          State = "Idle"
	StateRinging       State = "Ringing"
	StateConnected     State = "Connected"
	StateHold          State = "Hold"
	StateAfterCallWork State = "AfterCallWork"
)

// SubState is the orthogonal transfer/conference sub-state carried on top
// of Connected/Hold. It is derived from the ledger's pending records.
type SubState string

const (
	SubStateNone              SubState = ""
	SubStateTransferPending   SubState = "TransferPending"
	SubStateConferencePending SubState = "ConferencePending"
)

// Operation result messages surfaced to the UI.
const (
	MsgHoldOK   = "Call successfully put on hold."
	MsgResumeOK = "Call successfully resumed."
)
