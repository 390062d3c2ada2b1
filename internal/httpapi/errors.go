package httpapi

import (
	"errors"
	"net/http"

	"softphone-core/internal/agentstate"
	"softphone-core/internal/callcontrol"
	"softphone-core/internal/endpoint"
)

// statusFor maps call-control errors onto HTTP status codes. Unknown errors
// are server faults.
func statusFor(err error) int {
	switch {
	case errors.Is(err, callcontrol.ErrNoContact),
		errors.Is(err, callcontrol.ErrTransferNotFound),
		errors.Is(err, callcontrol.ErrConnectionNotFound):
		return http.StatusNotFound

	case errors.Is(err, callcontrol.ErrWrongState),
		errors.Is(err, callcontrol.ErrWrongConnectionState),
		errors.Is(err, callcontrol.ErrOperationInFlight),
		errors.Is(err, callcontrol.ErrInsufficientParticipants):
		return http.StatusConflict

	case errors.Is(err, endpoint.ErrInvalidTarget),
		errors.Is(err, agentstate.ErrInvalidState):
		return http.StatusBadRequest

	case errors.Is(err, callcontrol.ErrAcceptRejected):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
