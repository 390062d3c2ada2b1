package endpoint

import (
	"errors"
	"fmt"
	"strings"
)

// Target is a dialable destination as entered by the agent UI: either an
// E.164 phone number or a provider queue identifier.
//
// Rules:
// - Format validation (normalize-to-E.164) is the caller's responsibility.
// - Resolve only classifies the value and wraps it in the provider shape.
// - No side effects, no I/O.
type Target struct {
	Kind  Kind
	Value string
}

type Kind string

const (
	KindPhoneNumber Kind = "phone_number"
	KindQueue       Kind = "queue"
)

// Endpoint is the provider-addressable form of a Target. Provider bindings
// translate it into their own SDK shape (connection endpoint, TaskRouter
// queue, ...).
type Endpoint struct {
	Kind    Kind   `json:"kind"`
	Address string `json:"address"`
}

var ErrInvalidTarget = errors.New("endpoint: invalid target")

// PhoneNumber builds a phone-number target.
func PhoneNumber(number string) Target {
	return Target{Kind: KindPhoneNumber, Value: number}
}

// Queue builds a queue target.
func Queue(queueID string) Target {
	return Target{Kind: KindQueue, Value: queueID}
}

// Resolve turns a target into a provider-addressable endpoint.
// Pure and synchronous.
func Resolve(t Target) (Endpoint, error) {
	v := strings.TrimSpace(t.Value)
	if v == "" {
		return Endpoint{}, fmt.Errorf("%w: empty value", ErrInvalidTarget)
	}
	switch t.Kind {
	case KindPhoneNumber, KindQueue:
		return Endpoint{Kind: t.Kind, Address: v}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, t.Kind)
	}
}
