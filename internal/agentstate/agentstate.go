package agentstate

import (
	"context"
	"errors"
	"time"
)

// RoutingState is the agent's availability classification, independent of
// the active contact. Exactly one routing state is active at a time.
type RoutingState struct {
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	StartedAt time.Time `json:"started_at"`
}

type Category string

const (
	CategoryRoutable    Category = "routable"
	CategoryNotRoutable Category = "not-routable"
	CategoryOffline     Category = "offline"
)

var (
	ErrInvalidState    = errors.New("agentstate: state not in provider catalog")
	ErrNoRoutableState = errors.New("agentstate: no routable state available")
	ErrNoAgent         = errors.New("agentstate: no agent session")
	ErrNoActiveCall    = errors.New("agentstate: no active call")
)

// Adapter exposes agent presence and state on top of one provider's
// agent/worker primitives. The call-control session queries it when contact
// lifecycle transitions require an agent-state change (ACW entry/exit).
//
// Rules:
// - SetRoutingState matches the catalog by display name, case-sensitive.
// - EnterACW no-ops successfully when the provider has no ACW activity.
// - ExitACWToRoutable picks the first catalog state flagged routable.
type Adapter interface {
	// RoutingState reports the current state. Query only.
	RoutingState() RoutingState

	// StateCatalog lists the states known to the provider, in provider order.
	StateCatalog() []RoutingState

	SetRoutingState(ctx context.Context, name string) (RoutingState, error)

	// SupportsACW reports whether the provider has an ACW-equivalent
	// activity. When false, contact teardown skips the wrap-up state.
	SupportsACW() bool

	EnterACW(ctx context.Context) error
	ExitACWToRoutable(ctx context.Context) error

	Mute(ctx context.Context) (bool, error)
	Unmute(ctx context.Context) (bool, error)
}

// Change is a typed routing-state transition notification. The UI layer
// subscribes to these instead of polling status strings.
type Change struct {
	AgentID  string       `json:"agent_id"`
	Previous RoutingState `json:"previous"`
	Current  RoutingState `json:"current"`
	At       time.Time    `json:"at"`
}

// ChangeSink receives state-change notifications. Implementations must not
// block; long work belongs on the subscriber's side.
type ChangeSink func(Change)

// FirstRoutable returns the first routable entry of a catalog.
func FirstRoutable(catalog []RoutingState) (RoutingState, bool) {
	for _, s := range catalog {
		if s.Category == CategoryRoutable {
			return s, true
		}
	}
	return RoutingState{}, false
}

// FindByName does a case-sensitive exact match on display name.
func FindByName(catalog []RoutingState, name string) (RoutingState, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return RoutingState{}, false
}
