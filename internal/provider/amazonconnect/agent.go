package amazonconnect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"softphone-core/internal/agentstate"
)

// AgentAdapter exposes the vendor's agent object through the agent-state
// contract. State transitions await the vendor callback before resolving,
// so contact lifecycle operations that trigger them observe the outcome.
type AgentAdapter struct {
	agent AgentBridge
	clock func() time.Time

	mu    sync.Mutex
	sinks []agentstate.ChangeSink

	// AgentID tags change notifications; informational only.
	AgentID string
}

func NewAgentAdapter(agent AgentBridge, agentID string) *AgentAdapter {
	return &AgentAdapter{agent: agent, clock: time.Now, AgentID: agentID}
}

// OnChange registers a routing-state change sink.
func (a *AgentAdapter) OnChange(sink agentstate.ChangeSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, sink)
}

func (a *AgentAdapter) notify(prev, cur agentstate.RoutingState) {
	a.mu.Lock()
	sinks := make([]agentstate.ChangeSink, len(a.sinks))
	copy(sinks, a.sinks)
	a.mu.Unlock()
	ch := agentstate.Change{AgentID: a.AgentID, Previous: prev, Current: cur, At: a.clock().UTC()}
	for _, sink := range sinks {
		sink(ch)
	}
}

func toRoutingState(def AgentStateDef, at time.Time) agentstate.RoutingState {
	cat := agentstate.CategoryNotRoutable
	switch def.Type {
	case "routable":
		cat = agentstate.CategoryRoutable
	case "offline":
		cat = agentstate.CategoryOffline
	}
	return agentstate.RoutingState{Name: def.Name, Category: cat, StartedAt: at}
}

func (a *AgentAdapter) RoutingState() agentstate.RoutingState {
	return toRoutingState(a.agent.CurrentState(), a.clock().UTC())
}

func (a *AgentAdapter) StateCatalog() []agentstate.RoutingState {
	defs := a.agent.StateCatalog()
	out := make([]agentstate.RoutingState, 0, len(defs))
	now := a.clock().UTC()
	for _, d := range defs {
		out = append(out, toRoutingState(d, now))
	}
	return out
}

// SupportsACW: the vendor carries a dedicated after-contact-work activity.
func (a *AgentAdapter) SupportsACW() bool { return true }

func (a *AgentAdapter) SetRoutingState(ctx context.Context, name string) (agentstate.RoutingState, error) {
	var target AgentStateDef
	found := false
	for _, d := range a.agent.StateCatalog() {
		if d.Name == name {
			target = d
			found = true
			break
		}
	}
	if !found {
		return agentstate.RoutingState{}, fmt.Errorf("%w: %q", agentstate.ErrInvalidState, name)
	}

	prev := a.RoutingState()
	if err := await(ctx, "set state", func(cb Callbacks) {
		a.agent.SetState(target.Name, cb)
	}); err != nil {
		return agentstate.RoutingState{}, err
	}

	cur := toRoutingState(target, a.clock().UTC())
	a.notify(prev, cur)
	return cur, nil
}

// EnterACW transitions to the vendor's ACW activity. The vendor usually
// moves the agent there itself on contact end; an explicit transition keeps
// the adapter truthful when it does not. No-ops if no ACW activity exists.
func (a *AgentAdapter) EnterACW(ctx context.Context) error {
	for _, d := range a.agent.StateCatalog() {
		if d.IsACW {
			if a.agent.CurrentState().Name == d.Name {
				return nil
			}
			prev := a.RoutingState()
			if err := await(ctx, "enter acw", func(cb Callbacks) {
				a.agent.SetState(d.Name, cb)
			}); err != nil {
				return err
			}
			a.notify(prev, toRoutingState(d, a.clock().UTC()))
			return nil
		}
	}
	return nil
}

// ExitACWToRoutable transitions to the first routable state of the catalog.
func (a *AgentAdapter) ExitACWToRoutable(ctx context.Context) error {
	for _, d := range a.agent.StateCatalog() {
		if d.Type == "routable" {
			prev := a.RoutingState()
			if err := await(ctx, "exit acw", func(cb Callbacks) {
				a.agent.SetState(d.Name, cb)
			}); err != nil {
				return err
			}
			a.notify(prev, toRoutingState(d, a.clock().UTC()))
			return nil
		}
	}
	return agentstate.ErrNoRoutableState
}

func (a *AgentAdapter) Mute(ctx context.Context) (bool, error) {
	return a.setMute(ctx, true)
}

func (a *AgentAdapter) Unmute(ctx context.Context) (bool, error) {
	return a.setMute(ctx, false)
}

func (a *AgentAdapter) setMute(ctx context.Context, muted bool) (bool, error) {
	if !a.agent.HasSession() {
		return false, agentstate.ErrNoAgent
	}
	if !a.agent.HasActiveCall() {
		return false, agentstate.ErrNoActiveCall
	}
	if err := await(ctx, "mute", func(cb Callbacks) {
		a.agent.SetMute(muted, cb)
	}); err != nil {
		return false, err
	}
	return muted, nil
}

var _ agentstate.Adapter = (*AgentAdapter)(nil)
