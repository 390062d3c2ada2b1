package twilioflex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"softphone-core/internal/agentstate"
)

// WorkerAdapter exposes the vendor's routing worker through the agent-state
// contract. Activities map to routing states by their availability flag; the
// vendor has no wrap-up activity, so after-contact work is skipped entirely.
type WorkerAdapter struct {
	worker Worker
	device Device
	clock  func() time.Time

	mu    sync.Mutex
	sinks []agentstate.ChangeSink
	prev  agentstate.RoutingState
}

func NewWorkerAdapter(worker Worker, device Device) *WorkerAdapter {
	a := &WorkerAdapter{worker: worker, device: device, clock: time.Now}
	a.prev = a.RoutingState()

	worker.OnActivityUpdated(func(act Activity) {
		cur := toRoutingState(act, a.clock().UTC())
		a.mu.Lock()
		prev := a.prev
		a.prev = cur
		sinks := make([]agentstate.ChangeSink, len(a.sinks))
		copy(sinks, a.sinks)
		a.mu.Unlock()
		ch := agentstate.Change{AgentID: worker.SID(), Previous: prev, Current: cur, At: cur.StartedAt}
		for _, sink := range sinks {
			sink(ch)
		}
	})
	return a
}

// OnChange registers a routing-state change sink.
func (a *WorkerAdapter) OnChange(sink agentstate.ChangeSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, sink)
}

func toRoutingState(act Activity, at time.Time) agentstate.RoutingState {
	cat := agentstate.CategoryNotRoutable
	if act.Available {
		cat = agentstate.CategoryRoutable
	}
	if act.Name == "Offline" {
		cat = agentstate.CategoryOffline
	}
	return agentstate.RoutingState{Name: act.Name, Category: cat, StartedAt: at}
}

func (a *WorkerAdapter) RoutingState() agentstate.RoutingState {
	return toRoutingState(a.worker.CurrentActivity(), a.clock().UTC())
}

func (a *WorkerAdapter) StateCatalog() []agentstate.RoutingState {
	acts := a.worker.Activities()
	out := make([]agentstate.RoutingState, 0, len(acts))
	now := a.clock().UTC()
	for _, act := range acts {
		out = append(out, toRoutingState(act, now))
	}
	return out
}

// SupportsACW: the vendor has no wrap-up activity; contact teardown goes
// straight back to the worker's current activity.
func (a *WorkerAdapter) SupportsACW() bool { return false }

func (a *WorkerAdapter) SetRoutingState(ctx context.Context, name string) (agentstate.RoutingState, error) {
	for _, act := range a.worker.Activities() {
		if act.Name == name {
			if err := a.worker.UpdateActivity(ctx, act.SID); err != nil {
				return agentstate.RoutingState{}, err
			}
			return toRoutingState(act, a.clock().UTC()), nil
		}
	}
	return agentstate.RoutingState{}, fmt.Errorf("%w: %q", agentstate.ErrInvalidState, name)
}

func (a *WorkerAdapter) EnterACW(ctx context.Context) error { return nil }

func (a *WorkerAdapter) ExitACWToRoutable(ctx context.Context) error {
	for _, act := range a.worker.Activities() {
		if act.Available {
			return a.worker.UpdateActivity(ctx, act.SID)
		}
	}
	return agentstate.ErrNoRoutableState
}

func (a *WorkerAdapter) Mute(ctx context.Context) (bool, error) {
	return a.setMute(true)
}

func (a *WorkerAdapter) Unmute(ctx context.Context) (bool, error) {
	return a.setMute(false)
}

func (a *WorkerAdapter) setMute(muted bool) (bool, error) {
	if a.device == nil {
		return false, agentstate.ErrNoAgent
	}
	c, ok := a.device.ActiveCall()
	if !ok {
		return false, agentstate.ErrNoActiveCall
	}
	c.Mute(muted)
	return c.IsMuted(), nil
}

var _ agentstate.Adapter = (*WorkerAdapter)(nil)
