package amazonconnect

import (
	"context"
	"errors"
	"testing"

	"softphone-core/internal/agentstate"
)

func defaultCatalog() []AgentStateDef {
	return []AgentStateDef{
		{Name: "Offline", Type: "offline"},
		{Name: "Available", Type: "routable"},
		{Name: "Lunch", Type: "not_routable"},
		{Name: "AfterCallWork", Type: "system", IsACW: true},
	}
}

func newTestAgent() (*AgentAdapter, *fakeAgentBridge) {
	fa := &fakeAgentBridge{
		session: true,
		catalog: defaultCatalog(),
		current: AgentStateDef{Name: "Available", Type: "routable"},
	}
	return NewAgentAdapter(fa, "agent-1"), fa
}

func TestAgentAdapter_RoutingStateCategories(t *testing.T) {
	a, fa := newTestAgent()

	st := a.RoutingState()
	if st.Name != "Available" || st.Category != agentstate.CategoryRoutable {
		t.Fatalf("unexpected state %+v", st)
	}

	fa.current = AgentStateDef{Name: "Offline", Type: "offline"}
	if got := a.RoutingState().Category; got != agentstate.CategoryOffline {
		t.Fatalf("expected offline category, got %s", got)
	}

	fa.current = AgentStateDef{Name: "AfterCallWork", Type: "system", IsACW: true}
	if got := a.RoutingState().Category; got != agentstate.CategoryNotRoutable {
		t.Fatalf("expected system state to map to not-routable, got %s", got)
	}
}

func TestAgentAdapter_StateCatalogPreservesOrder(t *testing.T) {
	a, _ := newTestAgent()

	catalog := a.StateCatalog()
	if len(catalog) != 4 {
		t.Fatalf("expected 4 states, got %d", len(catalog))
	}
	if catalog[0].Name != "Offline" || catalog[1].Name != "Available" {
		t.Fatalf("expected vendor order preserved, got %v", catalog)
	}
}

func TestAgentAdapter_SetRoutingState(t *testing.T) {
	a, fa := newTestAgent()

	var changes []agentstate.Change
	a.OnChange(func(ch agentstate.Change) { changes = append(changes, ch) })

	st, err := a.SetRoutingState(context.Background(), "Lunch")
	if err != nil {
		t.Fatalf("set state: %v", err)
	}
	if st.Name != "Lunch" || st.Category != agentstate.CategoryNotRoutable {
		t.Fatalf("unexpected state %+v", st)
	}
	if fa.current.Name != "Lunch" {
		t.Fatalf("expected bridge state Lunch, got %s", fa.current.Name)
	}
	if len(changes) != 1 {
		t.Fatalf("expected one change notification, got %d", len(changes))
	}
	if changes[0].Previous.Name != "Available" || changes[0].Current.Name != "Lunch" {
		t.Fatalf("unexpected change %+v", changes[0])
	}
	if changes[0].AgentID != "agent-1" {
		t.Fatalf("expected agent-1 tag, got %s", changes[0].AgentID)
	}
}

func TestAgentAdapter_SetRoutingStateUnknownName(t *testing.T) {
	a, _ := newTestAgent()

	_, err := a.SetRoutingState(context.Background(), "Siesta")
	if !errors.Is(err, agentstate.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestAgentAdapter_SetRoutingStateVendorFailure(t *testing.T) {
	a, fa := newTestAgent()
	fa.failSet = "AGENT_BUSY"

	_, err := a.SetRoutingState(context.Background(), "Lunch")
	if err == nil {
		t.Fatal("expected vendor failure")
	}
	if fa.current.Name != "Available" {
		t.Fatalf("expected state unchanged, got %s", fa.current.Name)
	}
}

func TestAgentAdapter_EnterACW(t *testing.T) {
	a, fa := newTestAgent()

	if err := a.EnterACW(context.Background()); err != nil {
		t.Fatalf("enter acw: %v", err)
	}
	if fa.current.Name != "AfterCallWork" {
		t.Fatalf("expected AfterCallWork, got %s", fa.current.Name)
	}

	// already there: no further transition
	fa.failSet = "SHOULD_NOT_BE_CALLED"
	if err := a.EnterACW(context.Background()); err != nil {
		t.Fatalf("expected idempotent enter acw, got %v", err)
	}
}

func TestAgentAdapter_EnterACWWithoutACWState(t *testing.T) {
	fa := &fakeAgentBridge{
		session: true,
		catalog: []AgentStateDef{{Name: "Available", Type: "routable"}},
		current: AgentStateDef{Name: "Available", Type: "routable"},
	}
	a := NewAgentAdapter(fa, "agent-1")

	if err := a.EnterACW(context.Background()); err != nil {
		t.Fatalf("expected no-op when catalog has no acw state, got %v", err)
	}
	if fa.current.Name != "Available" {
		t.Fatalf("expected state unchanged, got %s", fa.current.Name)
	}
}

func TestAgentAdapter_ExitACWToRoutable(t *testing.T) {
	a, fa := newTestAgent()
	fa.current = AgentStateDef{Name: "AfterCallWork", Type: "system", IsACW: true}

	if err := a.ExitACWToRoutable(context.Background()); err != nil {
		t.Fatalf("exit acw: %v", err)
	}
	if fa.current.Name != "Available" {
		t.Fatalf("expected Available, got %s", fa.current.Name)
	}
}

func TestAgentAdapter_ExitACWWithoutRoutableState(t *testing.T) {
	fa := &fakeAgentBridge{
		session: true,
		catalog: []AgentStateDef{{Name: "Offline", Type: "offline"}},
		current: AgentStateDef{Name: "Offline", Type: "offline"},
	}
	a := NewAgentAdapter(fa, "agent-1")

	if err := a.ExitACWToRoutable(context.Background()); !errors.Is(err, agentstate.ErrNoRoutableState) {
		t.Fatalf("expected ErrNoRoutableState, got %v", err)
	}
}

func TestAgentAdapter_MuteRequiresSessionAndCall(t *testing.T) {
	a, fa := newTestAgent()
	fa.session = false

	if _, err := a.Mute(context.Background()); !errors.Is(err, agentstate.ErrNoAgent) {
		t.Fatalf("expected ErrNoAgent, got %v", err)
	}

	fa.session = true
	fa.onCall = false
	if _, err := a.Mute(context.Background()); !errors.Is(err, agentstate.ErrNoActiveCall) {
		t.Fatalf("expected ErrNoActiveCall, got %v", err)
	}

	fa.onCall = true
	muted, err := a.Mute(context.Background())
	if err != nil {
		t.Fatalf("mute: %v", err)
	}
	if !muted || !fa.muted {
		t.Fatal("expected microphone muted")
	}

	muted, err = a.Unmute(context.Background())
	if err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if muted || fa.muted {
		t.Fatal("expected microphone unmuted")
	}
}

func TestAgentAdapter_SupportsACW(t *testing.T) {
	a, _ := newTestAgent()
	if !a.SupportsACW() {
		t.Fatal("expected acw support")
	}
}
