package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"softphone-core/internal/agentstate"
	"softphone-core/internal/config"
	"softphone-core/internal/provider"
	"softphone-core/internal/provider/amazonconnect"
	"softphone-core/internal/provider/twilioflex"
)

// changeNotifier is the optional subscription surface both agent adapters
// expose on top of the agent-state contract.
type changeNotifier interface {
	OnChange(agentstate.ChangeSink)
}

// devHooks drives the local simulator transport from HTTP. Nil in
// production builds, where the binding fronts the vendor SDK gateway.
type devHooks struct {
	// Ring simulates an inbound call from the given number.
	Ring func(number string)
}

// newProviderBinding selects and constructs the active binding. Local and
// dev environments run against an in-process simulator transport;
// production requires the vendor gateway, which this build does not ship.
func newProviderBinding(cfg config.Config, log *slog.Logger) (provider.Binding, agentstate.Adapter, *devHooks, error) {
	if cfg.IsProduction() {
		return nil, nil, nil, fmt.Errorf("provider %q: vendor gateway transport not configured", cfg.Provider.Name)
	}

	switch cfg.Provider.Name {
	case config.ProviderAmazonConnect:
		sim := newSimBridge()
		b := amazonconnect.New(sim, log)
		a := amazonconnect.NewAgentAdapter(sim.Agent(), cfg.Softphone.AgentID)
		hooks := &devHooks{Ring: sim.ring}
		return b, a, hooks, nil

	case config.ProviderTwilioFlex:
		dev := newSimDevice()
		conf := &simConference{device: dev}
		b := twilioflex.New(dev, conf, log)
		a := twilioflex.NewWorkerAdapter(newSimWorker(), dev)
		hooks := &devHooks{Ring: dev.ring}
		return b, a, hooks, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

/* ===================== amazon connect simulator ===================== */

// simBridge is the local development transport: every vendor operation
// succeeds immediately. It exists so the API can be exercised end to end
// without a telephony backend.
type simBridge struct {
	mu        sync.Mutex
	incoming  func(amazonconnect.ContactSnapshot)
	connected func(amazonconnect.ContactSnapshot)
	ended     func(amazonconnect.ContactSnapshot)

	seq        int
	activeConn string
	agent      *simAgent
}

func newSimBridge() *simBridge {
	return &simBridge{agent: newSimAgent()}
}

func (s *simBridge) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *simBridge) ring(number string) {
	s.mu.Lock()
	snap := amazonconnect.ContactSnapshot{
		ContactID:            s.nextID("ct"),
		Inbound:              true,
		AgentConnectionID:    s.nextID("conn"),
		CustomerConnectionID: s.nextID("conn"),
		CustomerAddress:      number,
	}
	s.activeConn = snap.AgentConnectionID
	fn := s.incoming
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (s *simBridge) OnContactIncoming(fn func(amazonconnect.ContactSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incoming = fn
}

func (s *simBridge) OnContactConnected(fn func(amazonconnect.ContactSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = fn
}

func (s *simBridge) OnContactEnded(fn func(amazonconnect.ContactSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = fn
}

func (s *simBridge) AcceptContact(contactID string, cb amazonconnect.Callbacks)   { cb.OnSuccess() }
func (s *simBridge) RejectContact(contactID string, cb amazonconnect.Callbacks)   { cb.OnSuccess() }
func (s *simBridge) CompleteContact(contactID string, cb amazonconnect.Callbacks) { cb.OnSuccess() }

func (s *simBridge) DestroyConnection(connectionID string, cb amazonconnect.Callbacks) {
	s.mu.Lock()
	if s.activeConn == connectionID {
		s.activeConn = ""
	}
	s.mu.Unlock()
	cb.OnSuccess()
}

func (s *simBridge) HoldConnection(connectionID string, cb amazonconnect.Callbacks)   { cb.OnSuccess() }
func (s *simBridge) ResumeConnection(connectionID string, cb amazonconnect.Callbacks) { cb.OnSuccess() }

func (s *simBridge) TransferContact(contactID, address string, queue bool, cb amazonconnect.Callbacks) {
	s.mu.Lock()
	s.activeConn = ""
	s.mu.Unlock()
	cb.OnSuccess()
}

func (s *simBridge) AddConnection(contactID, address string, queue bool, cb amazonconnect.IDCallbacks) {
	s.mu.Lock()
	id := s.nextID("conn")
	s.mu.Unlock()
	cb.OnSuccess(id)
}

func (s *simBridge) ConferenceConnections(contactID string, cb amazonconnect.Callbacks) {
	cb.OnSuccess()
}

func (s *simBridge) PlaceOutboundCall(address string, cb amazonconnect.IDCallbacks) {
	s.mu.Lock()
	contactID := s.nextID("ct")
	s.activeConn = s.nextID("conn")
	s.mu.Unlock()
	cb.OnSuccess(contactID)
}

func (s *simBridge) ActiveConnectionID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeConn, s.activeConn != ""
}

func (s *simBridge) Agent() amazonconnect.AgentBridge { return s.agent }

type simAgent struct {
	mu      sync.Mutex
	catalog []amazonconnect.AgentStateDef
	current amazonconnect.AgentStateDef
	muted   bool
}

func newSimAgent() *simAgent {
	catalog := []amazonconnect.AgentStateDef{
		{Name: "Offline", Type: "offline"},
		{Name: "Available", Type: "routable"},
		{Name: "Break", Type: "not_routable"},
		{Name: "AfterCallWork", Type: "system", IsACW: true},
	}
	return &simAgent{catalog: catalog, current: catalog[1]}
}

func (a *simAgent) HasSession() bool    { return true }
func (a *simAgent) HasActiveCall() bool { return true }

func (a *simAgent) StateCatalog() []amazonconnect.AgentStateDef {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]amazonconnect.AgentStateDef, len(a.catalog))
	copy(out, a.catalog)
	return out
}

func (a *simAgent) CurrentState() amazonconnect.AgentStateDef {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *simAgent) SetState(name string, cb amazonconnect.Callbacks) {
	a.mu.Lock()
	for _, d := range a.catalog {
		if d.Name == name {
			a.current = d
		}
	}
	a.mu.Unlock()
	cb.OnSuccess()
}

func (a *simAgent) SetMute(muted bool, cb amazonconnect.Callbacks) {
	a.mu.Lock()
	a.muted = muted
	a.mu.Unlock()
	cb.OnSuccess()
}

/* ===================== twilio flex simulator ===================== */

type simDevice struct {
	mu       sync.Mutex
	incoming func(twilioflex.Call)
	active   *simCall
	seq      int
}

func newSimDevice() *simDevice { return &simDevice{} }

func (d *simDevice) nextID(prefix string) string {
	d.seq++
	return fmt.Sprintf("%s%d", prefix, d.seq)
}

func (d *simDevice) ring(number string) {
	d.mu.Lock()
	c := &simCall{
		sid:         d.nextID("CA"),
		confSID:     d.nextID("CF"),
		from:        number,
		customerSID: d.nextID("CA"),
		handlers:    map[twilioflex.CallEvent][]func(string){},
	}
	d.active = c
	fn := d.incoming
	d.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

func (d *simDevice) OnIncoming(fn func(twilioflex.Call)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.incoming = fn
}

func (d *simDevice) Connect(to string) (twilioflex.Call, error) {
	d.mu.Lock()
	c := &simCall{
		sid:         d.nextID("CA"),
		confSID:     d.nextID("CF"),
		from:        to,
		customerSID: d.nextID("CA"),
		handlers:    map[twilioflex.CallEvent][]func(string){},
	}
	d.active = c
	d.mu.Unlock()
	return c, nil
}

func (d *simDevice) ActiveCall() (twilioflex.Call, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil, false
	}
	return d.active, true
}

type simCall struct {
	mu          sync.Mutex
	sid         string
	confSID     string
	from        string
	customerSID string
	muted       bool
	handlers    map[twilioflex.CallEvent][]func(string)
}

func (c *simCall) SID() string           { return c.sid }
func (c *simCall) ConferenceSID() string { return c.confSID }
func (c *simCall) From() string          { return c.from }
func (c *simCall) CustomerSID() string   { return c.customerSID }

func (c *simCall) IsMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *simCall) Mute(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

func (c *simCall) On(ev twilioflex.CallEvent, fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[ev] = append(c.handlers[ev], fn)
}

func (c *simCall) emit(ev twilioflex.CallEvent) {
	c.mu.Lock()
	fns := append([]func(string){}, c.handlers[ev]...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn("")
	}
}

func (c *simCall) Accept()     { c.emit(twilioflex.CallEventAccept) }
func (c *simCall) Reject()     { c.emit(twilioflex.CallEventReject) }
func (c *simCall) Disconnect() { c.emit(twilioflex.CallEventDisconnect) }

type simConference struct {
	device *simDevice
}

func (s *simConference) HoldParticipant(ctx context.Context, conferenceSID, callSID string) error {
	return nil
}

func (s *simConference) ResumeParticipant(ctx context.Context, conferenceSID, callSID string) error {
	return nil
}

func (s *simConference) AddParticipant(ctx context.Context, conferenceSID, address string) (string, error) {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	return s.device.nextID("CA"), nil
}

func (s *simConference) RemoveParticipant(ctx context.Context, conferenceSID, callSID string) error {
	return nil
}

func (s *simConference) MergeParticipants(ctx context.Context, conferenceSID string) error {
	return nil
}

func (s *simConference) RedirectParticipant(ctx context.Context, conferenceSID, callSID, address string) error {
	return nil
}

func (s *simConference) CompleteConference(ctx context.Context, conferenceSID string) error {
	return nil
}

type simWorker struct {
	mu         sync.Mutex
	activities []twilioflex.Activity
	current    twilioflex.Activity
	updated    func(twilioflex.Activity)
}

func newSimWorker() *simWorker {
	activities := []twilioflex.Activity{
		{SID: "WA1", Name: "Offline", Available: false},
		{SID: "WA2", Name: "Available", Available: true},
		{SID: "WA3", Name: "Break", Available: false},
	}
	return &simWorker{activities: activities, current: activities[1]}
}

func (w *simWorker) SID() string { return "WK-local" }

func (w *simWorker) Activities() []twilioflex.Activity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]twilioflex.Activity, len(w.activities))
	copy(out, w.activities)
	return out
}

func (w *simWorker) CurrentActivity() twilioflex.Activity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *simWorker) UpdateActivity(ctx context.Context, activitySID string) error {
	w.mu.Lock()
	var fn func(twilioflex.Activity)
	var cur twilioflex.Activity
	for _, act := range w.activities {
		if act.SID == activitySID {
			w.current = act
			cur = act
			fn = w.updated
		}
	}
	w.mu.Unlock()
	if fn != nil {
		fn(cur)
	}
	return nil
}

func (w *simWorker) OnActivityUpdated(fn func(twilioflex.Activity)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updated = fn
}
