package callcontrol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"softphone-core/internal/agentstate"
	"softphone-core/internal/endpoint"
	"softphone-core/internal/ledger"
	"softphone-core/internal/provider"
)

// DispositionRecorder persists the wrap-up disposition of a completed
// contact. Implementations must be idempotent per contact id; the session
// may retry CompleteAfterCallWork after a partial failure.
type DispositionRecorder interface {
	RecordDisposition(ctx context.Context, contactID, dispositionID, notes string) error
}

// Session owns the lifecycle of the single active contact and is the only
// writer of the connection ledger. One Session exists per agent session;
// it is created at session start and reused across contacts.
//
// Concurrency:
// - All mutating operations pass through a begin/settle gate. A second
//   mutating operation issued while one is unsettled fails fast with
//   ErrOperationInFlight; it never queues.
// - Ledger mutations for an operation are committed under the session lock
//   after the provider outcome settles, so no caller observes a
//   half-updated ledger.
type Session struct {
	binding  provider.Binding
	agent    agentstate.Adapter
	book     *ledger.Ledger
	recorder DispositionRecorder

	acwMax time.Duration
	clock  func() time.Time
	log    *slog.Logger

	mu               sync.Mutex
	lifecycle        *fsm.FSM
	contact          *Contact
	inflight         string
	acwStartedAt     time.Time
	contactCompleted bool
	muted            bool

	// earlyConnect holds a vendor connect event that arrived while
	// PlaceCall was still committing its contact; applied on settle.
	earlyConnect *provider.ContactEvent

	sinkMu     sync.Mutex
	sinks      []sinkEntry
	nextSinkID int
}

type sinkEntry struct {
	id   int
	sink EventSink
}

// Config carries session construction options.
type Config struct {
	// ACWMax bounds after-call work. Zero disables the countdown.
	ACWMax time.Duration

	// Recorder is optional; without it dispositions are dropped.
	Recorder DispositionRecorder

	// Clock is injectable for deterministic tests.
	Clock func() time.Time

	Logger *slog.Logger
}

func NewSession(binding provider.Binding, agent agentstate.Adapter, cfg Config) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		binding:  binding,
		agent:    agent,
		book:     ledger.New(),
		recorder: cfg.Recorder,
		acwMax:   cfg.ACWMax,
		clock:    clock,
		log:      log,
	}
	s.lifecycle = fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: "ring", Src: []string{string(StateIdle)}, Dst: string(StateRinging)},
			{Name: "dial", Src: []string{string(StateIdle)}, Dst: string(StateRinging)},
			{Name: "accept", Src: []string{string(StateRinging)}, Dst: string(StateConnected)},
			{Name: "connect", Src: []string{string(StateRinging)}, Dst: string(StateConnected)},
			{Name: "decline", Src: []string{string(StateRinging)}, Dst: string(StateIdle)},
			{Name: "hold", Src: []string{string(StateConnected)}, Dst: string(StateHold)},
			{Name: "resume", Src: []string{string(StateHold)}, Dst: string(StateConnected)},
			{Name: "wrapup", Src: []string{string(StateRinging), string(StateConnected), string(StateHold)}, Dst: string(StateAfterCallWork)},
			{Name: "close", Src: []string{string(StateRinging), string(StateConnected), string(StateHold), string(StateAfterCallWork)}, Dst: string(StateIdle)},
		},
		fsm.Callbacks{},
	)
	binding.Subscribe(s)
	return s
}

// Subscribe registers a sink for typed session events. The returned
// function removes it again; subscribers that outlive their consumer (an
// SSE request, say) must call it or the sink keeps receiving events for
// the life of the session.
func (s *Session) Subscribe(sink EventSink) func() {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.nextSinkID++
	id := s.nextSinkID
	s.sinks = append(s.sinks, sinkEntry{id: id, sink: sink})
	return func() {
		s.sinkMu.Lock()
		defer s.sinkMu.Unlock()
		for i, e := range s.sinks {
			if e.id == id {
				s.sinks = append(s.sinks[:i], s.sinks[i+1:]...)
				return
			}
		}
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State(s.lifecycle.Current())
}

// SubState derives the orthogonal transfer/conference sub-state from the
// ledger's pending records.
func (s *Session) SubState() SubState {
	for _, p := range s.book.PendingTransfers() {
		if p.IsConference {
			return SubStateConferencePending
		}
	}
	if s.book.PendingCount() > 0 {
		return SubStateTransferPending
	}
	return SubStateNone
}

// ActiveContact returns the current contact, if any.
func (s *Session) ActiveContact() (Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contact == nil {
		return Contact{}, false
	}
	return *s.contact, true
}

/* ===================== operation gate ===================== */

// begin validates preconditions and claims the single in-flight slot.
// needContact distinguishes contact-scoped operations from PlaceCall.
func (s *Session) begin(op string, needContact bool, allowed ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if needContact && s.contact == nil {
		return ErrNoContact
	}
	if !needContact && s.contact != nil {
		return fmt.Errorf("%w: contact %s is active", ErrWrongState, s.contact.ContactID)
	}
	if s.inflight != "" {
		return fmt.Errorf("%w: %s", ErrOperationInFlight, s.inflight)
	}

	cur := State(s.lifecycle.Current())
	for _, a := range allowed {
		if cur == a {
			s.inflight = op
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires %v, contact is %s", ErrWrongState, op, allowed, cur)
}

// settle releases the in-flight slot and optionally commits mutations
// under the session lock.
func (s *Session) settle(commit func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if commit != nil {
		commit()
	}
	s.inflight = ""
}

func (s *Session) transition(event string) {
	if err := s.lifecycle.Event(context.Background(), event); err != nil {
		// Pre-checked by begin; a failure here means a handler raced us.
		s.log.Warn("lifecycle transition rejected", "event", event, "err", err)
	}
}

func (s *Session) emit(ev Event) {
	ev.At = s.clock().UTC()
	if ev.State == "" {
		ev.State = s.State()
	}
	s.sinkMu.Lock()
	sinks := make([]sinkEntry, len(s.sinks))
	copy(sinks, s.sinks)
	s.sinkMu.Unlock()
	for _, e := range sinks {
		e.sink(ev)
	}
}

/* ===================== inbound / outbound ===================== */

// PlaceCall dials an outbound contact. Precondition: Idle, no contact.
func (s *Session) PlaceCall(ctx context.Context, number string) (string, error) {
	ep, err := endpoint.Resolve(endpoint.PhoneNumber(number))
	if err != nil {
		return "", err
	}
	if err := s.begin("place_call", false, StateIdle); err != nil {
		return "", err
	}

	contactID, err := s.binding.PlaceCall(ctx, ep)
	if err != nil {
		s.settle(func() { s.earlyConnect = nil })
		return "", fmt.Errorf("callcontrol: place call failed: %w", err)
	}

	now := s.clock().UTC()
	connected := false
	s.settle(func() {
		s.contact = &Contact{ContactID: contactID, Direction: provider.DirectionOutbound, StartedAt: now}
		s.contactCompleted = false
		s.transition("dial")
		if connID, ok := s.binding.ActiveConnectionID(); ok {
			s.book.RecordConnection(ledger.Connection{
				ConnectionID: connID,
				Role:         ledger.RoleAgent,
				Status:       ledger.StatusConnecting,
				CreatedAt:    now,
			})
		}
		s.book.RecordConnection(ledger.Connection{
			ConnectionID: contactID + "-customer",
			Role:         ledger.RoleCustomer,
			Endpoint:     ep,
			Status:       ledger.StatusConnecting,
			CreatedAt:    now,
		})
		// A connect event may have raced the dial outcome; apply it now
		// instead of leaving the contact stuck in Ringing.
		if s.earlyConnect != nil && s.earlyConnect.ContactID == contactID {
			s.transition("connect")
			for _, c := range s.book.ListConnections() {
				s.book.SetStatus(c.ConnectionID, ledger.StatusConnected)
			}
			connected = true
		}
		s.earlyConnect = nil
	})
	s.emit(Event{Type: EventContactConnecting, ContactID: contactID})
	if connected {
		s.emit(Event{Type: EventContactConnected, ContactID: contactID})
	}
	return contactID, nil
}

// HandleContactIncoming implements provider.ContactHandler.
func (s *Session) HandleContactIncoming(ev provider.ContactEvent) {
	s.mu.Lock()
	if s.contact != nil {
		cur := s.contact.ContactID
		s.mu.Unlock()
		s.log.Warn("inbound contact while another is active, ignoring", "contact_id", ev.ContactID, "active_contact_id", cur)
		s.emit(Event{Type: EventError, ContactID: ev.ContactID, Detail: "contact_already_active"})
		return
	}
	now := s.clock().UTC()
	s.contact = &Contact{ContactID: ev.ContactID, Direction: provider.DirectionInbound, StartedAt: now}
	s.contactCompleted = false
	s.transition("ring")
	s.book.RecordConnection(ledger.Connection{
		ConnectionID: ev.AgentConnectionID,
		Role:         ledger.RoleAgent,
		Status:       ledger.StatusConnecting,
		CreatedAt:    now,
	})
	s.book.RecordConnection(ledger.Connection{
		ConnectionID: ev.CustomerConnectionID,
		Role:         ledger.RoleCustomer,
		Endpoint:     ev.CustomerEndpoint,
		Status:       ledger.StatusConnecting,
		CreatedAt:    now,
	})
	s.mu.Unlock()

	s.emit(Event{Type: EventContactIncoming, ContactID: ev.ContactID})
}

// HandleContactConnected implements provider.ContactHandler.
// A connect event arriving for a contact that is already gone (the agent
// declined or ended it while the vendor was answering) is dropped.
func (s *Session) HandleContactConnected(ev provider.ContactEvent) {
	s.mu.Lock()
	if s.contact == nil && s.inflight == "place_call" {
		// The vendor connected before PlaceCall committed its contact.
		ev := ev
		s.earlyConnect = &ev
		s.mu.Unlock()
		return
	}
	if s.contact == nil || s.contact.ContactID != ev.ContactID {
		s.mu.Unlock()
		s.log.Warn("late connect event dropped", "contact_id", ev.ContactID)
		return
	}
	if State(s.lifecycle.Current()) != StateRinging {
		s.mu.Unlock()
		return
	}
	s.transition("connect")
	for _, c := range s.book.ListConnections() {
		s.book.SetStatus(c.ConnectionID, ledger.StatusConnected)
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventContactConnected, ContactID: ev.ContactID})
}

// HandleContactEnded implements provider.ContactHandler.
// Vendor-side teardown: the customer hung up or the vendor dropped the
// contact. The agent still owes wrap-up if the call was live.
func (s *Session) HandleContactEnded(ev provider.ContactEvent) {
	s.mu.Lock()
	if s.contact == nil || s.contact.ContactID != ev.ContactID {
		s.mu.Unlock()
		s.log.Warn("ended event for unknown contact dropped", "contact_id", ev.ContactID)
		return
	}
	state := State(s.lifecycle.Current())
	s.book.Reset()
	s.contactCompleted = true

	enteredACW := false
	switch state {
	case StateConnected, StateHold:
		if s.agent.SupportsACW() {
			s.transition("wrapup")
			s.acwStartedAt = s.clock().UTC()
			enteredACW = true
		} else {
			s.transition("close")
			s.contact = nil
		}
	case StateRinging:
		s.transition("close")
		s.contact = nil
	case StateAfterCallWork:
		// Already wrapping up; nothing to move.
	}
	s.mu.Unlock()

	if enteredACW {
		if err := s.agent.EnterACW(context.Background()); err != nil {
			s.log.Warn("acw entry after vendor hangup failed", "contact_id", ev.ContactID, "err", err)
		}
	}
	s.emit(Event{Type: EventContactEnded, ContactID: ev.ContactID})
}

/* ===================== accept / decline / end ===================== */

// AcceptContact accepts the ringing inbound leg.
func (s *Session) AcceptContact(ctx context.Context) error {
	if err := s.begin("accept", true, StateRinging); err != nil {
		return err
	}
	contactID := s.contactID()

	if err := s.binding.AcceptContact(ctx, contactID); err != nil {
		s.settle(nil)
		return fmt.Errorf("%w: %v", ErrAcceptRejected, err)
	}

	s.settle(func() {
		s.transition("accept")
		for _, c := range s.book.ListConnections() {
			s.book.SetStatus(c.ConnectionID, ledger.StatusConnected)
		}
	})
	s.emit(Event{Type: EventContactConnected, ContactID: contactID})
	return nil
}

// DeclineContact rejects the ringing inbound leg and returns to Idle.
func (s *Session) DeclineContact(ctx context.Context) error {
	if err := s.begin("decline", true, StateRinging); err != nil {
		return err
	}
	contactID := s.contactID()

	err := s.binding.DeclineContact(ctx, contactID)

	s.settle(func() {
		s.transition("decline")
		s.book.Reset()
		s.contact = nil
		s.contactCompleted = true
	})
	s.emit(Event{Type: EventContactEnded, ContactID: contactID})
	if err != nil {
		return fmt.Errorf("callcontrol: decline failed: %w", err)
	}
	return nil
}

// EndContact destroys the agent leg and completes the contact. The two
// sub-steps are attempted independently: a vendor occasionally fails to
// acknowledge leg destruction but still tears down the call.
func (s *Session) EndContact(ctx context.Context) error {
	if err := s.begin("end", true, StateConnected, StateHold); err != nil {
		return err
	}
	contactID := s.contactID()

	var stepErrs []error
	if agentConn, ok := s.book.AgentConnection(); ok {
		if err := s.binding.DestroyConnection(ctx, agentConn.ConnectionID); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("destroy agent leg: %w", err))
		}
	}
	if err := s.binding.CompleteContact(ctx, contactID); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("complete contact: %w", err))
	}

	enterACW := s.agent.SupportsACW()
	s.settle(func() {
		s.book.Reset()
		s.contactCompleted = true
		if enterACW {
			s.transition("wrapup")
			s.acwStartedAt = s.clock().UTC()
		} else {
			s.transition("close")
			s.contact = nil
		}
	})

	if enterACW {
		if err := s.agent.EnterACW(ctx); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("enter acw: %w", err))
		}
	}
	s.emit(Event{Type: EventContactEnded, ContactID: contactID})
	return errors.Join(stepErrs...)
}

/* ===================== hold / resume ===================== */

// HoldCall puts the agent leg on hold. Precondition: agent leg connected.
func (s *Session) HoldCall(ctx context.Context) (string, error) {
	if err := s.begin("hold", true, StateConnected); err != nil {
		return "", err
	}
	agentConn, ok := s.book.AgentConnection()
	if !ok {
		s.settle(nil)
		return "", fmt.Errorf("%w: agent leg missing", ErrConnectionNotFound)
	}
	if agentConn.Status != ledger.StatusConnected {
		s.settle(nil)
		return "", fmt.Errorf("%w: hold requires a connected agent leg, got %s", ErrWrongConnectionState, agentConn.Status)
	}

	if err := s.binding.HoldConnection(ctx, agentConn.ConnectionID); err != nil {
		s.settle(nil)
		return "", fmt.Errorf("callcontrol: hold failed: %w", err)
	}

	s.settle(func() {
		s.book.SetStatus(agentConn.ConnectionID, ledger.StatusHold)
		s.transition("hold")
	})
	return MsgHoldOK, nil
}

// ResumeCall takes the agent leg off hold.
func (s *Session) ResumeCall(ctx context.Context) (string, error) {
	if err := s.begin("resume", true, StateHold); err != nil {
		return "", err
	}
	agentConn, ok := s.book.AgentConnection()
	if !ok {
		s.settle(nil)
		return "", fmt.Errorf("%w: agent leg missing", ErrConnectionNotFound)
	}
	if agentConn.Status != ledger.StatusHold {
		s.settle(nil)
		return "", fmt.Errorf("%w: resume requires a held agent leg, got %s", ErrWrongConnectionState, agentConn.Status)
	}

	if err := s.binding.ResumeConnection(ctx, agentConn.ConnectionID); err != nil {
		s.settle(nil)
		return "", fmt.Errorf("callcontrol: resume failed: %w", err)
	}

	s.settle(func() {
		s.book.SetStatus(agentConn.ConnectionID, ledger.StatusConnected)
		s.transition("resume")
	})
	return MsgResumeOK, nil
}

/* ===================== transfers ===================== */

// TransferToPhoneNumber performs a cold transfer to a phone number.
func (s *Session) TransferToPhoneNumber(ctx context.Context, number string) error {
	return s.coldTransfer(ctx, endpoint.PhoneNumber(number))
}

// TransferToQueue performs a cold transfer to a queue.
func (s *Session) TransferToQueue(ctx context.Context, queueID string) error {
	return s.coldTransfer(ctx, endpoint.Queue(queueID))
}

// coldTransfer swaps the active connection to the endpoint; the agent leg
// is dropped as part of the swap, so the contact ends for this agent.
func (s *Session) coldTransfer(ctx context.Context, target endpoint.Target) error {
	ep, err := endpoint.Resolve(target)
	if err != nil {
		return err
	}
	if err := s.begin("cold_transfer", true, StateConnected); err != nil {
		return err
	}
	contactID := s.contactID()

	if err := s.binding.ColdTransfer(ctx, contactID, ep); err != nil {
		s.settle(nil)
		return fmt.Errorf("callcontrol: cold transfer failed: %w", err)
	}

	enterACW := s.agent.SupportsACW()
	s.settle(func() {
		s.book.Reset()
		if enterACW {
			s.transition("wrapup")
			s.acwStartedAt = s.clock().UTC()
		} else {
			s.transition("close")
			s.contact = nil
		}
	})

	var acwErr error
	if enterACW {
		acwErr = s.agent.EnterACW(ctx)
	}
	s.emit(Event{Type: EventContactEnded, ContactID: contactID})
	return acwErr
}

// WarmTransferToPhoneNumber adds a transfer leg without dropping the agent.
func (s *Session) WarmTransferToPhoneNumber(ctx context.Context, number string) (string, error) {
	return s.addLeg(ctx, endpoint.PhoneNumber(number), false)
}

// WarmTransferToQueue adds a queue transfer leg without dropping the agent.
func (s *Session) WarmTransferToQueue(ctx context.Context, queueID string) (string, error) {
	return s.addLeg(ctx, endpoint.Queue(queueID), false)
}

// InitiateConference adds a conference participant leg.
func (s *Session) InitiateConference(ctx context.Context, number string) (string, error) {
	return s.addLeg(ctx, endpoint.PhoneNumber(number), true)
}

func (s *Session) addLeg(ctx context.Context, target endpoint.Target, conference bool) (string, error) {
	ep, err := endpoint.Resolve(target)
	if err != nil {
		return "", err
	}
	op := "warm_transfer"
	if conference {
		op = "conference_add"
	}
	if err := s.begin(op, true, StateConnected); err != nil {
		return "", err
	}
	contactID := s.contactID()

	connID, err := s.binding.AddParticipant(ctx, contactID, ep)
	if err != nil {
		s.settle(nil)
		return "", fmt.Errorf("callcontrol: %s failed: %w", op, err)
	}

	now := s.clock().UTC()
	s.settle(func() {
		s.book.RecordConnection(ledger.Connection{
			ConnectionID: connID,
			Role:         ledger.RoleParticipant,
			Endpoint:     ep,
			Status:       ledger.StatusConnecting,
			InConference: conference,
			CreatedAt:    now,
		})
		s.book.RecordPendingTransfer(ledger.PendingTransfer{
			ConnectionID: connID,
			Target:       ep,
			IsConference: conference,
			CreatedAt:    now,
		})
	})
	s.emit(Event{Type: EventContactConnecting, ContactID: contactID, SubState: s.SubState()})
	return connID, nil
}

// CompleteTransfer finalizes a warm transfer by destroying the agent leg.
// With no connection id it targets the most recently added pending record.
// All pending records are cleared afterward; only one warm transfer is
// assumed in flight at a time.
func (s *Session) CompleteTransfer(ctx context.Context, connectionID string) error {
	if err := s.begin("complete_transfer", true, StateConnected, StateHold); err != nil {
		return err
	}
	contactID := s.contactID()

	if connectionID != "" {
		if _, ok := s.book.FindPendingTransfer(connectionID); !ok {
			s.settle(nil)
			return fmt.Errorf("%w: %s", ErrTransferNotFound, connectionID)
		}
	} else {
		if _, ok := s.book.MostRecentPendingTransfer(); !ok {
			s.settle(nil)
			return fmt.Errorf("%w: no pending transfer", ErrTransferNotFound)
		}
	}

	var stepErrs []error
	if agentConn, ok := s.book.AgentConnection(); ok {
		if err := s.binding.DestroyConnection(ctx, agentConn.ConnectionID); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("destroy agent leg: %w", err))
		}
	}

	enterACW := s.agent.SupportsACW()
	s.settle(func() {
		s.book.Reset()
		if enterACW {
			s.transition("wrapup")
			s.acwStartedAt = s.clock().UTC()
		} else {
			s.transition("close")
			s.contact = nil
		}
	})

	if enterACW {
		if err := s.agent.EnterACW(ctx); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("enter acw: %w", err))
		}
	}
	s.emit(Event{Type: EventContactEnded, ContactID: contactID})
	return errors.Join(stepErrs...)
}

/* ===================== conference ===================== */

// MergeConnections merges all legs into one conference. Requires agent,
// customer, and at least one participant.
func (s *Session) MergeConnections(ctx context.Context) error {
	if err := s.begin("merge", true, StateConnected, StateHold); err != nil {
		return err
	}
	contactID := s.contactID()

	if n := s.book.ConnectionCount(); n < 3 {
		s.settle(nil)
		return fmt.Errorf("%w: have %d", ErrInsufficientParticipants, n)
	}

	if err := s.binding.MergeConnections(ctx, contactID); err != nil {
		s.settle(nil)
		return fmt.Errorf("callcontrol: merge failed: %w", err)
	}

	s.settle(func() {
		s.book.MarkAllConference()
		for _, c := range s.book.ListConnections() {
			s.book.SetStatus(c.ConnectionID, ledger.StatusConnected)
		}
		if State(s.lifecycle.Current()) == StateHold {
			s.transition("resume")
		}
	})
	s.emit(Event{Type: EventContactConnected, ContactID: contactID, SubState: s.SubState()})
	return nil
}

// RemoveFromConference destroys one participant (or the agent) leg.
// The customer leg is never removable this way.
func (s *Session) RemoveFromConference(ctx context.Context, connectionID string) error {
	if err := s.begin("conference_remove", true, StateConnected, StateHold); err != nil {
		return err
	}

	conn, ok := s.book.FindConnection(connectionID)
	if !ok {
		s.settle(nil)
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}
	if conn.Role == ledger.RoleCustomer {
		s.settle(nil)
		return fmt.Errorf("%w: customer leg cannot be removed", ErrWrongConnectionState)
	}

	if err := s.binding.DestroyConnection(ctx, connectionID); err != nil {
		s.settle(nil)
		return fmt.Errorf("callcontrol: conference removal failed: %w", err)
	}

	s.settle(func() {
		s.book.RemoveConnection(connectionID)
		s.book.RemovePendingTransfer(connectionID)
	})
	return nil
}

/* ===================== queries ===================== */

// GetActiveConnections snapshots the ledger: agent leg, customer leg, then
// participants in insertion order.
func (s *Session) GetActiveConnections() ([]ledger.Connection, error) {
	s.mu.Lock()
	noContact := s.contact == nil
	s.mu.Unlock()
	if noContact {
		return nil, ErrNoContact
	}
	return s.book.ListConnections(), nil
}

/* ===================== after-call work ===================== */

// EnterAfterCallWork destroys the agent leg only and moves to wrap-up. The
// customer side may still be ending from the vendor's perspective.
func (s *Session) EnterAfterCallWork(ctx context.Context) error {
	if err := s.begin("enter_acw", true, StateConnected, StateHold); err != nil {
		return err
	}

	var stepErrs []error
	agentConn, hasAgent := s.book.AgentConnection()
	if hasAgent {
		if err := s.binding.DestroyConnection(ctx, agentConn.ConnectionID); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("destroy agent leg: %w", err))
		}
	}

	s.settle(func() {
		if hasAgent {
			s.book.RemoveConnection(agentConn.ConnectionID)
		}
		s.transition("wrapup")
		s.acwStartedAt = s.clock().UTC()
	})

	if err := s.agent.EnterACW(ctx); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("enter acw: %w", err))
	}
	return errors.Join(stepErrs...)
}

// CompleteAfterCallWork records the disposition, completes the contact, and
// returns the agent to a routable state. On failure the session stays in
// AfterCallWork so the caller can retry; the agent is never silently left
// in wrap-up.
func (s *Session) CompleteAfterCallWork(ctx context.Context, dispositionID, notes string) error {
	if err := s.begin("complete_acw", true, StateAfterCallWork); err != nil {
		return err
	}
	contactID := s.contactID()

	var stepErrs []error
	if dispositionID != "" && s.recorder != nil {
		if err := s.recorder.RecordDisposition(ctx, contactID, dispositionID, notes); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("record disposition: %w", err))
		}
	}

	s.mu.Lock()
	alreadyCompleted := s.contactCompleted
	s.mu.Unlock()
	if !alreadyCompleted {
		if err := s.binding.CompleteContact(ctx, contactID); err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("complete contact: %w", err))
		}
	}

	if err := s.agent.ExitACWToRoutable(ctx); err != nil {
		stepErrs = append(stepErrs, err)
	}

	if err := errors.Join(stepErrs...); err != nil {
		s.settle(nil)
		return err
	}

	s.settle(func() {
		s.transition("close")
		s.book.Reset()
		s.contact = nil
		s.contactCompleted = false
		s.acwStartedAt = time.Time{}
	})
	s.emit(Event{Type: EventContactEnded, ContactID: contactID})
	return nil
}

// AfterCallWorkRemainingSeconds reports the wrap-up countdown.
// Returns -1 outside AfterCallWork (a query sentinel, not an error) and 0
// when no maximum is configured.
func (s *Session) AfterCallWorkRemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if State(s.lifecycle.Current()) != StateAfterCallWork {
		return -1
	}
	if s.acwMax <= 0 {
		return 0
	}
	elapsed := s.clock().UTC().Sub(s.acwStartedAt)
	remaining := int((s.acwMax - elapsed).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

/* ===================== agent passthrough ===================== */

// Mute mutes the agent microphone and emits a mute-changed event.
func (s *Session) Mute(ctx context.Context) (bool, error) {
	muted, err := s.agent.Mute(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
	s.emit(Event{Type: EventMuteChanged, Muted: muted})
	return muted, nil
}

// Unmute unmutes the agent microphone and emits a mute-changed event.
func (s *Session) Unmute(ctx context.Context) (bool, error) {
	muted, err := s.agent.Unmute(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
	s.emit(Event{Type: EventMuteChanged, Muted: muted})
	return muted, nil
}

func (s *Session) contactID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contact == nil {
		return ""
	}
	return s.contact.ContactID
}
