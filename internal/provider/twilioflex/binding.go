package twilioflex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"softphone-core/internal/endpoint"
	"softphone-core/internal/provider"
)

// Binding adapts the vendor's split device/conference/worker surface to the
// provider contract. Device operations are event-emitter style and are
// converted to single-resolution outcomes; conference operations already
// resolve synchronously over REST.
type Binding struct {
	device Device
	conf   ConferenceClient
	clock  func() time.Time
	log    *slog.Logger

	mu      sync.Mutex
	handler provider.ContactHandler
	call    Call
}

func New(device Device, conf ConferenceClient, log *slog.Logger) *Binding {
	if log == nil {
		log = slog.Default()
	}
	b := &Binding{device: device, conf: conf, clock: time.Now, log: log}

	device.OnIncoming(func(c Call) {
		b.mu.Lock()
		b.call = c
		h := b.handler
		b.mu.Unlock()

		c.On(CallEventDisconnect, func(string) {
			b.onCallGone(c)
		})
		c.On(CallEventReject, func(string) {
			b.forget(c)
		})
		if h != nil {
			h.HandleContactIncoming(b.toEvent(c, provider.DirectionInbound))
		}
	})
	return b
}

func (b *Binding) Name() string { return "twilio_flex" }

func (b *Binding) Subscribe(h provider.ContactHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

func (b *Binding) currentHandler() provider.ContactHandler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler
}

// onCallGone reports vendor-side teardown of the device leg. Disconnects the
// binding requested itself are forgotten before dispatch, so only remote
// teardown reaches the handler.
func (b *Binding) onCallGone(c Call) {
	b.mu.Lock()
	if b.call == nil || b.call.SID() != c.SID() {
		b.mu.Unlock()
		return
	}
	b.call = nil
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h.HandleContactEnded(b.toEvent(c, provider.DirectionInbound))
	}
}

// forget drops the tracked call without notifying the handler.
func (b *Binding) forget(c Call) {
	b.mu.Lock()
	if b.call != nil && b.call.SID() == c.SID() {
		b.call = nil
	}
	b.mu.Unlock()
}

func (b *Binding) toEvent(c Call, dir provider.Direction) provider.ContactEvent {
	return provider.ContactEvent{
		ContactID:            c.ConferenceSID(),
		Direction:            dir,
		AgentConnectionID:    c.SID(),
		CustomerConnectionID: c.CustomerSID(),
		CustomerEndpoint:     endpoint.Endpoint{Kind: endpoint.KindPhoneNumber, Address: c.From()},
		At:                   b.clock().UTC(),
	}
}

func (b *Binding) activeCall() (Call, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.call == nil {
		return nil, fmt.Errorf("twilioflex: no device call")
	}
	return b.call, nil
}

// awaitEvent converts one emitter-style dispatch into a single-resolution
// outcome. Handlers registered here stay on the call; the sync.Once keeps
// stale handlers from earlier awaits inert.
func awaitEvent(ctx context.Context, op string, c Call, ok CallEvent, dispatch func()) error {
	done := make(chan error, 1)
	var once sync.Once
	c.On(ok, func(string) {
		once.Do(func() { done <- nil })
	})
	c.On(CallEventError, func(vendorErr string) {
		once.Do(func() { done <- fmt.Errorf("twilioflex: %s failed: %s", op, vendorErr) })
	})
	dispatch()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Binding) PlaceCall(ctx context.Context, ep endpoint.Endpoint) (string, error) {
	c, err := b.device.Connect(ep.Address)
	if err != nil {
		return "", fmt.Errorf("twilioflex: connect failed: %w", err)
	}

	b.mu.Lock()
	b.call = c
	b.mu.Unlock()

	c.On(CallEventDisconnect, func(string) {
		b.onCallGone(c)
	})
	c.On(CallEventAccept, func(string) {
		if h := b.currentHandler(); h != nil {
			h.HandleContactConnected(b.toEvent(c, provider.DirectionOutbound))
		}
	})
	return c.ConferenceSID(), nil
}

func (b *Binding) AcceptContact(ctx context.Context, contactID string) error {
	c, err := b.activeCall()
	if err != nil {
		return err
	}
	return awaitEvent(ctx, "accept", c, CallEventAccept, c.Accept)
}

func (b *Binding) DeclineContact(ctx context.Context, contactID string) error {
	c, err := b.activeCall()
	if err != nil {
		return err
	}
	return awaitEvent(ctx, "reject", c, CallEventReject, c.Reject)
}

func (b *Binding) CompleteContact(ctx context.Context, contactID string) error {
	return b.conf.CompleteConference(ctx, contactID)
}

func (b *Binding) DestroyConnection(ctx context.Context, connectionID string) error {
	b.mu.Lock()
	c := b.call
	b.mu.Unlock()

	// the agent's own leg hangs up through the device; every other leg is
	// a conference participant
	if c != nil && c.SID() == connectionID {
		b.forget(c)
		return awaitEvent(ctx, "disconnect", c, CallEventDisconnect, c.Disconnect)
	}
	if c == nil {
		return fmt.Errorf("twilioflex: no device call")
	}
	return b.conf.RemoveParticipant(ctx, c.ConferenceSID(), connectionID)
}

func (b *Binding) HoldConnection(ctx context.Context, connectionID string) error {
	c, err := b.activeCall()
	if err != nil {
		return err
	}
	return b.conf.HoldParticipant(ctx, c.ConferenceSID(), connectionID)
}

func (b *Binding) ResumeConnection(ctx context.Context, connectionID string) error {
	c, err := b.activeCall()
	if err != nil {
		return err
	}
	return b.conf.ResumeParticipant(ctx, c.ConferenceSID(), connectionID)
}

// ColdTransfer redirects the customer participant to the endpoint, then
// drops the agent leg. The vendor has no atomic swap.
func (b *Binding) ColdTransfer(ctx context.Context, contactID string, ep endpoint.Endpoint) error {
	c, err := b.activeCall()
	if err != nil {
		return err
	}
	if err := b.conf.RedirectParticipant(ctx, contactID, c.CustomerSID(), ep.Address); err != nil {
		return err
	}
	b.forget(c)
	return awaitEvent(ctx, "disconnect", c, CallEventDisconnect, c.Disconnect)
}

func (b *Binding) AddParticipant(ctx context.Context, contactID string, ep endpoint.Endpoint) (string, error) {
	return b.conf.AddParticipant(ctx, contactID, ep.Address)
}

func (b *Binding) MergeConnections(ctx context.Context, contactID string) error {
	return b.conf.MergeParticipants(ctx, contactID)
}

func (b *Binding) ActiveConnectionID() (string, bool) {
	c, ok := b.device.ActiveCall()
	if !ok {
		return "", false
	}
	return c.SID(), true
}

var _ provider.Binding = (*Binding)(nil)
