package amazonconnect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"softphone-core/internal/endpoint"
	"softphone-core/internal/provider"
)

// Binding adapts the vendor's callback-style contact/connection SDK to the
// provider contract. Each operation resolves exactly once: the first
// success or failure callback wins, later invocations are ignored.
type Binding struct {
	bridge Bridge
	clock  func() time.Time
	log    *slog.Logger

	mu      sync.Mutex
	handler provider.ContactHandler
}

func New(bridge Bridge, log *slog.Logger) *Binding {
	if log == nil {
		log = slog.Default()
	}
	b := &Binding{bridge: bridge, clock: time.Now, log: log}

	bridge.OnContactIncoming(func(snap ContactSnapshot) {
		if h := b.currentHandler(); h != nil {
			h.HandleContactIncoming(b.toEvent(snap))
		}
	})
	bridge.OnContactConnected(func(snap ContactSnapshot) {
		if h := b.currentHandler(); h != nil {
			h.HandleContactConnected(b.toEvent(snap))
		}
	})
	bridge.OnContactEnded(func(snap ContactSnapshot) {
		if h := b.currentHandler(); h != nil {
			h.HandleContactEnded(b.toEvent(snap))
		}
	})
	return b
}

func (b *Binding) Name() string { return "amazon_connect" }

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

func (b *Binding) toEvent(snap ContactSnapshot) provider.ContactEvent {
	dir := provider.DirectionOutbound
	if snap.Inbound {
		dir = provider.DirectionInbound
	}
	return provider.ContactEvent{
		ContactID:            snap.ContactID,
		Direction:            dir,
		AgentConnectionID:    snap.AgentConnectionID,
		CustomerConnectionID: snap.CustomerConnectionID,
		CustomerEndpoint:     endpoint.Endpoint{Kind: endpoint.KindPhoneNumber, Address: snap.CustomerAddress},
		At:                   b.clock().UTC(),
	}
}

// await converts one callback-style dispatch into a single-resolution
// outcome. The sync.Once guards against vendors that fire both callbacks.
func await(ctx context.Context, op string, dispatch func(Callbacks)) error {
	done := make(chan error, 1)
	var once sync.Once
	dispatch(Callbacks{
		OnSuccess: func() {
			once.Do(func() { done <- nil })
		},
		OnFailure: func(vendorErr string) {
			once.Do(func() { done <- fmt.Errorf("amazonconnect: %s failed: %s", op, vendorErr) })
		},
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func awaitID(ctx context.Context, op string, dispatch func(IDCallbacks)) (string, error) {
	type outcome struct {
		id  string
		err error
	}
	done := make(chan outcome, 1)
	var once sync.Once
	dispatch(IDCallbacks{
		OnSuccess: func(id string) {
			once.Do(func() { done <- outcome{id: id} })
		},
		OnFailure: func(vendorErr string) {
			once.Do(func() { done <- outcome{err: fmt.Errorf("amazonconnect: %s failed: %s", op, vendorErr)} })
		},
	})
	select {
	case out := <-done:
		return out.id, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *Binding) PlaceCall(ctx context.Context, ep endpoint.Endpoint) (string, error) {
	return awaitID(ctx, "place call", func(cb IDCallbacks) {
		b.bridge.PlaceOutboundCall(ep.Address, cb)
	})
}

func (b *Binding) AcceptContact(ctx context.Context, contactID string) error {
	return await(ctx, "accept", func(cb Callbacks) {
		b.bridge.AcceptContact(contactID, cb)
	})
}

func (b *Binding) DeclineContact(ctx context.Context, contactID string) error {
	return await(ctx, "reject", func(cb Callbacks) {
		b.bridge.RejectContact(contactID, cb)
	})
}

func (b *Binding) CompleteContact(ctx context.Context, contactID string) error {
	return await(ctx, "complete", func(cb Callbacks) {
		b.bridge.CompleteContact(contactID, cb)
	})
}

func (b *Binding) DestroyConnection(ctx context.Context, connectionID string) error {
	return await(ctx, "destroy connection", func(cb Callbacks) {
		b.bridge.DestroyConnection(connectionID, cb)
	})
}

func (b *Binding) HoldConnection(ctx context.Context, connectionID string) error {
	return await(ctx, "hold", func(cb Callbacks) {
		b.bridge.HoldConnection(connectionID, cb)
	})
}

func (b *Binding) ResumeConnection(ctx context.Context, connectionID string) error {
	return await(ctx, "resume", func(cb Callbacks) {
		b.bridge.ResumeConnection(connectionID, cb)
	})
}

func (b *Binding) ColdTransfer(ctx context.Context, contactID string, ep endpoint.Endpoint) error {
	return await(ctx, "transfer", func(cb Callbacks) {
		b.bridge.TransferContact(contactID, ep.Address, ep.Kind == endpoint.KindQueue, cb)
	})
}

func (b *Binding) AddParticipant(ctx context.Context, contactID string, ep endpoint.Endpoint) (string, error) {
	return awaitID(ctx, "add connection", func(cb IDCallbacks) {
		b.bridge.AddConnection(contactID, ep.Address, ep.Kind == endpoint.KindQueue, cb)
	})
}

func (b *Binding) MergeConnections(ctx context.Context, contactID string) error {
	return await(ctx, "conference", func(cb Callbacks) {
		b.bridge.ConferenceConnections(contactID, cb)
	})
}

func (b *Binding) ActiveConnectionID() (string, bool) {
	return b.bridge.ActiveConnectionID()
}

var _ provider.Binding = (*Binding)(nil)
