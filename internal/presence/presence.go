package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"softphone-core/internal/agentstate"
)

// Publisher fans agent presence out over Redis pub/sub so supervisor
// dashboards and other instances see routing-state and mute changes without
// polling. Publishing is best-effort; presence loss never blocks call
// control.
type Publisher struct {
	rdb         *redis.Client
	workspaceID string
	clock       func() time.Time
	log         *slog.Logger
}

func NewPublisher(rdb *redis.Client, workspaceID string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{rdb: rdb, workspaceID: workspaceID, clock: time.Now, log: log}
}

// StateChannel is the pub/sub channel carrying routing-state updates for a
// workspace.
func StateChannel(workspaceID string) string {
	return "presence:" + workspaceID + ":state"
}

// CallChannel is the pub/sub channel carrying call activity updates for a
// workspace.
func CallChannel(workspaceID string) string {
	return "presence:" + workspaceID + ":calls"
}

// StatusUpdate is the wire payload for one presence change.
type StatusUpdate struct {
	AgentID  string    `json:"agent_id"`
	State    string    `json:"state"`
	Category string    `json:"category"`
	At       time.Time `json:"at"`
}

// CallUpdate is the wire payload for one call activity change.
type CallUpdate struct {
	AgentID   string    `json:"agent_id"`
	ContactID string    `json:"contact_id,omitempty"`
	Event     string    `json:"event"`
	Muted     bool      `json:"muted,omitempty"`
	At        time.Time `json:"at"`
}

func encodeStatus(ch agentstate.Change) ([]byte, error) {
	if ch.AgentID == "" {
		return nil, fmt.Errorf("presence: agent id is required")
	}
	return json.Marshal(StatusUpdate{
		AgentID:  ch.AgentID,
		State:    ch.Current.Name,
		Category: string(ch.Current.Category),
		At:       ch.At,
	})
}

func encodeCall(u CallUpdate) ([]byte, error) {
	if u.AgentID == "" {
		return nil, fmt.Errorf("presence: agent id is required")
	}
	if u.Event == "" {
		return nil, fmt.Errorf("presence: event is required")
	}
	return json.Marshal(u)
}

// PublishStateChange pushes a routing-state transition. Implements
// agentstate.ChangeSink via StateSink.
func (p *Publisher) PublishStateChange(ctx context.Context, ch agentstate.Change) error {
	payload, err := encodeStatus(ch)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, StateChannel(p.workspaceID), payload).Err()
}

// PublishCallUpdate pushes a call activity change.
func (p *Publisher) PublishCallUpdate(ctx context.Context, u CallUpdate) error {
	if u.At.IsZero() {
		u.At = p.clock().UTC()
	}
	payload, err := encodeCall(u)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, CallChannel(p.workspaceID), payload).Err()
}

// StateSink adapts the publisher to the agent-state change contract.
// Publish failures are logged and swallowed; sinks must not block.
func (p *Publisher) StateSink() agentstate.ChangeSink {
	return func(ch agentstate.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.PublishStateChange(ctx, ch); err != nil {
			p.log.Warn("presence publish failed", "agent_id", ch.AgentID, "error", err)
		}
	}
}
