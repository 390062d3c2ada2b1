package presence

import (
	"encoding/json"
	"testing"
	"time"

	"softphone-core/internal/agentstate"
)

func TestChannelNamesAreWorkspaceScoped(t *testing.T) {
	if got := StateChannel("ws-1"); got != "presence:ws-1:state" {
		t.Fatalf("unexpected state channel %q", got)
	}
	if got := CallChannel("ws-1"); got != "presence:ws-1:calls" {
		t.Fatalf("unexpected call channel %q", got)
	}
	if got := LeaseKey("ws-1", "agent-1"); got != "line-lease:ws-1:agent-1" {
		t.Fatalf("unexpected lease key %q", got)
	}
}

func TestEncodeStatus(t *testing.T) {
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	payload, err := encodeStatus(agentstate.Change{
		AgentID: "agent-1",
		Current: agentstate.RoutingState{Name: "Lunch", Category: agentstate.CategoryNotRoutable},
		At:      at,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got StatusUpdate
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.AgentID != "agent-1" || got.State != "Lunch" || got.Category != "not-routable" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if !got.At.Equal(at) {
		t.Fatalf("unexpected timestamp %v", got.At)
	}
}

func TestEncodeStatus_RequiresAgentID(t *testing.T) {
	if _, err := encodeStatus(agentstate.Change{}); err == nil {
		t.Fatal("expected error for missing agent id")
	}
}

func TestEncodeCall_RequiresEvent(t *testing.T) {
	if _, err := encodeCall(CallUpdate{AgentID: "agent-1"}); err == nil {
		t.Fatal("expected error for missing event")
	}
	if _, err := encodeCall(CallUpdate{Event: "contact_connected"}); err == nil {
		t.Fatal("expected error for missing agent id")
	}
	payload, err := encodeCall(CallUpdate{AgentID: "agent-1", Event: "mute_changed", Muted: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got CallUpdate
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Muted || got.Event != "mute_changed" {
		t.Fatalf("unexpected payload %+v", got)
	}
}
