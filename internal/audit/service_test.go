package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresWorkspaceAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeCallOperation}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{WorkspaceID: "w"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogCallOperation(context.Background(), "w", "agent-1", "ct-1", "conn-1", "hold", "Call successfully put on hold."); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].Operation != "hold" {
		t.Fatalf("expected hold operation")
	}
	if evs[0].Type != EventTypeCallOperation {
		t.Fatalf("expected call_operation")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
}

func TestService_LogStateChange(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogStateChange(context.Background(), "w", "agent-1", "Available", "Lunch"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].Type != EventTypeStateChange {
		t.Fatalf("expected one state-change event, got %v", evs)
	}
	if evs[0].Message != "Available -> Lunch" {
		t.Fatalf("unexpected message %q", evs[0].Message)
	}
}
