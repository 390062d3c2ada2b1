package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to agents by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogCallOperation records one call-control action against a contact.
func (s *Service) LogCallOperation(ctx context.Context, workspaceID, agentID, contactID, connectionID, operation, message string) error {
	return s.Append(ctx, Event{
		WorkspaceID:  workspaceID,
		Type:         EventTypeCallOperation,
		AgentID:      agentID,
		ContactID:    contactID,
		ConnectionID: connectionID,
		Operation:    operation,
		Message:      message,
	})
}

// LogStateChange records a routing-state transition.
func (s *Service) LogStateChange(ctx context.Context, workspaceID, agentID, fromState, toState string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeStateChange,
		AgentID:     agentID,
		Operation:   "set_state",
		Message:     fromState + " -> " + toState,
	})
}
