package calllog

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"softphone-core/pkg/utils"
)

// Service owns the call history of one agent session. It implements the
// session's disposition recorder; RecordDisposition is idempotent per
// contact id so wrap-up completion can be retried safely.
type Service struct {
	db          *sql.DB
	workspaceID string
	agentID     string
	clock       func() time.Time
	log         *slog.Logger

	newID func() string
}

func NewService(db *sql.DB, workspaceID, agentID string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:          db,
		workspaceID: workspaceID,
		agentID:     agentID,
		clock:       time.Now,
		log:         log,
		newID:       uuid.NewString,
	}
}

// Dispositions returns the wrap-up catalog.
func (s *Service) Dispositions() []Disposition {
	out := make([]Disposition, len(DefaultDispositions))
	copy(out, DefaultDispositions)
	return out
}

// OpenRecord creates the history row when a contact starts. Idempotent: a
// second open for the same contact is a no-op.
func (s *Service) OpenRecord(ctx context.Context, contactID, direction, from, to string, startedAt time.Time) error {
	now := s.clock().UTC()
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, found, err := findRecordByContact(ctx, tx, s.workspaceID, contactID)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		return insertRecord(ctx, tx, CallRecord{
			RecordID:    s.newID(),
			WorkspaceID: s.workspaceID,
			AgentID:     s.agentID,
			ContactID:   contactID,
			Direction:   direction,
			From:        from,
			To:          to,
			StartedAt:   startedAt.UTC(),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
}

// CloseRecord stamps the end time and talk duration. A close without a
// prior open is logged and dropped; history must never block teardown.
func (s *Service) CloseRecord(ctx context.Context, contactID string, endedAt time.Time) error {
	now := s.clock().UTC()
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		rec, found, err := findRecordByContact(ctx, tx, s.workspaceID, contactID)
		if err != nil {
			return err
		}
		if !found {
			s.log.Warn("close for unknown contact", "contact_id", contactID)
			return nil
		}
		if rec.EndedAt != nil {
			return nil
		}
		ended := endedAt.UTC()
		rec.EndedAt = &ended
		rec.DurationSeconds = int(ended.Sub(rec.StartedAt) / time.Second)
		if rec.DurationSeconds < 0 {
			rec.DurationSeconds = 0
		}
		rec.UpdatedAt = now
		return setRecordEnded(ctx, tx, s.workspaceID, contactID, rec)
	})
}

// RecordDisposition attaches the wrap-up outcome to the contact's history
// row, creating the row if contact events never reached the log. Codes
// outside the catalog are stored as-is; the catalog is a UI concern, and
// rejecting here would block wrap-up completion.
func (s *Service) RecordDisposition(ctx context.Context, contactID, dispositionID, notes string) error {
	if !ValidDisposition(dispositionID) {
		s.log.Warn("disposition outside catalog", "contact_id", contactID, "disposition_id", dispositionID)
	}
	now := s.clock().UTC()
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		rec, found, err := findRecordByContact(ctx, tx, s.workspaceID, contactID)
		if err != nil {
			return err
		}
		if !found {
			return insertRecord(ctx, tx, CallRecord{
				RecordID:      s.newID(),
				WorkspaceID:   s.workspaceID,
				AgentID:       s.agentID,
				ContactID:     contactID,
				StartedAt:     now,
				DispositionID: dispositionID,
				Notes:         notes,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if rec.DispositionID == dispositionID && rec.Notes == notes {
			return nil
		}
		rec.DispositionID = dispositionID
		rec.Notes = notes
		rec.UpdatedAt = now
		return setRecordDisposition(ctx, tx, s.workspaceID, contactID, rec)
	})
}

// History lists the agent's most recent records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return listRecordsByAgent(ctx, s.db, s.workspaceID, s.agentID, limit)
}
