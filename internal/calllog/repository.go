package calllog

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: This repository assumes the following table exists:
// - call_records
//
// with an idempotency constraint:
// UNIQUE (workspace_id, contact_id)

func findRecordByContact(ctx context.Context, tx *sql.Tx, workspaceID, contactID string) (CallRecord, bool, error) {
	const q = `
SELECT record_id, workspace_id, agent_id, contact_id, direction, from_address, to_address,
       started_at, ended_at, duration, disposition_id, notes, created_at, updated_at
FROM call_records
WHERE workspace_id = $1 AND contact_id = $2
LIMIT 1
`
	var r CallRecord
	err := tx.QueryRowContext(ctx, q, workspaceID, contactID).Scan(
		&r.RecordID,
		&r.WorkspaceID,
		&r.AgentID,
		&r.ContactID,
		&r.Direction,
		&r.From,
		&r.To,
		&r.StartedAt,
		&r.EndedAt,
		&r.DurationSeconds,
		&r.DispositionID,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, false, nil
		}
		return CallRecord{}, false, err
	}
	return r, true, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, r CallRecord) error {
	const q = `
INSERT INTO call_records (
  record_id, workspace_id, agent_id, contact_id, direction, from_address, to_address,
  started_at, ended_at, duration, disposition_id, notes, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)
`
	_, err := tx.ExecContext(ctx, q,
		r.RecordID,
		r.WorkspaceID,
		r.AgentID,
		r.ContactID,
		r.Direction,
		r.From,
		r.To,
		r.StartedAt,
		r.EndedAt,
		r.DurationSeconds,
		r.DispositionID,
		r.Notes,
		r.CreatedAt,
		r.UpdatedAt,
	)
	return err
}

func setRecordEnded(ctx context.Context, tx *sql.Tx, workspaceID, contactID string, r CallRecord) error {
	const q = `
UPDATE call_records
SET ended_at = $3, duration = $4, updated_at = $5
WHERE workspace_id = $1 AND contact_id = $2
`
	_, err := tx.ExecContext(ctx, q, workspaceID, contactID, r.EndedAt, r.DurationSeconds, r.UpdatedAt)
	return err
}

func setRecordDisposition(ctx context.Context, tx *sql.Tx, workspaceID, contactID string, r CallRecord) error {
	const q = `
UPDATE call_records
SET disposition_id = $3, notes = $4, updated_at = $5
WHERE workspace_id = $1 AND contact_id = $2
`
	_, err := tx.ExecContext(ctx, q, workspaceID, contactID, r.DispositionID, r.Notes, r.UpdatedAt)
	return err
}

func listRecordsByAgent(ctx context.Context, db *sql.DB, workspaceID, agentID string, limit int) ([]CallRecord, error) {
	const q = `
SELECT record_id, workspace_id, agent_id, contact_id, direction, from_address, to_address,
       started_at, ended_at, duration, disposition_id, notes, created_at, updated_at
FROM call_records
WHERE workspace_id = $1 AND agent_id = $2
ORDER BY started_at DESC
LIMIT $3
`
	rows, err := db.QueryContext(ctx, q, workspaceID, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var r CallRecord
		if err := rows.Scan(
			&r.RecordID,
			&r.WorkspaceID,
			&r.AgentID,
			&r.ContactID,
			&r.Direction,
			&r.From,
			&r.To,
			&r.StartedAt,
			&r.EndedAt,
			&r.DurationSeconds,
			&r.DispositionID,
			&r.Notes,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
