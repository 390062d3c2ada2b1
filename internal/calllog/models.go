package calllog

import "time"

// CallRecord is the persisted history row for one contact. One row exists
// per contact id; disposition and notes land on it during wrap-up.
type CallRecord struct {
	RecordID    string `json:"record_id" db:"record_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	AgentID     string `json:"agent_id" db:"agent_id"`
	ContactID   string `json:"contact_id" db:"contact_id"`

	Direction string `json:"direction" db:"direction"`
	From      string `json:"from" db:"from_address"`
	To        string `json:"to" db:"to_address"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is talk time, hold included. Stored as INT.
	DurationSeconds int `json:"duration" db:"duration"`

	DispositionID string `json:"disposition_id,omitempty" db:"disposition_id"`
	Notes         string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Disposition is one wrap-up outcome code.
type Disposition struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultDispositions is the built-in wrap-up catalog.
var DefaultDispositions = []Disposition{
	{ID: "resolved", Label: "Resolved"},
	{ID: "callback", Label: "Callback scheduled"},
	{ID: "escalated", Label: "Escalated"},
	{ID: "voicemail", Label: "Left voicemail"},
	{ID: "wrong_number", Label: "Wrong number"},
	{ID: "no_answer", Label: "No answer"},
	{ID: "technical_issue", Label: "Technical issue"},
	{ID: "follow_up", Label: "Follow-up required"},
}

// ValidDisposition reports whether id is in the catalog.
func ValidDisposition(id string) bool {
	for _, d := range DefaultDispositions {
		if d.ID == id {
			return true
		}
	}
	return false
}
