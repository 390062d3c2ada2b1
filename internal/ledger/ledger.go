package ledger

import "sync"

// Ledger tracks the participant connections and pending-transfer records of
// the single active contact. It is owned by one callcontrol session and
// reset exactly once per contact lifecycle, at contact termination.
//
// All operations are synchronous, in-memory only.
type Ledger struct {
	mu          sync.Mutex
	connections []Connection
	pending     []PendingTransfer
}

func New() *Ledger { return &Ledger{} }

// RecordConnection appends a connection. An existing entry with the same id
// is replaced in place so provider re-notifications do not duplicate legs.
func (l *Ledger) RecordConnection(c Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.connections {
		if l.connections[i].ConnectionID == c.ConnectionID {
			l.connections[i] = c
			return
		}
	}
	l.connections = append(l.connections, c)
}

func (l *Ledger) RemoveConnection(connectionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.connections {
		if l.connections[i].ConnectionID == connectionID {
			l.connections = append(l.connections[:i], l.connections[i+1:]...)
			return
		}
	}
}

func (l *Ledger) FindConnection(connectionID string) (Connection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.connections {
		if c.ConnectionID == connectionID {
			return c, true
		}
	}
	return Connection{}, false
}

// SetStatus updates a connection's status in place.
func (l *Ledger) SetStatus(connectionID string, s Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.connections {
		if l.connections[i].ConnectionID == connectionID {
			l.connections[i].Status = s
			return true
		}
	}
	return false
}

// AgentConnection returns the agent leg, if present.
func (l *Ledger) AgentConnection() (Connection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.connections {
		if c.Role == RoleAgent {
			return c, true
		}
	}
	return Connection{}, false
}

// ListConnections returns a snapshot ordered agent leg, then customer leg,
// then participants in insertion order. The UI relies on this ordering.
func (l *Ledger) ListConnections() []Connection {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Connection, 0, len(l.connections))
	for _, c := range l.connections {
		if c.Role == RoleAgent {
			out = append(out, c)
		}
	}
	for _, c := range l.connections {
		if c.Role == RoleCustomer {
			out = append(out, c)
		}
	}
	for _, c := range l.connections {
		if c.Role == RoleParticipant {
			out = append(out, c)
		}
	}
	return out
}

func (l *Ledger) ConnectionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.connections)
}

// MarkConference flags a single connection as a conference member.
func (l *Ledger) MarkConference(connectionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.connections {
		if l.connections[i].ConnectionID == connectionID {
			l.connections[i].InConference = true
			return
		}
	}
}

func (l *Ledger) RecordPendingTransfer(p PendingTransfer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, p)
}

func (l *Ledger) RemovePendingTransfer(connectionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.pending {
		if l.pending[i].ConnectionID == connectionID {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}

func (l *Ledger) FindPendingTransfer(connectionID string) (PendingTransfer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.pending {
		if p.ConnectionID == connectionID {
			return p, true
		}
	}
	return PendingTransfer{}, false
}

// MostRecentPendingTransfer returns the last-appended pending record.
// CompleteTransfer with no explicit connection id targets this one.
func (l *Ledger) MostRecentPendingTransfer() (PendingTransfer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return PendingTransfer{}, false
	}
	return l.pending[len(l.pending)-1], true
}

func (l *Ledger) ClearPendingTransfers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
}

// MarkAllConference flags every pending record and every non-customer leg
// as conference members. Used by merge.
func (l *Ledger) MarkAllConference() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.pending {
		l.pending[i].IsConference = true
	}
	for i := range l.connections {
		l.connections[i].InConference = true
	}
}

func (l *Ledger) PendingTransfers() []PendingTransfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PendingTransfer, len(l.pending))
	copy(out, l.pending)
	return out
}

func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Reset empties the ledger. Called exactly once per contact lifecycle.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connections = nil
	l.pending = nil
}
