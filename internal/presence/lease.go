package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"softphone-core/pkg/utils"
)

// ErrLineBusy means another session currently owns the agent's line.
var ErrLineBusy = errors.New("presence: agent line held by another session")

// LineLease guards an agent's softphone line so only one session drives it.
// The browser got this for free from its single tab; a server-side session
// needs the lease to stop a second login from hijacking live calls.
type LineLease struct {
	rdb    *redis.Client
	key    string
	holder string
	ttl    time.Duration
}

// LeaseKey names the lease entry for one agent line.
func LeaseKey(workspaceID, agentID string) string {
	return "line-lease:" + workspaceID + ":" + agentID
}

func NewLineLease(rdb *redis.Client, workspaceID, agentID, holder string, ttl time.Duration) *LineLease {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LineLease{
		rdb:    rdb,
		key:    LeaseKey(workspaceID, agentID),
		holder: holder,
		ttl:    ttl,
	}
}

// Acquire claims the line, or refreshes the TTL when this session already
// holds it. Returns ErrLineBusy if another session owns the line.
func (l *LineLease) Acquire(ctx context.Context) error {
	ok, err := utils.AcquireLineLease(ctx, l.rdb, l.key, l.holder, l.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLineBusy
	}
	return nil
}

// KeepAlive refreshes the lease on an interval until ctx is done. Losing
// the lease mid-session is reported through lost and the loop stops.
func (l *LineLease) KeepAlive(ctx context.Context, lost chan<- error) {
	interval := l.ttl / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Acquire(ctx); err != nil {
				select {
				case lost <- err:
				default:
				}
				return
			}
		}
	}
}

// Release gives the line up. Releasing a lease held by someone else is a
// no-op.
func (l *LineLease) Release(ctx context.Context) error {
	return utils.ReleaseLineLease(ctx, l.rdb, l.key, l.holder)
}
