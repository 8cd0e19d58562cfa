package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	leaderKey = "reconciler:leader"
	leaderTTL = 30 * time.Second
)

var ErrLeaseLost = errors.New("leader lease lost")

// renewScript extends the lease only while it still carries our instance id.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// releaseScript deletes the lease only while it still carries our instance id.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// LeaderElector holds a Redis lease so that only one instance reconciles counters at a time.
type LeaderElector struct {
	rdb        redis.Cmdable
	instanceID string
	key        string
	ttl        time.Duration
}

// NewLeaderElector creates a lease holder. instanceID should be unique per process
// (hostname-PID works).
func NewLeaderElector(rdb redis.Cmdable, instanceID string) *LeaderElector {
	return &LeaderElector{
		rdb:        rdb,
		instanceID: instanceID,
		key:        leaderKey,
		ttl:        leaderTTL,
	}
}

// TryAcquire reports whether this instance now holds the lease. Re-acquiring a lease
// we already hold succeeds and refreshes its TTL.
func (l *LeaderElector) TryAcquire(ctx context.Context) (bool, error) {
	err := l.rdb.SetArgs(ctx, l.key, l.instanceID, redis.SetArgs{Mode: "NX", TTL: l.ttl}).Err()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to acquire leader lease: %w", err)
	}

	if err := l.Renew(ctx); err != nil {
		if errors.Is(err, ErrLeaseLost) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Renew extends the lease. Returns ErrLeaseLost if another instance holds it or it expired.
func (l *LeaderElector) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to renew leader lease: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Release gives up the lease if we still hold it.
func (l *LeaderElector) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release leader lease: %w", err)
	}
	return nil
}
