package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// releaseScript deletes the lock only if it is still owned by the caller, so
// a release after TTL expiry cannot free someone else's lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// LockManager implements domain.LockManager with SET NX leases, for
// deployments where multiple processes share one actor wallet.
type LockManager struct {
	rdb *redis.Client
}

func NewLockManager(client *Client) *LockManager {
	return &LockManager{rdb: client.Underlying()}
}

// TryLock acquires the lock for key, or returns domain.ErrLockHeld if another
// holder has it. The returned release function is idempotent and only removes
// the caller's own lease.
func (m *LockManager) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lockKey := "flasharb:lock:" + key

	ok, err := m.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: lock %s: %w", key, domain.ErrLockHeld)
	}

	release := func() {
		// Release must not inherit a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, m.rdb, []string{lockKey}, token).Err()
	}
	return release, nil
}
