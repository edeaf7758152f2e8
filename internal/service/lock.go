package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// MemoryLockManager implements domain.LockManager for single-process
// deployments. Multi-process deployments share a wallet through the Redis
// lock manager instead.
type MemoryLockManager struct {
	mu   sync.Mutex
	next uint64
	held map[string]memoryLease
}

// memoryLease identifies one acquisition so a release after TTL expiry cannot
// free a successor's lease, mirroring the Redis lock's owner-token check.
type memoryLease struct {
	token  uint64
	expiry time.Time
}

func NewMemoryLockManager() *MemoryLockManager {
	return &MemoryLockManager{held: make(map[string]memoryLease)}
}

func (m *MemoryLockManager) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if lease, ok := m.held[key]; ok && now.Before(lease.expiry) {
		return nil, fmt.Errorf("service: lock %s: %w", key, domain.ErrLockHeld)
	}
	m.next++
	token := m.next
	m.held[key] = memoryLease{token: token, expiry: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			if lease, ok := m.held[key]; ok && lease.token == token {
				delete(m.held, key)
			}
			m.mu.Unlock()
		})
	}
	return release, nil
}
