// Package ledger provides the append-only record of execution attempts: an
// in-memory store for single-process deployments and an archiver that moves
// aged entries to cold storage.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// MemoryStore is an in-memory LedgerStore. Entries are immutable after
// Append; List returns them newest first.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(ctx context.Context, entry domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.LedgerEntry, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *MemoryStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, e := range m.entries {
		if e.SubmittedAt.Before(cutoff) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
