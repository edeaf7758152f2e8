package domain

import (
	"context"
	"time"
)

// LedgerStore is the append-only record of execution attempts. Append must be
// atomic with respect to concurrent appends; List returns entries newest
// first. Entries are never updated or deleted by the pipeline — retention is
// the integrator's concern (see Archiver).
type LedgerStore interface {
	Append(ctx context.Context, entry LedgerEntry) error
	List(ctx context.Context, limit int) ([]LedgerEntry, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]LedgerEntry, error)
	Count(ctx context.Context) (int, error)
}

// LiveStateMirror is an optional best-effort mirror of the scheduler's
// current view for out-of-process readers (dashboards, other services).
// Failures are logged, never propagated into the refresh cycle.
type LiveStateMirror interface {
	SetSnapshots(ctx context.Context, snaps []PriceSnapshot) error
	SetGas(ctx context.Context, gas GasReading) error
	SetOpportunities(ctx context.Context, opps []Opportunity) error
	Publish(ctx context.Context, channel string, payload []byte) error
}

// LockManager serializes execution attempts per actor. TryLock returns
// ErrLockHeld when another invocation for the same key is in flight.
type LockManager interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter stores archive objects (ledger cold storage).
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
