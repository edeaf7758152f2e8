package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// Archiver periodically copies aged ledger entries to blob storage as
// newline-delimited JSON, one object per run. The ledger itself stays
// append-only; archiving copies, it never deletes.
type Archiver struct {
	store    domain.LedgerStore
	blob     domain.BlobWriter
	maxAge   time.Duration
	interval time.Duration
	batch    int
	logger   *slog.Logger
	now      func() time.Time
}

func NewArchiver(store domain.LedgerStore, blob domain.BlobWriter, maxAge, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:    store,
		blob:     blob,
		maxAge:   maxAge,
		interval: interval,
		batch:    1000,
		logger:   logger.With("component", "ledger_archiver"),
		now:      time.Now,
	}
}

// Run archives on the configured interval until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.ArchiveOnce(ctx); err != nil {
				a.logger.Error("archive run failed", "error", err)
			}
		}
	}
}

// ArchiveOnce writes all entries older than maxAge to one blob object.
// A run with nothing to archive is a no-op.
func (a *Archiver) ArchiveOnce(ctx context.Context) error {
	cutoff := a.now().UTC().Add(-a.maxAge)
	entries, err := a.store.ListBefore(ctx, cutoff, a.batch)
	if err != nil {
		return fmt.Errorf("ledger: list entries before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("ledger: encode entry %s: %w", e.ID, err)
		}
	}

	key := fmt.Sprintf("ledger/%s.jsonl", a.now().UTC().Format("2006/01/02/150405"))
	if err := a.blob.Write(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return fmt.Errorf("ledger: write archive %s: %w", key, err)
	}

	a.logger.Info("ledger entries archived", "key", key, "entries", len(entries))
	return nil
}
