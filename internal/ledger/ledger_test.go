package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

func entryAt(id string, at time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:            id,
		OpportunityID: "ETH:SushiSwap:Uniswap V3:1",
		Token:         "ETH",
		State:         domain.ExecSettled,
		SubmittedAt:   at,
	}
}

func TestMemoryStore_NewestFirst(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(context.Background(), entryAt(id, base.Add(time.Duration(i)*time.Minute))))
	}

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "c", entries[0].ID)
	require.Equal(t, "a", entries[2].ID)

	limited, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, "c", limited[0].ID)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestMemoryStore_ListBefore(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(context.Background(), entryAt("old", base)))
	require.NoError(t, store.Append(context.Background(), entryAt("new", base.Add(time.Hour))))

	aged, err := store.ListBefore(context.Background(), base.Add(30*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, aged, 1)
	require.Equal(t, "old", aged[0].ID)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(context.Background(), entryAt("x", time.Now()))
		}()
	}
	wg.Wait()

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 50, count)
}

type captureBlob struct {
	key  string
	data []byte
	ct   string
	n    int
}

func (c *captureBlob) Write(ctx context.Context, key string, data []byte, contentType string) error {
	c.key, c.data, c.ct = key, data, contentType
	c.n++
	return nil
}

func TestArchiver_WritesAgedEntriesAsJSONL(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(context.Background(), entryAt("aged-1", now.Add(-48*time.Hour))))
	require.NoError(t, store.Append(context.Background(), entryAt("aged-2", now.Add(-36*time.Hour))))
	require.NoError(t, store.Append(context.Background(), entryAt("recent", now.Add(-time.Hour))))

	blob := &captureBlob{}
	a := NewArchiver(store, blob, 24*time.Hour, time.Hour, slog.New(slog.DiscardHandler))
	a.now = func() time.Time { return now }

	require.NoError(t, a.ArchiveOnce(context.Background()))
	require.Equal(t, 1, blob.n)
	require.True(t, strings.HasPrefix(blob.key, "ledger/2026/08/28/"))
	require.Equal(t, "application/x-ndjson", blob.ct)

	lines := strings.Split(strings.TrimSpace(string(blob.data)), "\n")
	require.Len(t, lines, 2, "only aged entries are archived")
	var first domain.LedgerEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "aged-1", first.ID)
}

func TestArchiver_NoopWhenNothingAged(t *testing.T) {
	blob := &captureBlob{}
	a := NewArchiver(NewMemoryStore(), blob, 24*time.Hour, time.Hour, slog.New(slog.DiscardHandler))
	require.NoError(t, a.ArchiveOnce(context.Background()))
	require.Zero(t, blob.n)
}
