// Package pricing acquires per-token spot prices from external feeds and
// merges them into internally consistent snapshots. One adapter wraps one
// provider; the Aggregator owns the fallback order so a slow or failing
// provider never mixes with another inside a single refresh cycle.
package pricing

import (
	"context"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// Source is one external price feed. FetchPrices returns a snapshot per
// requested token; tokens the provider does not know are omitted rather than
// failing the batch. Adapters must honor ctx cancellation and deadlines.
type Source interface {
	Name() string
	FetchPrices(ctx context.Context, tokens []string) ([]domain.PriceSnapshot, error)
}

// VenueSource supplies per-venue sub-prices for tokens, keyed token symbol →
// venue → price point. It is consulted best-effort: a failure degrades the
// snapshot to a single-venue view instead of failing the cycle.
type VenueSource interface {
	Name() string
	FetchVenuePrices(ctx context.Context, tokens []string) (map[string]map[string]domain.PricePoint, error)
}
