package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// Aggregator walks a fixed priority list of price sources and produces one
// internally consistent snapshot set per refresh cycle. Fallback happens for
// the whole batch, never per token, so cross-venue comparisons inside one
// cycle always come from a single provider.
//
// The aggregator holds no mutable pipeline state; the scheduler owns the
// "current snapshot" storage.
type Aggregator struct {
	sources []Source
	venues  VenueSource // optional best-effort venue enrichment
	timeout time.Duration
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator that tries sources in the given order.
// venues may be nil. timeout bounds each adapter call.
func NewAggregator(sources []Source, venues VenueSource, timeout time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		sources: sources,
		venues:  venues,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "aggregator")),
	}
}

// Refresh fetches prices for the token set. cycle is the scheduler's refresh
// sequence number and is stamped onto every snapshot so downstream consumers
// (and opportunity IDs) can tell cycles apart.
//
// When every source fails, Refresh returns an error wrapping
// domain.ErrAllSourcesDown; it never fabricates data. Callers decide whether
// to reuse the previous known-good snapshot.
func (a *Aggregator) Refresh(ctx context.Context, tokens []string, cycle uint64) ([]domain.PriceSnapshot, string, error) {
	var failures []error

	for _, src := range a.sources {
		snaps, err := a.fetchFrom(ctx, src, tokens)
		if err != nil {
			a.logger.WarnContext(ctx, "price source failed, falling through",
				slog.String("source", src.Name()),
				slog.String("error", err.Error()),
			)
			failures = append(failures, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		if len(snaps) == 0 {
			failures = append(failures, fmt.Errorf("%s: empty response", src.Name()))
			continue
		}

		for i := range snaps {
			snaps[i].Cycle = cycle
		}
		a.enrichVenues(ctx, src.Name(), tokens, snaps)
		return snaps, src.Name(), nil
	}

	return nil, "", fmt.Errorf("aggregator: %w: %w", domain.ErrAllSourcesDown, errors.Join(failures...))
}

// fetchFrom calls one adapter under the per-call timeout.
func (a *Aggregator) fetchFrom(ctx context.Context, src Source, tokens []string) ([]domain.PriceSnapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return src.FetchPrices(callCtx, tokens)
}

// enrichVenues fills in per-venue sub-prices from the secondary venue source
// for snapshots the base provider left venue-less. Failure here degrades the
// snapshot to a single-venue view instead of failing the cycle.
func (a *Aggregator) enrichVenues(ctx context.Context, baseSource string, tokens []string, snaps []domain.PriceSnapshot) {
	needs := false
	for i := range snaps {
		if len(snaps[i].Venues) < 2 {
			needs = true
			break
		}
	}

	if needs && a.venues != nil && a.venues.Name() != baseSource {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		venuePrices, err := a.venues.FetchVenuePrices(callCtx, tokens)
		cancel()
		if err != nil {
			a.logger.WarnContext(ctx, "venue enrichment failed, serving single-venue snapshots",
				slog.String("source", a.venues.Name()),
				slog.String("error", err.Error()),
			)
		} else {
			for i := range snaps {
				if len(snaps[i].Venues) >= 2 {
					continue
				}
				if points, ok := venuePrices[snaps[i].Token]; ok && len(points) > 0 {
					snaps[i].Venues = points
				}
			}
		}
	}

	// Guarantee at least the provider's own aggregate quote as a venue so a
	// snapshot is never venue-less.
	for i := range snaps {
		if len(snaps[i].Venues) == 0 {
			snaps[i].Venues = map[string]domain.PricePoint{
				baseSource: {
					Venue:      baseSource,
					Price:      snaps[i].PriceUSD,
					ObservedAt: snaps[i].FetchedAt,
				},
			}
		}
	}
}
