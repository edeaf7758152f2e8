package domain

import "time"

// DataFreshness distinguishes a current-cycle view from one the scheduler is
// serving because the latest refresh failed. Consumers must never be handed
// stale data without this marker.
type DataFreshness string

const (
	FreshnessNone  DataFreshness = "none"  // no successful cycle yet
	FreshnessFresh DataFreshness = "fresh" // produced by the most recent cycle
	FreshnessStale DataFreshness = "stale" // last known-good, current cycle failed
)

// EmptyReason explains why the opportunity list is empty, so the consumer
// surface never shows an undifferentiated blank list.
type EmptyReason string

const (
	EmptyReasonNone           EmptyReason = ""                 // list is not empty
	EmptyReasonNoData         EmptyReason = "no_data"          // nothing fetched yet
	EmptyReasonSourcesDown    EmptyReason = "sources_down"     // every price adapter failed
	EmptyReasonBelowThreshold EmptyReason = "below_thresholds" // prices fetched, no spread qualifies
)

// PipelineStatus is the scheduler's self-report for the consumer surface.
type PipelineStatus struct {
	Freshness        DataFreshness `json:"freshness"`
	EmptyReason      EmptyReason   `json:"empty_reason,omitempty"`
	Degraded         bool          `json:"degraded"`
	Cycle            uint64        `json:"cycle"`
	LastRefreshAt    time.Time     `json:"last_refresh_at"`
	SnapshotAge      time.Duration `json:"snapshot_age"`
	PriceFailures    uint64        `json:"price_failures"`
	GasFailures      uint64        `json:"gas_failures"`
	BlockNumber      uint64        `json:"block_number"`
	Congestion       Congestion    `json:"congestion"`
	LastError        string        `json:"last_error,omitempty"`
	ActiveSource     string        `json:"active_source,omitempty"`
	OpportunityCount int           `json:"opportunity_count"`
}
