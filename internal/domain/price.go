package domain

import "time"

// PricePoint is a single venue's spot quote for a token. Immutable once
// produced by the aggregator.
type PricePoint struct {
	Venue      string    `json:"venue"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// PriceSnapshot is the merged per-token view for one refresh cycle. The
// aggregator builds a fresh snapshot every cycle; nothing mutates it in place
// afterwards, so readers never observe a half-updated view.
type PriceSnapshot struct {
	Token       string                `json:"token"`
	BaseAddress string                `json:"base_address"`
	PriceUSD    float64               `json:"price_usd"`
	Change24h   float64               `json:"change_24h"`
	Volume24h   float64               `json:"volume_24h"`
	Venues      map[string]PricePoint `json:"venues"`
	Source      string                `json:"source"` // adapter that produced the base price
	Cycle       uint64                `json:"cycle"`
	FetchedAt   time.Time             `json:"fetched_at"`
}

// VenueNames returns the venue keys present in the snapshot. Order is
// unspecified; callers that need determinism must sort.
func (s PriceSnapshot) VenueNames() []string {
	names := make([]string, 0, len(s.Venues))
	for v := range s.Venues {
		names = append(names, v)
	}
	return names
}

// GasReading is one observation from the gas oracle.
type GasReading struct {
	PriceGwei   float64   `json:"price_gwei"`
	BlockNumber uint64    `json:"block_number"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Congestion buckets the current gas price for status reporting.
type Congestion string

const (
	CongestionLow    Congestion = "low"
	CongestionMedium Congestion = "medium"
	CongestionHigh   Congestion = "high"
)

// CongestionLevel maps a gas price in gwei to a coarse congestion bucket.
func CongestionLevel(gwei float64) Congestion {
	switch {
	case gwei < 20:
		return CongestionLow
	case gwei < 60:
		return CongestionMedium
	default:
		return CongestionHigh
	}
}
