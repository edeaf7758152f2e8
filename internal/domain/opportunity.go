package domain

import (
	"fmt"
	"time"
)

// OpportunityStatus is the lifecycle state of a detected opportunity.
type OpportunityStatus string

const (
	OpportunityActive    OpportunityStatus = "active"
	OpportunitySubmitted OpportunityStatus = "submitted"
	OpportunitySettled   OpportunityStatus = "settled"
	OpportunityRejected  OpportunityStatus = "rejected"
)

// Opportunity is one candidate arbitrage trade: buy on the cheaper venue,
// sell on the richer one, for a configured trade size.
//
// Invariants maintained by the detector:
//
//	NetProfit  == GrossProfit - GasCostUSD
//	SpreadPct  == |PriceA-PriceB| / min(PriceA,PriceB) * 100
type Opportunity struct {
	ID           string            `json:"id"`
	Token        string            `json:"token"`
	TokenAddress string            `json:"token_address"`
	VenueA       string            `json:"venue_a"`
	VenueB       string            `json:"venue_b"`
	PriceA       float64           `json:"price_a"`
	PriceB       float64           `json:"price_b"`
	SpreadPct    float64           `json:"spread_pct"`
	GrossProfit  float64           `json:"gross_profit"`
	GasCostUSD   float64           `json:"gas_cost_usd"`
	NetProfit    float64           `json:"net_profit"`
	TradeSize    float64           `json:"trade_size"`
	Cycle        uint64            `json:"cycle"`
	DiscoveredAt time.Time         `json:"discovered_at"`
	Status       OpportunityStatus `json:"status"`
}

// OpportunityID builds the deterministic identifier for a (token, venueA,
// venueB) pair within one refresh cycle. The cycle sequence keeps IDs from
// different cycles distinct while two detections in the same cycle agree.
func OpportunityID(token, venueA, venueB string, cycle uint64) string {
	return fmt.Sprintf("%s:%s:%s:%d", token, venueA, venueB, cycle)
}
