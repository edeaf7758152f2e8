// Package detector scores cross-venue price discrepancies as candidate
// arbitrage trades net of estimated gas cost. Detection is pure: no I/O, no
// clock reads beyond the snapshot timestamps, and deterministic output for
// identical input, which keeps it unit-testable without network mocking.
package detector

import (
	"math"
	"sort"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// Config holds the scoring thresholds. All values are tunable; nothing here
// is baked into the algorithm.
type Config struct {
	MinSpreadPct     float64 // pairs below this relative spread are skipped
	MinNetProfitUSD  float64 // absolute profit floor after gas
	TradeSize        float64 // notional in units of the traded token
	GasUnitsEstimate uint64  // fixed estimate for one flash-loan execution
	MaxOpportunities int     // ranked list truncation bound
}

// Detector enumerates venue pairs per token and emits ranked opportunities.
type Detector struct {
	cfg Config
}

// New creates a Detector with the given thresholds.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect scans every token snapshot for profitable venue pairs given the
// current gas price. Results are sorted by net profit descending; ties keep
// discovery order (token order in the input, then lexicographic venue pairs).
//
// Gas cost is priced in the token's own USD quote — a deliberate modeling
// simplification inherited from the settlement contract's accounting, where
// the flash-loan asset also covers execution cost.
func (d *Detector) Detect(snapshots []domain.PriceSnapshot, gasPriceGwei float64) []domain.Opportunity {
	var opps []domain.Opportunity

	for _, snap := range snapshots {
		if len(snap.Venues) < 2 {
			continue
		}

		venues := snap.VenueNames()
		sort.Strings(venues)

		for i := 0; i < len(venues); i++ {
			for j := i + 1; j < len(venues); j++ {
				pi := snap.Venues[venues[i]].Price
				pj := snap.Venues[venues[j]].Price
				if pi <= 0 || pj <= 0 {
					continue
				}

				low := math.Min(pi, pj)
				spreadPct := math.Abs(pi-pj) / low * 100
				if spreadPct < d.cfg.MinSpreadPct {
					continue
				}

				grossProfit := spreadPct / 100 * d.cfg.TradeSize * low
				gasCostUSD := gasPriceGwei * float64(d.cfg.GasUnitsEstimate) * snap.PriceUSD / 1e9
				netProfit := grossProfit - gasCostUSD
				if netProfit < d.cfg.MinNetProfitUSD {
					continue
				}

				opps = append(opps, domain.Opportunity{
					ID:           domain.OpportunityID(snap.Token, venues[i], venues[j], snap.Cycle),
					Token:        snap.Token,
					TokenAddress: snap.BaseAddress,
					VenueA:       venues[i],
					VenueB:       venues[j],
					PriceA:       pi,
					PriceB:       pj,
					SpreadPct:    spreadPct,
					GrossProfit:  grossProfit,
					GasCostUSD:   gasCostUSD,
					NetProfit:    netProfit,
					TradeSize:    d.cfg.TradeSize,
					Cycle:        snap.Cycle,
					DiscoveredAt: snap.FetchedAt,
					Status:       domain.OpportunityActive,
				})
			}
		}
	}

	// Stable sort keeps discovery order for equal net profits.
	sort.SliceStable(opps, func(a, b int) bool {
		return opps[a].NetProfit > opps[b].NetProfit
	})

	if d.cfg.MaxOpportunities > 0 && len(opps) > d.cfg.MaxOpportunities {
		opps = opps[:d.cfg.MaxOpportunities]
	}
	return opps
}

// BreakEvenGasGwei returns the gas price at which an opportunity's net profit
// crosses zero, given the detector's gas-unit estimate.
func (d *Detector) BreakEvenGasGwei(grossProfit, tokenPriceUSD float64) float64 {
	if tokenPriceUSD <= 0 || d.cfg.GasUnitsEstimate == 0 {
		return 0
	}
	return grossProfit * 1e9 / (float64(d.cfg.GasUnitsEstimate) * tokenPriceUSD)
}
