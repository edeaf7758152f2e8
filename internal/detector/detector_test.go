package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

func ethSnapshot(cycle uint64, venues map[string]float64) domain.PriceSnapshot {
	points := make(map[string]domain.PricePoint, len(venues))
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for name, price := range venues {
		points[name] = domain.PricePoint{Venue: name, Price: price, ObservedAt: ts}
	}
	return domain.PriceSnapshot{
		Token:     "ETH",
		PriceUSD:  3245.67,
		Venues:    points,
		Cycle:     cycle,
		FetchedAt: ts,
	}
}

// Scenario from the original deployment: a 2.22 USD gap between Uniswap V3
// and SushiSwap on ETH at 25 gwei.
func TestDetect_KnownSpread(t *testing.T) {
	det := New(Config{
		MinSpreadPct:     0.05,
		MinNetProfitUSD:  -100, // accept negative-carry candidates for inspection
		TradeSize:        10,
		GasUnitsEstimate: 350_000,
		MaxOpportunities: 10,
	})

	snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{
		"Uniswap V3": 3245.67,
		"SushiSwap":  3247.89,
	})}

	opps := det.Detect(snaps, 25)
	require.Len(t, opps, 1)

	o := opps[0]
	require.InDelta(t, 0.0684, o.SpreadPct, 0.0001)
	require.InDelta(t, 22.2, o.GrossProfit, 0.001)
	require.InDelta(t, 28.3996, o.GasCostUSD, 0.001)
	require.Equal(t, o.GrossProfit-o.GasCostUSD, o.NetProfit, "net profit identity must hold exactly")
	require.Equal(t, domain.OpportunityActive, o.Status)
	require.Equal(t, "SushiSwap", o.VenueA, "venue pair is enumerated in lexicographic order")
	require.Equal(t, "Uniswap V3", o.VenueB)
}

func TestDetect_Deterministic(t *testing.T) {
	det := New(Config{MinSpreadPct: 0.01, MinNetProfitUSD: -1000, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 50})
	snaps := []domain.PriceSnapshot{
		ethSnapshot(3, map[string]float64{
			"Uniswap V2": 3244.10,
			"Uniswap V3": 3245.67,
			"SushiSwap":  3247.89,
			"1inch":      3246.00,
		}),
	}

	first := det.Detect(snaps, 25)
	second := det.Detect(snaps, 25)
	require.Equal(t, first, second, "identical input must produce identical ordered output")
	require.Len(t, first, 6, "4 venues enumerate into 6 unordered pairs")
}

func TestDetect_ProfitFloor(t *testing.T) {
	det := New(Config{MinSpreadPct: 0, MinNetProfitUSD: 5, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 10})
	snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{
		"Uniswap V3": 3245.67,
		"SushiSwap":  3247.89, // net is negative at 25 gwei
		"1inch":      3290.00, // wide spread, clearly above floor
	})}

	opps := det.Detect(snaps, 25)
	require.NotEmpty(t, opps)
	for _, o := range opps {
		require.GreaterOrEqual(t, o.NetProfit, 5.0)
	}
}

func TestDetect_SpreadThreshold(t *testing.T) {
	det := New(Config{MinSpreadPct: 0.1, MinNetProfitUSD: -1000, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 10})
	snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{
		"Uniswap V3": 3245.67,
		"SushiSwap":  3247.89, // 0.068% < 0.1%
	})}
	require.Empty(t, det.Detect(snaps, 25))
}

func TestDetect_SortedByNetProfitDescending(t *testing.T) {
	det := New(Config{MinSpreadPct: 0, MinNetProfitUSD: -10_000, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 100})
	snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{
		"1inch":      3230.00,
		"SushiSwap":  3260.00,
		"Uniswap V2": 3245.00,
		"Uniswap V3": 3251.00,
	})}

	opps := det.Detect(snaps, 25)
	require.NotEmpty(t, opps)
	for i := 1; i < len(opps); i++ {
		require.GreaterOrEqual(t, opps[i-1].NetProfit, opps[i].NetProfit)
	}
}

func TestDetect_EdgeCases(t *testing.T) {
	det := New(Config{MinSpreadPct: 0, MinNetProfitUSD: -1000, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 10})

	t.Run("fewer than two venues", func(t *testing.T) {
		snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{"Uniswap V3": 3245.67})}
		require.Empty(t, det.Detect(snaps, 25))
	})

	t.Run("identical prices yield zero spread", func(t *testing.T) {
		withFloor := New(Config{MinSpreadPct: 0.01, MinNetProfitUSD: -1000, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 10})
		snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{
			"Uniswap V3": 3245.67,
			"SushiSwap":  3245.67,
		})}
		require.Empty(t, withFloor.Detect(snaps, 25))
	})

	t.Run("non-positive price skipped", func(t *testing.T) {
		snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{
			"Uniswap V3": 3245.67,
			"SushiSwap":  -1,
		})}
		require.Empty(t, det.Detect(snaps, 25))
	})

	t.Run("empty snapshot set", func(t *testing.T) {
		require.Empty(t, det.Detect(nil, 25))
	})
}

func TestDetect_Truncation(t *testing.T) {
	det := New(Config{MinSpreadPct: 0, MinNetProfitUSD: -100_000, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 3})
	snaps := []domain.PriceSnapshot{ethSnapshot(1, map[string]float64{
		"1inch":      3230.00,
		"SushiSwap":  3260.00,
		"Uniswap V2": 3245.00,
		"Uniswap V3": 3251.00,
	})}
	require.Len(t, det.Detect(snaps, 25), 3)
}

func TestDetect_OpportunityIDs(t *testing.T) {
	det := New(Config{MinSpreadPct: 0, MinNetProfitUSD: -1000, TradeSize: 10, GasUnitsEstimate: 350_000, MaxOpportunities: 10})
	venues := map[string]float64{"Uniswap V3": 3245.67, "SushiSwap": 3247.89}

	sameCycleA := det.Detect([]domain.PriceSnapshot{ethSnapshot(9, venues)}, 25)
	sameCycleB := det.Detect([]domain.PriceSnapshot{ethSnapshot(9, venues)}, 25)
	nextCycle := det.Detect([]domain.PriceSnapshot{ethSnapshot(10, venues)}, 25)

	require.Equal(t, sameCycleA[0].ID, sameCycleB[0].ID, "same pair in the same cycle shares an ID")
	require.NotEqual(t, sameCycleA[0].ID, nextCycle[0].ID, "IDs differ across cycles")
}

func TestBreakEvenGasGwei(t *testing.T) {
	det := New(Config{GasUnitsEstimate: 350_000})
	// 22.2 USD gross on an ETH quote of 3245.67 breaks even just below 19.6 gwei.
	breakEven := det.BreakEvenGasGwei(22.2, 3245.67)
	require.InDelta(t, 19.54, breakEven, 0.01)
	require.Zero(t, det.BreakEvenGasGwei(22.2, 0))
}
