package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

type scriptedPrices struct {
	mu      sync.Mutex
	results []refreshResult
	calls   int
	cycles  []uint64
}

type refreshResult struct {
	snaps  []domain.PriceSnapshot
	source string
	err    error
}

func (p *scriptedPrices) Refresh(ctx context.Context, tokens []string, cycle uint64) ([]domain.PriceSnapshot, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cycles = append(p.cycles, cycle)
	r := p.results[min(p.calls, len(p.results)-1)]
	p.calls++
	if r.err != nil {
		return nil, "", r.err
	}
	snaps := make([]domain.PriceSnapshot, len(r.snaps))
	copy(snaps, r.snaps)
	for i := range snaps {
		snaps[i].Cycle = cycle
	}
	return snaps, r.source, nil
}

type fixedGas struct {
	reading domain.GasReading
	err     error
}

func (g *fixedGas) Read(ctx context.Context) (domain.GasReading, error) {
	return g.reading, g.err
}

type countingDetector struct {
	mu      sync.Mutex
	calls   int
	lastGas float64
	opps    []domain.Opportunity
}

func (d *countingDetector) Detect(snaps []domain.PriceSnapshot, gasPriceGwei float64) []domain.Opportunity {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.lastGas = gasPriceGwei
	return d.opps
}

type recordingAlerter struct {
	mu        sync.Mutex
	degraded  []string
	recovered int
}

func (a *recordingAlerter) PipelineDegraded(ctx context.Context, lastError string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.degraded = append(a.degraded, lastError)
}

func (a *recordingAlerter) PipelineRecovered(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recovered++
}

func ethSnaps() []domain.PriceSnapshot {
	return []domain.PriceSnapshot{{
		Token:    "ETH",
		PriceUSD: 3245.67,
		Venues: map[string]domain.PricePoint{
			"Uniswap V3": {Venue: "Uniswap V3", Price: 3245.67},
			"SushiSwap":  {Venue: "SushiSwap", Price: 3247.89},
		},
		FetchedAt: time.Now().UTC(),
	}}
}

func newTestScheduler(prices PriceRefresher, gas GasReader, det Detector) *Scheduler {
	return New(prices, gas, det, Config{
		Tokens:       []string{"ETH"},
		PriceCadence: time.Hour, // loops are driven manually in tests
		GasCadence:   time.Hour,
	}, slog.New(slog.DiscardHandler))
}

func TestRefresh_PublishesFreshView(t *testing.T) {
	prices := &scriptedPrices{results: []refreshResult{{snaps: ethSnaps(), source: "dexscreener"}}}
	det := &countingDetector{opps: []domain.Opportunity{{ID: "ETH:SushiSwap:Uniswap V3:1", NetProfit: 4.2}}}
	s := newTestScheduler(prices, &fixedGas{reading: domain.GasReading{PriceGwei: 25, BlockNumber: 100}}, det)

	s.refreshGas(context.Background())
	s.refreshPrices(context.Background())

	view := s.Current()
	require.Equal(t, domain.FreshnessFresh, view.Freshness)
	require.False(t, view.Degraded)
	require.Equal(t, uint64(1), view.Cycle)
	require.Equal(t, "dexscreener", view.ActiveSource)
	require.Len(t, view.Snapshots, 1)
	require.Len(t, view.Opportunities, 1)
	require.InDelta(t, 25, det.lastGas, 1e-9, "detection uses the latest gas reading")

	status := s.Status()
	require.Equal(t, domain.EmptyReasonNone, status.EmptyReason)
	require.Equal(t, uint64(100), status.BlockNumber)
	require.Equal(t, domain.CongestionMedium, status.Congestion)
}

// A failed refresh keeps the last known-good snapshots, marked stale.
func TestRefresh_RetainsLastGoodOnFailure(t *testing.T) {
	prices := &scriptedPrices{results: []refreshResult{
		{snaps: ethSnaps(), source: "dexscreener"},
		{err: errors.New("dexscreener: 503")},
	}}
	det := &countingDetector{opps: []domain.Opportunity{{ID: "x"}}}
	s := newTestScheduler(prices, &fixedGas{reading: domain.GasReading{PriceGwei: 25}}, det)

	s.refreshPrices(context.Background())
	s.refreshPrices(context.Background())

	view := s.Current()
	require.Equal(t, domain.FreshnessStale, view.Freshness)
	require.True(t, view.Degraded)
	require.Len(t, view.Snapshots, 1, "stale snapshots are retained, not dropped")
	require.Equal(t, uint64(1), view.Snapshots[0].Cycle, "retained data is from the last good cycle")
	require.Equal(t, uint64(2), view.Cycle)
	require.Equal(t, uint64(1), view.PriceFailures)
	require.Contains(t, view.LastError, "503")
}

func TestRefresh_NoDataBeforeFirstSuccess(t *testing.T) {
	prices := &scriptedPrices{results: []refreshResult{{err: errors.New("down")}}}
	s := newTestScheduler(prices, &fixedGas{}, &countingDetector{})

	status := s.Status()
	require.Equal(t, domain.FreshnessNone, status.Freshness)
	require.Equal(t, domain.EmptyReasonNoData, status.EmptyReason)

	s.refreshPrices(context.Background())
	status = s.Status()
	require.Equal(t, domain.FreshnessNone, status.Freshness, "a failure cannot mint freshness")
	require.Equal(t, domain.EmptyReasonSourcesDown, status.EmptyReason)
}

func TestStatus_BelowThresholdsWhenFreshAndEmpty(t *testing.T) {
	prices := &scriptedPrices{results: []refreshResult{{snaps: ethSnaps(), source: "dexscreener"}}}
	s := newTestScheduler(prices, &fixedGas{}, &countingDetector{opps: nil})

	s.refreshPrices(context.Background())
	require.Equal(t, domain.EmptyReasonBelowThreshold, s.Status().EmptyReason)
}

func TestAlerter_FiresOnTransitionsOnly(t *testing.T) {
	prices := &scriptedPrices{results: []refreshResult{
		{err: errors.New("down")},
		{err: errors.New("still down")},
		{snaps: ethSnaps(), source: "coingecko"},
	}}
	alerter := &recordingAlerter{}
	s := newTestScheduler(prices, &fixedGas{}, &countingDetector{}).WithAlerter(alerter)

	s.refreshPrices(context.Background())
	s.refreshPrices(context.Background())
	s.refreshPrices(context.Background())

	require.Len(t, alerter.degraded, 1, "repeated failures alert once")
	require.Equal(t, 1, alerter.recovered)
}

func TestRefreshGas_FailureKeepsPreviousReading(t *testing.T) {
	gas := &fixedGas{reading: domain.GasReading{PriceGwei: 25, BlockNumber: 100}}
	s := newTestScheduler(&scriptedPrices{results: []refreshResult{{}}}, gas, &countingDetector{})

	s.refreshGas(context.Background())
	gas.err = errors.New("rpc down")
	s.refreshGas(context.Background())

	view := s.Current()
	require.InDelta(t, 25, view.Gas.PriceGwei, 1e-9)
	require.Equal(t, uint64(1), view.GasFailures)
}

func TestCycleCounterIsMonotonic(t *testing.T) {
	prices := &scriptedPrices{results: []refreshResult{
		{snaps: ethSnaps(), source: "dexscreener"},
		{err: errors.New("down")},
		{snaps: ethSnaps(), source: "dexscreener"},
	}}
	s := newTestScheduler(prices, &fixedGas{}, &countingDetector{})

	s.refreshPrices(context.Background())
	s.refreshPrices(context.Background())
	s.refreshPrices(context.Background())

	require.Equal(t, []uint64{1, 2, 3}, prices.cycles, "failures still consume a cycle number")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	prices := &scriptedPrices{results: []refreshResult{{snaps: ethSnaps(), source: "dexscreener"}}}
	s := New(prices, &fixedGas{}, &countingDetector{}, Config{
		Tokens:       []string{"ETH"},
		PriceCadence: 5 * time.Millisecond,
		GasCadence:   5 * time.Millisecond,
	}, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, prices.calls, 2, "loop fires immediately and then on cadence")
}

func TestView_Lookups(t *testing.T) {
	view := View{
		Snapshots:     ethSnaps(),
		Opportunities: []domain.Opportunity{{ID: "a"}, {ID: "b"}},
	}

	_, ok := view.Snapshot("ETH")
	require.True(t, ok)
	_, ok = view.Snapshot("DOGE")
	require.False(t, ok)

	opp, ok := view.Opportunity("b")
	require.True(t, ok)
	require.Equal(t, "b", opp.ID)
	_, ok = view.Opportunity("c")
	require.False(t, ok)
}
