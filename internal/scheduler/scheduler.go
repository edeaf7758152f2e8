// Package scheduler runs the acquisition loops. Prices and gas poll on
// independent cadences; each successful price refresh re-runs detection
// against the latest gas reading and publishes a new immutable view.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// PriceRefresher is the aggregator's surface.
type PriceRefresher interface {
	Refresh(ctx context.Context, tokens []string, cycle uint64) ([]domain.PriceSnapshot, string, error)
}

// GasReader is the gas oracle's surface.
type GasReader interface {
	Read(ctx context.Context) (domain.GasReading, error)
}

// Detector turns snapshots plus a gas price into a ranked opportunity list.
type Detector interface {
	Detect(snaps []domain.PriceSnapshot, gasPriceGwei float64) []domain.Opportunity
}

// Alerter receives pipeline health transitions. Implementations must not
// block the refresh loop.
type Alerter interface {
	PipelineDegraded(ctx context.Context, lastError string)
	PipelineRecovered(ctx context.Context)
}

// Config carries the scheduler cadences and the token universe.
type Config struct {
	Tokens       []string
	PriceCadence time.Duration
	GasCadence   time.Duration
}

// Scheduler owns the refresh cycle counter and the published view. On refresh
// failure it retains the last known-good snapshots, marked stale, and flags
// the pipeline degraded; it never serves fabricated data.
type Scheduler struct {
	prices   PriceRefresher
	gas      GasReader
	detector Detector
	mirror   domain.LiveStateMirror // optional
	alerter  Alerter                // optional
	cfg      Config
	logger   *slog.Logger

	state   *state
	cycle   atomic.Uint64
	priceOn atomic.Bool
	gasOn   atomic.Bool
}

func New(prices PriceRefresher, gas GasReader, detector Detector, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		prices:   prices,
		gas:      gas,
		detector: detector,
		cfg:      cfg,
		logger:   logger.With("component", "scheduler"),
		state:    newState(),
	}
}

// WithMirror attaches a best-effort live-state mirror.
func (s *Scheduler) WithMirror(mirror domain.LiveStateMirror) *Scheduler {
	s.mirror = mirror
	return s
}

// WithAlerter attaches a health-transition sink.
func (s *Scheduler) WithAlerter(alerter Alerter) *Scheduler {
	s.alerter = alerter
	return s
}

// Run drives both polling loops until the context is cancelled. Each loop
// fires immediately on start, then on its cadence. A tick that lands while
// the previous iteration of the same task is still running is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.loop(ctx, s.cfg.GasCadence, &s.gasOn, s.refreshGas)
	})
	g.Go(func() error {
		return s.loop(ctx, s.cfg.PriceCadence, &s.priceOn, s.refreshPrices)
	})

	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, cadence time.Duration, busy *atomic.Bool, task func(context.Context)) error {
	run := func() {
		if !busy.CompareAndSwap(false, true) {
			s.logger.Warn("tick skipped, previous iteration still running")
			return
		}
		defer busy.Store(false)
		task(ctx)
	}

	run()
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}

// refreshPrices runs one acquisition cycle: fetch, detect, publish.
func (s *Scheduler) refreshPrices(ctx context.Context) {
	cycle := s.cycle.Add(1)

	snaps, source, err := s.prices.Refresh(ctx, s.cfg.Tokens, cycle)
	if err != nil {
		s.markDegraded(ctx, cycle, err)
		return
	}

	gasGwei := s.state.load().Gas.PriceGwei
	opps := s.detector.Detect(snaps, gasGwei)

	wasDegraded := s.state.load().Degraded
	view := s.state.update(func(v *View) {
		v.Snapshots = snaps
		v.Opportunities = opps
		v.Cycle = cycle
		v.Freshness = domain.FreshnessFresh
		v.Degraded = false
		v.ActiveSource = source
		v.LastRefreshAt = time.Now().UTC()
		v.LastError = ""
	})

	s.logger.Info("cycle complete",
		"cycle", cycle,
		"source", source,
		"tokens", len(snaps),
		"opportunities", len(opps),
		"gas_gwei", gasGwei)

	if wasDegraded && s.alerter != nil {
		s.alerter.PipelineRecovered(ctx)
	}
	s.publish(ctx, view)
}

func (s *Scheduler) markDegraded(ctx context.Context, cycle uint64, cause error) {
	wasDegraded := s.state.load().Degraded
	s.state.update(func(v *View) {
		v.Cycle = cycle
		v.PriceFailures++
		v.Degraded = true
		v.LastError = cause.Error()
		if v.Freshness == domain.FreshnessFresh {
			v.Freshness = domain.FreshnessStale
		}
	})

	s.logger.Error("refresh cycle failed, serving last known-good data",
		"cycle", cycle,
		"error", cause)

	if !wasDegraded && s.alerter != nil {
		s.alerter.PipelineDegraded(ctx, cause.Error())
	}
}

func (s *Scheduler) refreshGas(ctx context.Context) {
	reading, err := s.gas.Read(ctx)
	if err != nil {
		s.state.update(func(v *View) { v.GasFailures++ })
		s.logger.Warn("gas reading failed, keeping previous", "error", err)
		return
	}

	s.state.update(func(v *View) { v.Gas = reading })
	if s.mirror != nil {
		if err := s.mirror.SetGas(ctx, reading); err != nil {
			s.logger.Warn("gas mirror write failed", "error", err)
		}
	}
}

// publish mirrors the fresh view for out-of-process readers. Best effort.
func (s *Scheduler) publish(ctx context.Context, view View) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SetSnapshots(ctx, view.Snapshots); err != nil {
		s.logger.Warn("snapshot mirror write failed", "error", err)
	}
	if err := s.mirror.SetOpportunities(ctx, view.Opportunities); err != nil {
		s.logger.Warn("opportunity mirror write failed", "error", err)
	}
}

// Current returns the latest published view.
func (s *Scheduler) Current() View {
	return s.state.load()
}

// Status summarizes pipeline health for the consumer surface.
func (s *Scheduler) Status() domain.PipelineStatus {
	v := s.state.load()

	status := domain.PipelineStatus{
		Freshness:        v.Freshness,
		Degraded:         v.Degraded,
		Cycle:            v.Cycle,
		LastRefreshAt:    v.LastRefreshAt,
		PriceFailures:    v.PriceFailures,
		GasFailures:      v.GasFailures,
		BlockNumber:      v.Gas.BlockNumber,
		Congestion:       domain.CongestionLevel(v.Gas.PriceGwei),
		LastError:        v.LastError,
		ActiveSource:     v.ActiveSource,
		OpportunityCount: len(v.Opportunities),
	}
	if !v.LastRefreshAt.IsZero() {
		status.SnapshotAge = time.Since(v.LastRefreshAt)
	}
	if len(v.Opportunities) == 0 {
		switch {
		case v.Freshness == domain.FreshnessNone && v.Degraded:
			status.EmptyReason = domain.EmptyReasonSourcesDown
		case v.Freshness == domain.FreshnessNone:
			status.EmptyReason = domain.EmptyReasonNoData
		default:
			status.EmptyReason = domain.EmptyReasonBelowThreshold
		}
	}
	return status
}
