// Package service is the consumer-facing surface over the pipeline. It
// answers reads from the scheduler's published view, serializes execution
// attempts per actor, and fronts the contract admin operations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/flasharb/internal/detector"
	"github.com/alanyoungcy/flasharb/internal/domain"
	"github.com/alanyoungcy/flasharb/internal/notify"
	"github.com/alanyoungcy/flasharb/internal/scheduler"
)

// defaultLockTTL bounds how long one execution attempt can hold the
// per-actor lock if its holder dies without releasing.
const defaultLockTTL = 2 * time.Minute

// Pipeline is the scheduler's read surface.
type Pipeline interface {
	Current() scheduler.View
	Status() domain.PipelineStatus
}

// Runner drives one execution attempt end to end.
type Runner interface {
	Execute(ctx context.Context, actor common.Address, opp domain.Opportunity, gasGwei float64) (domain.ExecutionResult, error)
}

// RiskReader exposes the actor's risk counters.
type RiskReader interface {
	Status(ctx context.Context, actor common.Address) (domain.RiskDecision, error)
}

// ContractAdmin is the settlement contract's owner surface.
type ContractAdmin interface {
	Balance(ctx context.Context, token common.Address) (float64, error)
	WithdrawProfits(ctx context.Context, token common.Address, amount float64) (string, error)
	Pause(ctx context.Context) (string, error)
	Unpause(ctx context.Context) (string, error)
}

// Service wires the read view, the executor and the admin surface together.
// Runner, RiskReader, ContractAdmin and the notifier are optional: a
// monitor-only deployment runs without them.
type Service struct {
	pipeline    Pipeline
	runner      Runner
	riskReader  RiskReader
	admin       ContractAdmin
	ledger      domain.LedgerStore
	locks       domain.LockManager
	lockTTL     time.Duration
	notifier    *notify.Notifier
	broadcast   func(domain.LedgerEntry)
	detectorCfg detector.Config
	tokenAddrs  map[string]string
	actor       common.Address
	logger      *slog.Logger
}

// Config collects the service dependencies.
type Config struct {
	Pipeline    Pipeline
	Runner      Runner
	RiskReader  RiskReader
	Admin       ContractAdmin
	Ledger      domain.LedgerStore
	Locks       domain.LockManager
	LockTTL     time.Duration // zero means the built-in default
	Notifier    *notify.Notifier
	Broadcast   func(domain.LedgerEntry) // optional live-feed hook
	DetectorCfg detector.Config
	TokenAddrs  map[string]string
	Actor       common.Address
	Logger      *slog.Logger
}

func New(cfg Config) *Service {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Service{
		pipeline:    cfg.Pipeline,
		runner:      cfg.Runner,
		riskReader:  cfg.RiskReader,
		admin:       cfg.Admin,
		ledger:      cfg.Ledger,
		locks:       cfg.Locks,
		lockTTL:     ttl,
		notifier:    cfg.Notifier,
		broadcast:   cfg.Broadcast,
		detectorCfg: cfg.DetectorCfg,
		tokenAddrs:  cfg.TokenAddrs,
		actor:       cfg.Actor,
		logger:      cfg.Logger.With("component", "service"),
	}
}

// Snapshots returns the current price view. Stale data is served, flagged by
// the returned freshness; before the first successful cycle the error is
// domain.ErrNoData.
func (s *Service) Snapshots(ctx context.Context) ([]domain.PriceSnapshot, domain.DataFreshness, error) {
	view := s.pipeline.Current()
	if view.Freshness == domain.FreshnessNone {
		return nil, view.Freshness, domain.ErrNoData
	}
	return view.Snapshots, view.Freshness, nil
}

// Snapshot returns the current view for one token.
func (s *Service) Snapshot(ctx context.Context, token string) (domain.PriceSnapshot, domain.DataFreshness, error) {
	view := s.pipeline.Current()
	if view.Freshness == domain.FreshnessNone {
		return domain.PriceSnapshot{}, view.Freshness, domain.ErrNoData
	}
	snap, ok := view.Snapshot(token)
	if !ok {
		return domain.PriceSnapshot{}, view.Freshness, fmt.Errorf("service: token %s: %w", token, domain.ErrNotFound)
	}
	return snap, view.Freshness, nil
}

// Opportunities returns the current ranked opportunity list.
func (s *Service) Opportunities(ctx context.Context) ([]domain.Opportunity, domain.DataFreshness, error) {
	view := s.pipeline.Current()
	if view.Freshness == domain.FreshnessNone {
		return nil, view.Freshness, domain.ErrNoData
	}
	return view.Opportunities, view.Freshness, nil
}

// GasPrice returns the latest gas reading.
func (s *Service) GasPrice(ctx context.Context) (domain.GasReading, error) {
	gas := s.pipeline.Current().Gas
	if gas.ObservedAt.IsZero() {
		return domain.GasReading{}, domain.ErrNoData
	}
	return gas, nil
}

// Status reports pipeline health.
func (s *Service) Status(ctx context.Context) domain.PipelineStatus {
	return s.pipeline.Status()
}

// Ledger returns the newest execution records.
func (s *Service) Ledger(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return s.ledger.List(ctx, limit)
}

// Execute runs the opportunity with the given ID. The opportunity must still
// be present in a fresh view: executing against stale or superseded data is
// refused. One execution per actor runs at a time.
func (s *Service) Execute(ctx context.Context, opportunityID string) (domain.ExecutionResult, error) {
	if s.runner == nil {
		return domain.ExecutionResult{}, fmt.Errorf("service: execution disabled in this mode")
	}

	release, err := s.locks.TryLock(ctx, s.actor.Hex(), s.lockTTL)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("service: %w: %w", domain.ErrExecutionInFlight, err)
	}
	defer release()

	view := s.pipeline.Current()
	if view.Freshness != domain.FreshnessFresh {
		return domain.ExecutionResult{}, fmt.Errorf("service: refusing to execute on %s data: %w",
			view.Freshness, domain.ErrStaleData)
	}
	opp, ok := view.Opportunity(opportunityID)
	if !ok {
		return domain.ExecutionResult{}, fmt.Errorf("service: opportunity %s: %w",
			opportunityID, domain.ErrOpportunityExpired)
	}

	result, err := s.runner.Execute(ctx, s.actor, opp, view.Gas.PriceGwei)
	s.announce(ctx, opp, result)
	return result, err
}

// announce mirrors the orchestrator's ledger mapping for the notification and
// live-feed channels. Best effort.
func (s *Service) announce(ctx context.Context, opp domain.Opportunity, result domain.ExecutionResult) {
	if s.notifier == nil && s.broadcast == nil {
		return
	}
	entry := domain.LedgerEntry{
		OpportunityID:  opp.ID,
		Token:          opp.Token,
		VenueA:         opp.VenueA,
		VenueB:         opp.VenueB,
		TradeSize:      opp.TradeSize,
		ExpectedProfit: opp.NetProfit,
		Actor:          s.actor.Hex(),
		TxRef:          result.TxRef,
		State:          result.State,
		Succeeded:      result.Succeeded,
		GasUsed:        result.ActualGasUsed,
		RealizedProfit: result.RealizedProfit,
		Reason:         result.Reason,
	}
	if s.notifier != nil {
		s.notifier.ExecutionRecorded(ctx, entry)
	}
	if s.broadcast != nil {
		s.broadcast(entry)
	}
}

// RiskStatus reads the actor's daily counters from the risk authority.
func (s *Service) RiskStatus(ctx context.Context) (domain.RiskDecision, error) {
	if s.riskReader == nil {
		return domain.RiskDecision{}, fmt.Errorf("service: risk surface disabled in this mode")
	}
	return s.riskReader.Status(ctx, s.actor)
}

// ProfitEstimate is the calculator's answer for a hypothetical trade.
type ProfitEstimate struct {
	Token         string  `json:"token"`
	TradeSize     float64 `json:"trade_size"`
	GasPriceGwei  float64 `json:"gas_price_gwei"`
	BestSpreadPct float64 `json:"best_spread_pct"`
	GrossProfit   float64 `json:"gross_profit"`
	GasCostUSD    float64 `json:"gas_cost_usd"`
	NetProfit     float64 `json:"net_profit"`
	BreakEvenGwei float64 `json:"break_even_gwei"`
	VenueA        string  `json:"venue_a"`
	VenueB        string  `json:"venue_b"`
}

// Estimate prices a hypothetical trade of tradeSize against the current
// snapshot for token. gasGwei <= 0 uses the latest network reading.
func (s *Service) Estimate(ctx context.Context, token string, tradeSize, gasGwei float64) (ProfitEstimate, error) {
	view := s.pipeline.Current()
	if view.Freshness == domain.FreshnessNone {
		return ProfitEstimate{}, domain.ErrNoData
	}
	snap, ok := view.Snapshot(token)
	if !ok {
		return ProfitEstimate{}, fmt.Errorf("service: token %s: %w", token, domain.ErrNotFound)
	}
	if gasGwei <= 0 {
		gasGwei = view.Gas.PriceGwei
	}
	if tradeSize <= 0 {
		tradeSize = s.detectorCfg.TradeSize
	}

	cfg := s.detectorCfg
	cfg.TradeSize = tradeSize
	cfg.MinSpreadPct = 0
	cfg.MinNetProfitUSD = -1e18 // the calculator reports losses too
	cfg.MaxOpportunities = 1
	det := detector.New(cfg)

	candidates := det.Detect([]domain.PriceSnapshot{snap}, gasGwei)
	if len(candidates) == 0 {
		return ProfitEstimate{}, fmt.Errorf("service: token %s has no comparable venue pair: %w",
			token, domain.ErrNoData)
	}

	best := candidates[0]
	return ProfitEstimate{
		Token:         token,
		TradeSize:     tradeSize,
		GasPriceGwei:  gasGwei,
		BestSpreadPct: best.SpreadPct,
		GrossProfit:   best.GrossProfit,
		GasCostUSD:    best.GasCostUSD,
		NetProfit:     best.NetProfit,
		BreakEvenGwei: det.BreakEvenGasGwei(best.GrossProfit, snap.PriceUSD),
		VenueA:        best.VenueA,
		VenueB:        best.VenueB,
	}, nil
}

// ContractBalance reads the settlement contract's holding of a token.
func (s *Service) ContractBalance(ctx context.Context, token string) (float64, error) {
	if s.admin == nil {
		return 0, fmt.Errorf("service: contract surface disabled in this mode")
	}
	addr, err := s.tokenAddress(token)
	if err != nil {
		return 0, err
	}
	return s.admin.Balance(ctx, addr)
}

// Withdraw moves accrued profit out of the settlement contract.
func (s *Service) Withdraw(ctx context.Context, token string, amount float64) (string, error) {
	if s.admin == nil {
		return "", fmt.Errorf("service: contract surface disabled in this mode")
	}
	if amount <= 0 {
		return "", fmt.Errorf("service: withdrawal amount must be positive, got %v", amount)
	}
	addr, err := s.tokenAddress(token)
	if err != nil {
		return "", err
	}

	txRef, err := s.admin.WithdrawProfits(ctx, addr, amount)
	if err != nil {
		return "", err
	}
	if s.notifier != nil {
		s.notifier.AdminAction(ctx, "Profits withdrawn",
			fmt.Sprintf("%v %s, tx %s", amount, token, txRef))
	}
	return txRef, nil
}

// Pause flips the settlement contract's emergency stop.
func (s *Service) Pause(ctx context.Context) (string, error) {
	if s.admin == nil {
		return "", fmt.Errorf("service: contract surface disabled in this mode")
	}
	txRef, err := s.admin.Pause(ctx)
	if err != nil {
		return "", err
	}
	if s.notifier != nil {
		s.notifier.AdminAction(ctx, "Contract paused", "tx "+txRef)
	}
	return txRef, nil
}

// Unpause resumes a paused settlement contract.
func (s *Service) Unpause(ctx context.Context) (string, error) {
	if s.admin == nil {
		return "", fmt.Errorf("service: contract surface disabled in this mode")
	}
	txRef, err := s.admin.Unpause(ctx)
	if err != nil {
		return "", err
	}
	if s.notifier != nil {
		s.notifier.AdminAction(ctx, "Contract unpaused", "tx "+txRef)
	}
	return txRef, nil
}

func (s *Service) tokenAddress(token string) (common.Address, error) {
	hex, ok := s.tokenAddrs[token]
	if !ok {
		return common.Address{}, fmt.Errorf("service: token %s: %w", token, domain.ErrNotFound)
	}
	return common.HexToAddress(hex), nil
}
