// Package executor drives a single arbitrage attempt through its lifecycle:
// local screening, the risk gate, settlement submission and confirmation.
// Every attempt, whatever its outcome, lands in the ledger exactly once.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alanyoungcy/flasharb/internal/chain"
	"github.com/alanyoungcy/flasharb/internal/domain"
	"github.com/alanyoungcy/flasharb/internal/gas"
)

// GasStrategy selects how the submission gas price derives from the current
// network reading.
type GasStrategy string

const (
	GasSlow     GasStrategy = "slow"     // 0.8x the network reading
	GasStandard GasStrategy = "standard" // the network reading as-is
	GasFast     GasStrategy = "fast"     // 1.2x the network reading
	GasCustom   GasStrategy = "custom"   // fixed gwei from config
)

// Settlement is the slice of the settlement contract the orchestrator drives.
type Settlement interface {
	SubmitArbitrage(ctx context.Context, req domain.ExecutionRequest, gasPriceWei *big.Int) (string, error)
	AwaitConfirmation(ctx context.Context, txRef string) (chain.Confirmation, error)
}

// Authorizer is the risk gate's verdict surface.
type Authorizer interface {
	Authorize(ctx context.Context, actor common.Address, opp domain.Opportunity) (domain.RiskDecision, error)
}

// Config carries the orchestrator's trade parameters.
type Config struct {
	Strategy        GasStrategy
	CustomGasGwei   float64
	SlippageBps     int64
	MinNetProfitUSD float64
	ConfirmTimeout  time.Duration
}

// Orchestrator executes one opportunity at a time on behalf of an actor.
type Orchestrator struct {
	settlement Settlement
	gate       Authorizer
	ledger     domain.LedgerStore
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

func New(settlement Settlement, gate Authorizer, ledger domain.LedgerStore, cfg Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		settlement: settlement,
		gate:       gate,
		ledger:     ledger,
		cfg:        cfg,
		logger:     logger.With("component", "executor"),
		now:        time.Now,
	}
}

// Execute runs the full lifecycle for one opportunity. The returned result is
// always populated; the error reports why the attempt stopped short of a
// successful settlement. Exactly one ledger entry is appended per call.
func (o *Orchestrator) Execute(ctx context.Context, actor common.Address, opp domain.Opportunity, gasGwei float64) (domain.ExecutionResult, error) {
	result, execErr := o.run(ctx, actor, opp, gasGwei)

	entry := o.entryFrom(actor, opp, result)
	if err := o.ledger.Append(ctx, entry); err != nil {
		o.logger.Error("ledger append failed", "opportunity", opp.ID, "error", err)
		execErr = errors.Join(execErr, fmt.Errorf("executor: ledger append: %w", err))
	}
	return result, execErr
}

func (o *Orchestrator) run(ctx context.Context, actor common.Address, opp domain.Opportunity, gasGwei float64) (domain.ExecutionResult, error) {
	result := domain.ExecutionResult{
		OpportunityID: opp.ID,
		State:         domain.ExecPending,
	}

	if opp.NetProfit < o.cfg.MinNetProfitUSD {
		result.State = domain.ExecRejectedLocal
		result.Reason = fmt.Sprintf("net profit %.4f below floor %.4f", opp.NetProfit, o.cfg.MinNetProfitUSD)
		return result, fmt.Errorf("executor: %s: %s", opp.ID, result.Reason)
	}

	decision, err := o.gate.Authorize(ctx, actor, opp)
	if err != nil {
		result.State = domain.ExecRejectedByRisk
		result.Reason = err.Error()
		return result, err
	}
	result.State = domain.ExecRiskChecked
	o.logger.Debug("risk gate passed",
		"opportunity", opp.ID,
		"remaining_allowance", decision.RemainingDailyAllowance,
		"trades_today", decision.TradesToday)

	req := domain.ExecutionRequest{
		OpportunityID: opp.ID,
		Token:         opp.Token,
		TokenAddress:  opp.TokenAddress,
		VenueA:        opp.VenueA,
		VenueB:        opp.VenueB,
		TradeSize:     opp.TradeSize,
		MinProfit:     o.minProfitAfterSlippage(opp.NetProfit),
	}

	txRef, err := o.settlement.SubmitArbitrage(ctx, req, gas.GweiToWei(o.effectiveGasGwei(gasGwei)))
	if err != nil {
		result.State = domain.ExecFailed
		result.Reason = err.Error()
		return result, fmt.Errorf("executor: %s: %w: %w", opp.ID, domain.ErrSubmissionFailed, err)
	}
	result.TxRef = txRef
	result.State = domain.ExecSubmitted

	confirmCtx, cancel := context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
	defer cancel()

	conf, err := o.settlement.AwaitConfirmation(confirmCtx, txRef)
	if err != nil {
		// Submitted but unobserved; the ledger records the in-flight state.
		result.Reason = fmt.Sprintf("confirmation not observed: %v", err)
		return result, fmt.Errorf("executor: %s: %w", opp.ID, err)
	}

	result.ActualGasUsed = conf.GasUsed
	if !conf.Succeeded {
		result.State = domain.ExecFailed
		result.RealizedProfit = -opp.GasCostUSD
		result.Reason = "settlement reverted"
		return result, fmt.Errorf("executor: %s: settlement reverted in block %d", opp.ID, conf.BlockNumber)
	}

	result.State = domain.ExecSettled
	result.Succeeded = true
	result.RealizedProfit = conf.Profit
	o.logger.Info("arbitrage settled",
		"opportunity", opp.ID,
		"tx", txRef,
		"block", conf.BlockNumber,
		"gas_used", conf.GasUsed,
		"realized_profit", conf.Profit)
	return result, nil
}

// effectiveGasGwei applies the configured strategy to the network reading.
func (o *Orchestrator) effectiveGasGwei(networkGwei float64) float64 {
	switch o.cfg.Strategy {
	case GasSlow:
		return networkGwei * 0.8
	case GasFast:
		return networkGwei * 1.2
	case GasCustom:
		return o.cfg.CustomGasGwei
	default:
		return networkGwei
	}
}

// minProfitAfterSlippage discounts the expected profit by the slippage
// tolerance; the contract reverts below this figure.
func (o *Orchestrator) minProfitAfterSlippage(expected float64) float64 {
	discounted := expected * (1 - float64(o.cfg.SlippageBps)/10_000)
	if discounted < 0 {
		return 0
	}
	return discounted
}

func (o *Orchestrator) entryFrom(actor common.Address, opp domain.Opportunity, result domain.ExecutionResult) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:             uuid.NewString(),
		OpportunityID:  opp.ID,
		Token:          opp.Token,
		VenueA:         opp.VenueA,
		VenueB:         opp.VenueB,
		TradeSize:      opp.TradeSize,
		ExpectedProfit: opp.NetProfit,
		Actor:          actor.Hex(),
		TxRef:          result.TxRef,
		State:          result.State,
		Succeeded:      result.Succeeded,
		GasUsed:        result.ActualGasUsed,
		RealizedProfit: result.RealizedProfit,
		Reason:         result.Reason,
		SubmittedAt:    o.now().UTC(),
	}
}
