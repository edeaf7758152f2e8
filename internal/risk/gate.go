// Package risk wraps the on-chain risk authority in a fail-closed gate. A
// trade proceeds only on an affirmative, fresh verdict; any error talking to
// the authority denies the trade.
package risk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// Authority is the per-trade verdict surface of the on-chain risk manager.
type Authority interface {
	IsTradeAllowed(ctx context.Context, user common.Address, tradeSize, expectedProfit float64, slippageBps int64) (bool, error)
	UserRiskStatus(ctx context.Context, user common.Address) (domain.RiskDecision, error)
}

// Gate authorizes candidate trades against the risk authority. Verdicts are
// never cached: daily counters move out-of-band, so each execution attempt
// gets a fresh evaluation.
type Gate struct {
	authority   Authority
	slippageBps int64
	logger      *slog.Logger
}

func NewGate(authority Authority, slippageBps int64, logger *slog.Logger) *Gate {
	return &Gate{
		authority:   authority,
		slippageBps: slippageBps,
		logger:      logger.With("component", "risk_gate"),
	}
}

// Authorize evaluates one opportunity for one actor. It returns
// domain.ErrRiskDenied when the authority says no and domain.ErrRiskUnavailable
// when the authority cannot be reached; in both cases the trade must not run.
func (g *Gate) Authorize(ctx context.Context, actor common.Address, opp domain.Opportunity) (domain.RiskDecision, error) {
	allowed, err := g.authority.IsTradeAllowed(ctx, actor, opp.TradeSize, opp.NetProfit, g.slippageBps)
	if err != nil {
		g.logger.Error("risk authority unreachable", "actor", actor.Hex(), "opportunity", opp.ID, "error", err)
		return domain.RiskDecision{}, fmt.Errorf("risk: authority check for %s: %w", opp.ID, domain.ErrRiskUnavailable)
	}

	decision, statusErr := g.authority.UserRiskStatus(ctx, actor)
	if statusErr != nil {
		// Counters are informational; the verdict stands without them.
		g.logger.Warn("risk status unavailable", "actor", actor.Hex(), "error", statusErr)
		decision = domain.RiskDecision{}
	}
	decision.Allowed = allowed

	if !allowed {
		g.logger.Info("trade denied by risk authority",
			"actor", actor.Hex(),
			"opportunity", opp.ID,
			"trade_size", opp.TradeSize,
			"expected_profit", opp.NetProfit)
		return decision, fmt.Errorf("risk: trade %s: %w", opp.ID, domain.ErrRiskDenied)
	}
	return decision, nil
}

// Status reads the actor's current daily counters without evaluating a trade.
func (g *Gate) Status(ctx context.Context, actor common.Address) (domain.RiskDecision, error) {
	decision, err := g.authority.UserRiskStatus(ctx, actor)
	if err != nil {
		return domain.RiskDecision{}, fmt.Errorf("risk: status for %s: %w", actor.Hex(), domain.ErrRiskUnavailable)
	}
	return decision, nil
}
