package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// riskManagerABI is the read-only surface of the on-chain risk manager. Both
// methods are views; limits and daily counters live in contract storage and
// are enforced again inside executeArbitrage.
const riskManagerABI = `[
	{"type":"function","name":"isTradeAllowed","stateMutability":"view","inputs":[
		{"name":"user","type":"address"},
		{"name":"tradeSize","type":"uint256"},
		{"name":"expectedProfit","type":"uint256"},
		{"name":"slippage","type":"uint256"}
	],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getUserRiskStatus","stateMutability":"view","inputs":[
		{"name":"user","type":"address"}
	],"outputs":[
		{"name":"remainingDailyAllowance","type":"uint256"},
		{"name":"currentDailyLoss","type":"uint256"},
		{"name":"tradesToday","type":"uint256"},
		{"name":"allowed","type":"bool"}
	]}
]`

// RiskManager queries the on-chain risk authority.
type RiskManager struct {
	backend  Backend
	contract abi.ABI
	address  common.Address
	logger   *slog.Logger
}

// NewRiskManager binds the risk manager ABI to its deployed address.
func NewRiskManager(backend Backend, address string, logger *slog.Logger) (*RiskManager, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("chain: invalid risk manager address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(riskManagerABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse risk manager ABI: %w", err)
	}
	return &RiskManager{
		backend:  backend,
		contract: parsed,
		address:  common.HexToAddress(address),
		logger:   logger.With("component", "risk_manager"),
	}, nil
}

// IsTradeAllowed asks the contract whether a trade of the given size and
// expected profit is currently permitted for the user. tradeSize and
// expectedProfit are USD amounts; slippageBps is in basis points.
func (r *RiskManager) IsTradeAllowed(ctx context.Context, user common.Address, tradeSize, expectedProfit float64, slippageBps int64) (bool, error) {
	data, err := r.contract.Pack("isTradeAllowed", user, ToWei(tradeSize), ToWei(expectedProfit), big.NewInt(slippageBps))
	if err != nil {
		return false, fmt.Errorf("chain: pack isTradeAllowed: %w", err)
	}
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("chain: call isTradeAllowed: %w", err)
	}
	fields, err := r.contract.Unpack("isTradeAllowed", out)
	if err != nil || len(fields) == 0 {
		return false, fmt.Errorf("chain: unpack isTradeAllowed: %w", err)
	}
	allowed, ok := fields[0].(bool)
	if !ok {
		return false, fmt.Errorf("chain: unexpected isTradeAllowed return type %T", fields[0])
	}
	return allowed, nil
}

// UserRiskStatus reads the user's daily counters from the contract.
func (r *RiskManager) UserRiskStatus(ctx context.Context, user common.Address) (domain.RiskDecision, error) {
	data, err := r.contract.Pack("getUserRiskStatus", user)
	if err != nil {
		return domain.RiskDecision{}, fmt.Errorf("chain: pack getUserRiskStatus: %w", err)
	}
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return domain.RiskDecision{}, fmt.Errorf("chain: call getUserRiskStatus: %w", err)
	}
	fields, err := r.contract.Unpack("getUserRiskStatus", out)
	if err != nil || len(fields) < 4 {
		return domain.RiskDecision{}, fmt.Errorf("chain: unpack getUserRiskStatus: %w", err)
	}

	decision := domain.RiskDecision{}
	if v, ok := fields[0].(*big.Int); ok {
		decision.RemainingDailyAllowance = FromWei(v)
	}
	if v, ok := fields[1].(*big.Int); ok {
		decision.CurrentDailyLoss = FromWei(v)
	}
	if v, ok := fields[2].(*big.Int); ok {
		decision.TradesToday = int(v.Int64())
	}
	if v, ok := fields[3].(bool); ok {
		decision.Allowed = v
	}
	return decision, nil
}
