package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// settlementABI covers the slice of the flash-loan settlement contract the
// bot drives: trade execution, balance inspection, profit withdrawal and the
// emergency pause switch.
const settlementABI = `[
	{"type":"function","name":"executeArbitrage","stateMutability":"nonpayable","inputs":[
		{"name":"asset","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"params","type":"tuple","components":[
			{"name":"tokenA","type":"address"},
			{"name":"tokenB","type":"address"},
			{"name":"flashAmount","type":"uint256"},
			{"name":"exchanges","type":"address[]"},
			{"name":"swapData","type":"bytes[]"},
			{"name":"minProfit","type":"uint256"}
		]}
	],"outputs":[]},
	{"type":"function","name":"getBalance","stateMutability":"view","inputs":[
		{"name":"token","type":"address"}
	],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"withdrawProfits","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"event","name":"ArbitrageExecuted","inputs":[
		{"name":"tokenA","type":"address","indexed":true},
		{"name":"tokenB","type":"address","indexed":true},
		{"name":"flashAmount","type":"uint256","indexed":false},
		{"name":"profit","type":"uint256","indexed":false},
		{"name":"executor","type":"address","indexed":true}
	]}
]`

// quoteAsset is the stable leg every settlement routes through (mainnet USDC).
var quoteAsset = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

// arbitrageParams mirrors the tuple argument of executeArbitrage. Field order
// and types must match the ABI components exactly.
type arbitrageParams struct {
	TokenA      common.Address
	TokenB      common.Address
	FlashAmount *big.Int
	Exchanges   []common.Address
	SwapData    [][]byte
	MinProfit   *big.Int
}

// Confirmation is the settled outcome of a submitted transaction.
type Confirmation struct {
	Succeeded   bool
	GasUsed     uint64
	BlockNumber uint64
	// Profit is the contract-reported realized profit in USD, decoded from
	// the ArbitrageExecuted event. Zero when the transaction reverted.
	Profit float64
}

// SettlementContract binds the deployed settlement contract to a signing key.
type SettlementContract struct {
	backend  Backend
	contract abi.ABI
	address  common.Address
	signer   *Signer
	gasLimit uint64
	logger   *slog.Logger

	// pollInterval controls receipt polling; tests shorten it.
	pollInterval time.Duration
}

// NewSettlementContract parses the embedded ABI and binds it to the deployed
// address. gasLimit caps every transaction the contract submits.
func NewSettlementContract(backend Backend, address string, signer *Signer, gasLimit uint64, logger *slog.Logger) (*SettlementContract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("chain: invalid settlement contract address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(settlementABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse settlement ABI: %w", err)
	}
	return &SettlementContract{
		backend:      backend,
		contract:     parsed,
		address:      common.HexToAddress(address),
		signer:       signer,
		gasLimit:     gasLimit,
		logger:       logger.With("component", "settlement"),
		pollInterval: time.Second,
	}, nil
}

// Address returns the bound contract address.
func (c *SettlementContract) Address() common.Address {
	return c.address
}

// SubmitArbitrage encodes and submits an executeArbitrage transaction at the
// given gas price. It returns the transaction hash once the node accepts the
// transaction into its pool; settlement is observed separately through
// AwaitConfirmation.
func (c *SettlementContract) SubmitArbitrage(ctx context.Context, req domain.ExecutionRequest, gasPriceWei *big.Int) (string, error) {
	routerA, err := RouterAddress(req.VenueA)
	if err != nil {
		return "", err
	}
	routerB, err := RouterAddress(req.VenueB)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(req.TokenAddress) {
		return "", fmt.Errorf("chain: invalid token address %q for %s", req.TokenAddress, req.Token)
	}

	asset := common.HexToAddress(req.TokenAddress)
	amount := ToWei(req.TradeSize)
	params := arbitrageParams{
		TokenA:      asset,
		TokenB:      quoteAsset,
		FlashAmount: amount,
		Exchanges:   []common.Address{routerA, routerB},
		// Swap calldata is assembled by the contract from the router pair;
		// the bot passes empty payloads.
		SwapData:  [][]byte{{}, {}},
		MinProfit: ToWei(req.MinProfit),
	}

	data, err := c.contract.Pack("executeArbitrage", asset, amount, params)
	if err != nil {
		return "", fmt.Errorf("chain: pack executeArbitrage: %w", err)
	}

	txHash, err := c.sendTx(ctx, data, gasPriceWei)
	if err != nil {
		return "", err
	}

	c.logger.Info("arbitrage submitted",
		"tx", txHash,
		"token", req.Token,
		"venue_a", req.VenueA,
		"venue_b", req.VenueB,
		"trade_size", req.TradeSize)
	return txHash, nil
}

// AwaitConfirmation polls for the receipt of txRef until the context expires.
func (c *SettlementContract) AwaitConfirmation(ctx context.Context, txRef string) (Confirmation, error) {
	hash := common.HexToHash(txRef)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return c.confirmationFrom(receipt), nil
		}

		select {
		case <-ctx.Done():
			return Confirmation{}, fmt.Errorf("chain: awaiting receipt for %s: %w", txRef, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *SettlementContract) confirmationFrom(receipt *types.Receipt) Confirmation {
	conf := Confirmation{
		Succeeded: receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed:   receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		conf.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if !conf.Succeeded {
		return conf
	}

	event := c.contract.Events["ArbitrageExecuted"]
	for _, lg := range receipt.Logs {
		if lg.Address != c.address || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		fields, err := c.contract.Unpack("ArbitrageExecuted", lg.Data)
		if err != nil || len(fields) < 2 {
			c.logger.Warn("undecodable ArbitrageExecuted event", "tx", receipt.TxHash.Hex(), "error", err)
			continue
		}
		if profit, ok := fields[1].(*big.Int); ok {
			conf.Profit = FromWei(profit)
		}
	}
	return conf
}

// Balance reads the contract's holding of a token.
func (c *SettlementContract) Balance(ctx context.Context, token common.Address) (float64, error) {
	data, err := c.contract.Pack("getBalance", token)
	if err != nil {
		return 0, fmt.Errorf("chain: pack getBalance: %w", err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("chain: call getBalance: %w", err)
	}
	fields, err := c.contract.Unpack("getBalance", out)
	if err != nil || len(fields) == 0 {
		return 0, fmt.Errorf("chain: unpack getBalance: %w", err)
	}
	balance, ok := fields[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("chain: unexpected getBalance return type %T", fields[0])
	}
	return FromWei(balance), nil
}

// WithdrawProfits moves accrued profit for a token out of the contract to the
// owner wallet.
func (c *SettlementContract) WithdrawProfits(ctx context.Context, token common.Address, amount float64) (string, error) {
	data, err := c.contract.Pack("withdrawProfits", token, ToWei(amount))
	if err != nil {
		return "", fmt.Errorf("chain: pack withdrawProfits: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: suggest gas price: %w", err)
	}
	txHash, err := c.sendTx(ctx, data, gasPrice)
	if err != nil {
		return "", err
	}
	c.logger.Info("withdrawal submitted", "tx", txHash, "token", token.Hex(), "amount", amount)
	return txHash, nil
}

// Pause flips the contract's emergency stop on.
func (c *SettlementContract) Pause(ctx context.Context) (string, error) {
	return c.adminCall(ctx, "pause")
}

// Unpause resumes a paused contract.
func (c *SettlementContract) Unpause(ctx context.Context) (string, error) {
	return c.adminCall(ctx, "unpause")
}

func (c *SettlementContract) adminCall(ctx context.Context, method string) (string, error) {
	data, err := c.contract.Pack(method)
	if err != nil {
		return "", fmt.Errorf("chain: pack %s: %w", method, err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: suggest gas price: %w", err)
	}
	txHash, err := c.sendTx(ctx, data, gasPrice)
	if err != nil {
		return "", err
	}
	c.logger.Info("admin call submitted", "method", method, "tx", txHash)
	return txHash, nil
}

func (c *SettlementContract) sendTx(ctx context.Context, data []byte, gasPriceWei *big.Int) (string, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, c.signer.Address())
	if err != nil {
		return "", fmt.Errorf("chain: pending nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.address,
		Gas:      c.gasLimit,
		GasPrice: gasPriceWei,
		Data:     data,
	})
	signed, err := c.signer.SignTx(tx)
	if err != nil {
		return "", err
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: send transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}
