// Package gas reads the recommended gas price and chain head from an Ethereum
// JSON-RPC backend. The readings feed the detector's cost model and the
// execution gas strategy.
package gas

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// Backend is the narrow slice of an Ethereum client the oracle needs.
// *ethclient.Client satisfies it.
type Backend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Oracle fetches gas telemetry under a bounded timeout.
type Oracle struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

// NewOracle creates an Oracle over the given backend.
func NewOracle(backend Backend, timeout time.Duration, logger *slog.Logger) *Oracle {
	return &Oracle{
		backend: backend,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "gas_oracle")),
	}
}

// Read returns the current recommended gas price in gwei and the chain head.
func (o *Oracle) Read(ctx context.Context) (domain.GasReading, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	wei, err := o.backend.SuggestGasPrice(callCtx)
	if err != nil {
		return domain.GasReading{}, fmt.Errorf("gas: suggest gas price: %w", err)
	}

	head, err := o.backend.BlockNumber(callCtx)
	if err != nil {
		return domain.GasReading{}, fmt.Errorf("gas: block number: %w", err)
	}

	reading := domain.GasReading{
		PriceGwei:   WeiToGwei(wei),
		BlockNumber: head,
		ObservedAt:  time.Now().UTC(),
	}
	o.logger.DebugContext(ctx, "gas reading",
		slog.Float64("gwei", reading.PriceGwei),
		slog.Uint64("block", reading.BlockNumber),
	)
	return reading, nil
}

// WeiToGwei converts a wei amount to gwei as a float64.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return f
}

// GweiToWei converts a gwei amount to wei, truncating sub-wei precision.
func GweiToWei(gwei float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9)).Int(nil)
	return wei
}
