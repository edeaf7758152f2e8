package gas

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	gasPrice *big.Int
	head     uint64
	err      error
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, f.err
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, f.err
}

func TestOracle_Read(t *testing.T) {
	backend := &fakeBackend{gasPrice: big.NewInt(25_000_000_000), head: 18_500_042}
	oracle := NewOracle(backend, time.Second, slog.New(slog.DiscardHandler))

	reading, err := oracle.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 25.0, reading.PriceGwei)
	require.EqualValues(t, 18_500_042, reading.BlockNumber)
	require.False(t, reading.ObservedAt.IsZero())
}

func TestOracle_BackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("rpc unreachable")}
	oracle := NewOracle(backend, time.Second, slog.New(slog.DiscardHandler))

	_, err := oracle.Read(context.Background())
	require.Error(t, err)
}

func TestWeiGweiRoundTrip(t *testing.T) {
	require.Equal(t, 12.5, WeiToGwei(big.NewInt(12_500_000_000)))
	require.Equal(t, int64(12_500_000_000), GweiToWei(12.5).Int64())
	require.Equal(t, 0.0, WeiToGwei(nil))
}
