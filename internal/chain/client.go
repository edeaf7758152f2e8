// Package chain talks to the deployed settlement and risk manager contracts
// through an Ethereum JSON-RPC endpoint. It owns ABI encoding, transaction
// signing and submission, and receipt polling; fund custody and swap logic
// live entirely in the contracts.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the slice of the Ethereum client the package needs.
// *ethclient.Client satisfies it; tests substitute a fake.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Dial connects to the JSON-RPC endpoint and verifies it is reachable.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	if _, err := client.BlockNumber(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: probe %s: %w", rpcURL, err)
	}
	return client, nil
}

// venueRouters maps the display names used by the pricing layer to the DEX
// router addresses the settlement contract routes swaps through.
var venueRouters = map[string]common.Address{
	"Uniswap V2": common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
	"Uniswap V3": common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
	"SushiSwap":  common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"),
	"1inch":      common.HexToAddress("0x1111111254fb6c44bAC0beD2854e76F90643097d"),
}

// RouterAddress resolves a venue display name to its router address.
func RouterAddress(venue string) (common.Address, error) {
	addr, ok := venueRouters[venue]
	if !ok {
		return common.Address{}, fmt.Errorf("chain: no router known for venue %q", venue)
	}
	return addr, nil
}
