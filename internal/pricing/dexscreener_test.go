package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const wethAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

func dexscreenerFixture(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{
		"pairs": [
			{
				"chainId": "ethereum",
				"dexId": "uniswap",
				"labels": ["v3"],
				"baseToken": {"address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "symbol": "WETH"},
				"priceUsd": "3245.67",
				"priceChange": {"h24": 1.8},
				"volume": {"h24": 42000000},
				"liquidity": {"usd": 210000000}
			},
			{
				"chainId": "ethereum",
				"dexId": "sushiswap",
				"baseToken": {"address": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "symbol": "WETH"},
				"priceUsd": "3247.89",
				"priceChange": {"h24": 1.7},
				"volume": {"h24": 9000000},
				"liquidity": {"usd": 34000000}
			},
			{
				"chainId": "bsc",
				"dexId": "pancakeswap",
				"baseToken": {"address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "symbol": "WETH"},
				"priceUsd": "3300.00",
				"liquidity": {"usd": 99000000000}
			}
		]
	}`))
}

func TestDexScreener_FetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(dexscreenerFixture))
	defer server.Close()

	src := NewDexScreener(server.URL, map[string]string{"ETH": wethAddress})
	snaps, err := src.FetchPrices(context.Background(), []string{"ETH"})

	require.NoError(t, err)
	require.Len(t, snaps, 1)

	snap := snaps[0]
	require.Equal(t, "ETH", snap.Token)
	require.Equal(t, 3245.67, snap.PriceUSD, "base price comes from the most liquid ethereum pair")
	require.Equal(t, 1.8, snap.Change24h)

	// The BSC pair must be ignored despite its huge liquidity.
	require.Len(t, snap.Venues, 2)
	require.Equal(t, 3245.67, snap.Venues["Uniswap V3"].Price)
	require.Equal(t, 3247.89, snap.Venues["SushiSwap"].Price)
}

func TestDexScreener_UnknownTokenSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(dexscreenerFixture))
	defer server.Close()

	src := NewDexScreener(server.URL, map[string]string{"ETH": wethAddress})
	snaps, err := src.FetchPrices(context.Background(), []string{"ETH", "PEPE"})

	require.NoError(t, err, "tokens without a configured address must not fail the batch")
	require.Len(t, snaps, 1)
}

func TestDexScreener_ServerErrorFailsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := NewDexScreener(server.URL, map[string]string{"ETH": wethAddress})
	_, err := src.FetchPrices(context.Background(), []string{"ETH"})
	require.Error(t, err)
}

func TestVenueName(t *testing.T) {
	require.Equal(t, "Uniswap V3", venueName("uniswap", []string{"v3"}))
	require.Equal(t, "Uniswap V2", venueName("uniswap", nil))
	require.Equal(t, "SushiSwap", venueName("sushiswap", nil))
	require.Equal(t, "1inch", venueName("1inch", nil))
	require.Equal(t, "Curve", venueName("curve", nil))
}

func TestCoinGecko_FetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/simple/price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ethereum": {"usd": 3246.1, "usd_24h_change": 2.1, "usd_24h_vol": 18000000000},
			"chainlink": {"usd": 14.9, "usd_24h_change": -0.4, "usd_24h_vol": 420000000}
		}`))
	}))
	defer server.Close()

	src := NewCoinGecko(server.URL, map[string]string{"ETH": wethAddress})
	snaps, err := src.FetchPrices(context.Background(), []string{"ETH", "LINK", "PEPE"})

	require.NoError(t, err)
	require.Len(t, snaps, 2, "tokens missing from the response are omitted, not errors")

	byToken := make(map[string]float64, len(snaps))
	for _, s := range snaps {
		byToken[s.Token] = s.PriceUSD
		require.Empty(t, s.Venues, "coingecko supplies no venue breakdown")
	}
	require.Equal(t, 3246.1, byToken["ETH"])
	require.Equal(t, 14.9, byToken["LINK"])
	require.Equal(t, wethAddress, snaps[0].BaseAddress, "fallback snapshots carry the configured address")
}

func TestCoinGecko_SnapshotsFollowRequestedOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"chainlink": {"usd": 14.9},
			"dai": {"usd": 1.0},
			"ethereum": {"usd": 3246.1},
			"usd-coin": {"usd": 1.0}
		}`))
	}))
	defer server.Close()

	src := NewCoinGecko(server.URL, nil)
	tokens := []string{"LINK", "ETH", "DAI", "USDC"}

	// Batch order is the caller's token order on every call, never the
	// decoded map's iteration order.
	for i := 0; i < 5; i++ {
		snaps, err := src.FetchPrices(context.Background(), tokens)
		require.NoError(t, err)
		require.Len(t, snaps, 4)
		for j, want := range tokens {
			require.Equal(t, want, snaps[j].Token)
		}
	}
}
