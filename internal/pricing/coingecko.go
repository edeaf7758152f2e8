package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// coinIDs maps monitored token symbols to CoinGecko coin identifiers.
var coinIDs = map[string]string{
	"ETH":  "ethereum",
	"WETH": "weth",
	"USDC": "usd-coin",
	"USDT": "tether",
	"DAI":  "dai",
	"WBTC": "wrapped-bitcoin",
	"LINK": "chainlink",
}

// CoinGecko is the fallback price source. It reports a single aggregate USD
// price per token (no per-venue breakdown), so snapshots built from it degrade
// to a single-venue view unless the venue source enriches them.
type CoinGecko struct {
	baseURL    string
	addresses  map[string]string // token symbol -> ERC-20 address
	httpClient *http.Client
}

// NewCoinGecko creates a CoinGecko adapter. baseURL is the API root, e.g.
// "https://api.coingecko.com". addresses maps the monitored token symbols to
// their on-chain addresses so fallback snapshots stay executable.
func NewCoinGecko(baseURL string, addresses map[string]string) *CoinGecko {
	return &CoinGecko{
		baseURL:   strings.TrimRight(baseURL, "/"),
		addresses: addresses,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the adapter identifier used in the fallback priority list.
func (c *CoinGecko) Name() string { return "coingecko" }

// FetchPrices resolves the whole batch in one simple/price call. Tokens
// without a known CoinGecko ID, or missing from the response, are omitted.
func (c *CoinGecko) FetchPrices(ctx context.Context, tokens []string) ([]domain.PriceSnapshot, error) {
	ids := make([]string, 0, len(tokens))
	symbols := make([]string, 0, len(tokens))
	for _, t := range tokens {
		sym := strings.ToUpper(t)
		if id, ok := coinIDs[sym]; ok {
			ids = append(ids, id)
			symbols = append(symbols, sym)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")
	params.Set("include_24hr_vol", "true")

	u := c.baseURL + "/api/v3/simple/price?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pricing/coingecko: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pricing/coingecko: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed map[string]struct {
		USD          float64 `json:"usd"`
		USD24hChange float64 `json:"usd_24h_change"`
		USD24hVol    float64 `json:"usd_24h_vol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("pricing/coingecko: decode: %w", err)
	}

	// Snapshots come out in requested-token order; ranging over the decoded
	// map would reshuffle downstream discovery order on every call.
	now := time.Now().UTC()
	snaps := make([]domain.PriceSnapshot, 0, len(ids))
	for i, id := range ids {
		entry, ok := parsed[id]
		if !ok || entry.USD <= 0 {
			continue
		}
		sym := symbols[i]
		snaps = append(snaps, domain.PriceSnapshot{
			Token:       sym,
			BaseAddress: c.addresses[sym],
			PriceUSD:    entry.USD,
			Change24h:   entry.USD24hChange,
			Volume24h:   entry.USD24hVol,
			Venues:      make(map[string]domain.PricePoint),
			Source:      c.Name(),
			FetchedAt:   now,
		})
	}
	return snaps, nil
}
