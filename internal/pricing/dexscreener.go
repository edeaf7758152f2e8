package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"context"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// DexScreener is the primary price source. It resolves each token through the
// /latest/dex/tokens endpoint and reports one price per liquidity venue, which
// makes it the natural venue-level source as well.
type DexScreener struct {
	baseURL    string
	addresses  map[string]string // token symbol -> ERC-20 address
	httpClient *http.Client
}

// NewDexScreener creates a DexScreener adapter.
//
// baseURL is the API root, e.g. "https://api.dexscreener.com". addresses maps
// the monitored token symbols to their on-chain addresses.
func NewDexScreener(baseURL string, addresses map[string]string) *DexScreener {
	return &DexScreener{
		baseURL:   strings.TrimRight(baseURL, "/"),
		addresses: addresses,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the adapter identifier used in the fallback priority list.
func (d *DexScreener) Name() string { return "dexscreener" }

// apiPair is the wire shape of one DexScreener trading pair.
type apiPair struct {
	ChainID string   `json:"chainId"`
	DexID   string   `json:"dexId"`
	Labels  []string `json:"labels"`
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD    string `json:"priceUsd"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type apiTokenResponse struct {
	Pairs []apiPair `json:"pairs"`
}

// FetchPrices returns one snapshot per token the provider knows about.
// Unknown or unlisted tokens are skipped.
func (d *DexScreener) FetchPrices(ctx context.Context, tokens []string) ([]domain.PriceSnapshot, error) {
	snaps := make([]domain.PriceSnapshot, 0, len(tokens))
	for _, token := range tokens {
		addr, ok := d.addresses[strings.ToUpper(token)]
		if !ok {
			continue
		}
		snap, err := d.fetchToken(ctx, token, addr)
		if err != nil {
			// A transport-level error fails the batch so the aggregator can
			// fall through to the next adapter; a token simply missing from
			// the response does not.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("pricing/dexscreener: fetch %s: %w", token, err)
		}
		if snap.PriceUSD > 0 {
			snaps = append(snaps, snap)
		}
	}
	return snaps, nil
}

// FetchVenuePrices implements VenueSource using the same pairs endpoint.
func (d *DexScreener) FetchVenuePrices(ctx context.Context, tokens []string) (map[string]map[string]domain.PricePoint, error) {
	out := make(map[string]map[string]domain.PricePoint, len(tokens))
	for _, token := range tokens {
		addr, ok := d.addresses[strings.ToUpper(token)]
		if !ok {
			continue
		}
		snap, err := d.fetchToken(ctx, token, addr)
		if err != nil {
			return nil, fmt.Errorf("pricing/dexscreener: venue prices %s: %w", token, err)
		}
		if len(snap.Venues) > 0 {
			out[strings.ToUpper(token)] = snap.Venues
		}
	}
	return out, nil
}

func (d *DexScreener) fetchToken(ctx context.Context, token, address string) (domain.PriceSnapshot, error) {
	u := d.baseURL + "/latest/dex/tokens/" + address
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PriceSnapshot{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed apiTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("decode: %w", err)
	}

	now := time.Now().UTC()
	snap := domain.PriceSnapshot{
		Token:       strings.ToUpper(token),
		BaseAddress: address,
		Venues:      make(map[string]domain.PricePoint),
		Source:      d.Name(),
		FetchedAt:   now,
	}

	// Keep the most liquid pair per venue; the most liquid pair overall
	// supplies the base price and 24h stats.
	var bestLiquidity float64
	venueLiquidity := make(map[string]float64)
	for _, p := range parsed.Pairs {
		if p.ChainID != "ethereum" {
			continue
		}
		if !strings.EqualFold(p.BaseToken.Address, address) {
			continue
		}
		price, err := strconv.ParseFloat(p.PriceUSD, 64)
		if err != nil || price <= 0 {
			continue
		}
		venue := venueName(p.DexID, p.Labels)

		if p.Liquidity.USD >= venueLiquidity[venue] {
			venueLiquidity[venue] = p.Liquidity.USD
			snap.Venues[venue] = domain.PricePoint{
				Venue:      venue,
				Price:      price,
				ObservedAt: now,
			}
		}
		if p.Liquidity.USD >= bestLiquidity {
			bestLiquidity = p.Liquidity.USD
			snap.PriceUSD = price
			snap.Change24h = p.PriceChange.H24
			snap.Volume24h = p.Volume.H24
		}
	}

	return snap, nil
}

// venueName maps a DexScreener dexId (+ version labels) to the display name
// used throughout the pipeline.
func venueName(dexID string, labels []string) string {
	switch strings.ToLower(dexID) {
	case "uniswap":
		for _, l := range labels {
			if strings.EqualFold(l, "v3") {
				return "Uniswap V3"
			}
		}
		return "Uniswap V2"
	case "sushiswap":
		return "SushiSwap"
	case "1inch":
		return "1inch"
	default:
		if dexID == "" {
			return "Unknown"
		}
		return strings.ToUpper(dexID[:1]) + dexID[1:]
	}
}
