package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flasharb/internal/detector"
	"github.com/alanyoungcy/flasharb/internal/domain"
	"github.com/alanyoungcy/flasharb/internal/ledger"
	"github.com/alanyoungcy/flasharb/internal/scheduler"
	"github.com/alanyoungcy/flasharb/internal/service"
)

type fixedPipeline struct {
	view   scheduler.View
	status domain.PipelineStatus
}

func (p *fixedPipeline) Current() scheduler.View       { return p.view }
func (p *fixedPipeline) Status() domain.PipelineStatus { return p.status }

type fixedRunner struct {
	result domain.ExecutionResult
	err    error
}

func (r *fixedRunner) Execute(ctx context.Context, actor common.Address, opp domain.Opportunity, gasGwei float64) (domain.ExecutionResult, error) {
	return r.result, r.err
}

func freshView() scheduler.View {
	return scheduler.View{
		Snapshots: []domain.PriceSnapshot{{
			Token:    "ETH",
			PriceUSD: 3245.67,
			Venues: map[string]domain.PricePoint{
				"Uniswap V3": {Venue: "Uniswap V3", Price: 3245.67},
				"SushiSwap":  {Venue: "SushiSwap", Price: 3247.89},
			},
			Cycle: 4,
		}},
		Opportunities: []domain.Opportunity{{
			ID: "ETH:SushiSwap:Uniswap V3:4", Token: "ETH", NetProfit: 4.2,
		}},
		Gas:       domain.GasReading{PriceGwei: 25, ObservedAt: time.Now()},
		Freshness: domain.FreshnessFresh,
	}
}

func testService(pipeline service.Pipeline, runner service.Runner) *service.Service {
	return service.New(service.Config{
		Pipeline:    pipeline,
		Runner:      runner,
		Ledger:      ledger.NewMemoryStore(),
		Locks:       service.NewMemoryLockManager(),
		DetectorCfg: detector.Config{TradeSize: 10, GasUnitsEstimate: 350_000},
		TokenAddrs:  map[string]string{"ETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
		Actor:       common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		Logger:      slog.New(slog.DiscardHandler),
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListPrices_CarriesFreshnessMarker(t *testing.T) {
	view := freshView()
	view.Freshness = domain.FreshnessStale
	h := NewMarketHandler(testService(&fixedPipeline{view: view}, nil), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ListPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "stale", body["freshness"])
	require.Len(t, body["prices"], 1)
}

func TestListPrices_NoDataIs503(t *testing.T) {
	h := NewMarketHandler(testService(&fixedPipeline{view: scheduler.View{Freshness: domain.FreshnessNone}}, nil), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ListPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListOpportunities_EmptyListCarriesReason(t *testing.T) {
	view := freshView()
	view.Opportunities = nil
	pipeline := &fixedPipeline{
		view:   view,
		status: domain.PipelineStatus{EmptyReason: domain.EmptyReasonBelowThreshold},
	}
	h := NewMarketHandler(testService(pipeline, nil), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))

	body := decodeBody(t, rec)
	require.Equal(t, "below_thresholds", body["empty_reason"])
	require.Empty(t, body["opportunities"])
}

func TestGetGas_IncludesCongestion(t *testing.T) {
	h := NewMarketHandler(testService(&fixedPipeline{view: freshView()}, nil), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.GetGas(rec, httptest.NewRequest(http.MethodGet, "/api/gas", nil))

	body := decodeBody(t, rec)
	require.Equal(t, "medium", body["congestion"])
}

func TestCalcProfit(t *testing.T) {
	h := NewMarketHandler(testService(&fixedPipeline{view: freshView()}, nil), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.CalcProfit(rec, httptest.NewRequest(http.MethodGet, "/api/calc/profit?token=ETH&trade_size=10&gas_gwei=25", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.InDelta(t, 0.0684, body["best_spread_pct"].(float64), 0.0001)
	require.InDelta(t, 22.2, body["gross_profit"].(float64), 0.001)

	rec = httptest.NewRecorder()
	h.CalcProfit(rec, httptest.NewRequest(http.MethodGet, "/api/calc/profit", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecute_ValidatesBody(t *testing.T) {
	h := NewExecutionHandler(testService(&fixedPipeline{view: freshView()}, &fixedRunner{}), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Execute(rec, httptest.NewRequest(http.MethodPost, "/api/execute", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecute_ReturnsResultWithMappedStatus(t *testing.T) {
	runner := &fixedRunner{
		result: domain.ExecutionResult{
			OpportunityID: "ETH:SushiSwap:Uniswap V3:4",
			State:         domain.ExecRejectedByRisk,
		},
		err: domain.ErrRiskDenied,
	}
	h := NewExecutionHandler(testService(&fixedPipeline{view: freshView()}, runner), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Execute(rec, httptest.NewRequest(http.MethodPost, "/api/execute",
		strings.NewReader(`{"opportunity_id":"ETH:SushiSwap:Uniswap V3:4"}`)))

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "rejected_by_risk", body["state"])
}

func TestExecute_ExpiredOpportunityIsGone(t *testing.T) {
	h := NewExecutionHandler(testService(&fixedPipeline{view: freshView()}, &fixedRunner{}), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Execute(rec, httptest.NewRequest(http.MethodPost, "/api/execute",
		strings.NewReader(`{"opportunity_id":"ETH:SushiSwap:Uniswap V3:99"}`)))
	require.Equal(t, http.StatusGone, rec.Code)
}

func TestStatusFor_UnknownErrorIs500(t *testing.T) {
	require.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	require.Equal(t, http.StatusConflict, statusFor(domain.ErrLockHeld))
	require.Equal(t, http.StatusBadGateway, statusFor(domain.ErrSubmissionFailed))
}
