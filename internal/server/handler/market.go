package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/flasharb/internal/domain"
	"github.com/alanyoungcy/flasharb/internal/service"
)

// MarketHandler serves the read-only market surface: prices, gas, the
// opportunity list, pipeline status and the profit calculator. Every price
// response carries the freshness marker so consumers can tell a live view
// from a retained one.
type MarketHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewMarketHandler(svc *service.Service, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, logger: logger}
}

// ListPrices returns all current token snapshots.
// GET /api/prices
func (h *MarketHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	snaps, freshness, err := h.svc.Snapshots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"freshness": freshness,
		"prices":    snaps,
	})
}

// GetPrice returns the snapshot for one token.
// GET /api/prices/{token}
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	snap, freshness, err := h.svc.Snapshot(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"freshness": freshness,
		"price":     snap,
	})
}

// ListOpportunities returns the current ranked opportunity list. The empty
// list is annotated with the reason so clients never see an unexplained
// blank response.
// GET /api/opportunities
func (h *MarketHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opps, freshness, err := h.svc.Opportunities(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if opps == nil {
		opps = []domain.Opportunity{}
	}

	payload := map[string]any{
		"freshness":     freshness,
		"opportunities": opps,
	}
	if len(opps) == 0 {
		payload["empty_reason"] = h.svc.Status(r.Context()).EmptyReason
	}
	writeJSON(w, http.StatusOK, payload)
}

// GetGas returns the latest gas reading with its congestion bucket.
// GET /api/gas
func (h *MarketHandler) GetGas(w http.ResponseWriter, r *http.Request) {
	gas, err := h.svc.GasPrice(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gas":        gas,
		"congestion": domain.CongestionLevel(gas.PriceGwei),
	})
}

// GetStatus reports pipeline health.
// GET /api/status
func (h *MarketHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// CalcProfit prices a hypothetical trade against current data.
// GET /api/calc/profit?token=ETH&trade_size=10&gas_gwei=25
func (h *MarketHandler) CalcProfit(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token query parameter is required"})
		return
	}

	est, err := h.svc.Estimate(r.Context(), token,
		parseFloat(r, "trade_size", 0),
		parseFloat(r, "gas_gwei", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}
