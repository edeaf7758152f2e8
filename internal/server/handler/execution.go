package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/flasharb/internal/domain"
	"github.com/alanyoungcy/flasharb/internal/service"
)

// ExecutionHandler serves trade execution, the ledger and the risk status.
type ExecutionHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewExecutionHandler(svc *service.Service, logger *slog.Logger) *ExecutionHandler {
	return &ExecutionHandler{svc: svc, logger: logger}
}

type executeRequest struct {
	OpportunityID string `json:"opportunity_id"`
}

// Execute runs one opportunity by ID. The result body is returned for every
// terminal state; the status code reflects how far the attempt got.
// POST /api/execute
func (h *ExecutionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OpportunityID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "opportunity_id is required"})
		return
	}

	result, err := h.svc.Execute(r.Context(), req.OpportunityID)
	if err != nil && result.OpportunityID == "" {
		// The attempt never started; no result to report.
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		h.logger.WarnContext(r.Context(), "execution did not settle",
			slog.String("opportunity", req.OpportunityID),
			slog.String("state", string(result.State)),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, result)
}

// ListLedger returns execution records, newest first.
// GET /api/ledger?limit=50
func (h *ExecutionHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Ledger(r.Context(), parseLimit(r, 50, 500))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// RiskStatus returns the actor's daily counters from the risk authority.
// GET /api/risk/status
func (h *ExecutionHandler) RiskStatus(w http.ResponseWriter, r *http.Request) {
	decision, err := h.svc.RiskStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}
