package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/flasharb/internal/service"
)

// ContractHandler serves the settlement contract's owner surface.
type ContractHandler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewContractHandler(svc *service.Service, logger *slog.Logger) *ContractHandler {
	return &ContractHandler{svc: svc, logger: logger}
}

// GetBalance reads the contract's holding of one token.
// GET /api/contract/balance/{token}
func (h *ContractHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	balance, err := h.svc.ContractBalance(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"balance": balance,
	})
}

type withdrawRequest struct {
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
}

// Withdraw moves accrued profit out of the contract.
// POST /api/contract/withdraw
func (h *ContractHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token and amount are required"})
		return
	}

	txRef, err := h.svc.Withdraw(r.Context(), req.Token, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"tx_ref": txRef})
}

// Pause flips the contract's emergency stop.
// POST /api/contract/pause
func (h *ContractHandler) Pause(w http.ResponseWriter, r *http.Request) {
	txRef, err := h.svc.Pause(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"tx_ref": txRef})
}

// Unpause resumes a paused contract.
// POST /api/contract/unpause
func (h *ContractHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	txRef, err := h.svc.Unpause(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"tx_ref": txRef})
}
