package domain

import "time"

// ExecState is the per-invocation state machine of the orchestrator.
type ExecState string

const (
	ExecPending        ExecState = "pending"
	ExecRiskChecked    ExecState = "risk_checked"
	ExecSubmitted      ExecState = "submitted"
	ExecSettled        ExecState = "settled"
	ExecRejectedLocal  ExecState = "rejected_locally"
	ExecRejectedByRisk ExecState = "rejected_by_risk"
	ExecFailed         ExecState = "failed"
)

// RiskDecision is the risk authority's verdict for one candidate trade.
// Produced fresh per evaluation; daily counters change out-of-band so
// decisions must never be cached across cycles.
type RiskDecision struct {
	Allowed                 bool    `json:"allowed"`
	RemainingDailyAllowance float64 `json:"remaining_daily_allowance"`
	CurrentDailyLoss        float64 `json:"current_daily_loss"`
	TradesToday             int     `json:"trades_today"`
}

// ExecutionRequest is what the orchestrator hands to the settlement layer.
// Asset and venues are resolved contract addresses; MinProfit is the minimum
// acceptable profit after slippage, below which the contract reverts.
type ExecutionRequest struct {
	OpportunityID string
	Token         string
	TokenAddress  string
	VenueA        string
	VenueB        string
	TradeSize     float64
	MinProfit     float64
}

// ExecutionResult is the single outcome of one orchestrator invocation.
// TxRef is empty exactly when the request never reached the settlement layer
// (rejected locally or by the risk gate, or submission failed pre-hash).
type ExecutionResult struct {
	OpportunityID  string    `json:"opportunity_id"`
	TxRef          string    `json:"tx_ref"`
	State          ExecState `json:"state"`
	Succeeded      bool      `json:"succeeded"`
	ActualGasUsed  uint64    `json:"actual_gas_used"`
	RealizedProfit float64   `json:"realized_profit"`
	Reason         string    `json:"reason,omitempty"`
}

// LedgerEntry records one execution attempt, derived 1:1 from an
// ExecutionResult plus its originating Opportunity. Entries are append-only
// and immutable after creation.
type LedgerEntry struct {
	ID             string    `json:"id"`
	OpportunityID  string    `json:"opportunity_id"`
	Token          string    `json:"token"`
	VenueA         string    `json:"venue_a"`
	VenueB         string    `json:"venue_b"`
	TradeSize      float64   `json:"trade_size"`
	ExpectedProfit float64   `json:"expected_profit"`
	Actor          string    `json:"actor"`
	TxRef          string    `json:"tx_ref"`
	State          ExecState `json:"state"`
	Succeeded      bool      `json:"succeeded"`
	GasUsed        uint64    `json:"gas_used"`
	RealizedProfit float64   `json:"realized_profit"`
	Reason         string    `json:"reason,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
