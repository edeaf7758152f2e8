package executor

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/flasharb/internal/chain"
	"github.com/alanyoungcy/flasharb/internal/domain"
)

type stubSettlement struct {
	submitTxRef string
	submitErr   error
	submitted   []domain.ExecutionRequest
	gasPrices   []*big.Int
	conf        chain.Confirmation
	confErr     error
}

func (s *stubSettlement) SubmitArbitrage(ctx context.Context, req domain.ExecutionRequest, gasPriceWei *big.Int) (string, error) {
	if s.submitErr != nil {
		return "", s.submitErr
	}
	s.submitted = append(s.submitted, req)
	s.gasPrices = append(s.gasPrices, gasPriceWei)
	return s.submitTxRef, nil
}

func (s *stubSettlement) AwaitConfirmation(ctx context.Context, txRef string) (chain.Confirmation, error) {
	if s.confErr != nil {
		return chain.Confirmation{}, s.confErr
	}
	return s.conf, nil
}

type stubGate struct {
	decision domain.RiskDecision
	err      error
	calls    int
}

func (g *stubGate) Authorize(ctx context.Context, actor common.Address, opp domain.Opportunity) (domain.RiskDecision, error) {
	g.calls++
	return g.decision, g.err
}

type recordingLedger struct {
	entries []domain.LedgerEntry
	err     error
}

func (l *recordingLedger) Append(ctx context.Context, entry domain.LedgerEntry) error {
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *recordingLedger) List(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return l.entries, nil
}

func (l *recordingLedger) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.LedgerEntry, error) {
	return nil, nil
}

func (l *recordingLedger) Count(ctx context.Context) (int, error) {
	return len(l.entries), nil
}

var testActor = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func testOpportunity() domain.Opportunity {
	return domain.Opportunity{
		ID:           "ETH:SushiSwap:Uniswap V3:4",
		Token:        "ETH",
		TokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		VenueA:       "SushiSwap",
		VenueB:       "Uniswap V3",
		SpreadPct:    0.2,
		GrossProfit:  32.6,
		GasCostUSD:   28.4,
		NetProfit:    4.2,
		TradeSize:    10,
		Status:       domain.OpportunityActive,
	}
}

func defaultConfig() Config {
	return Config{
		Strategy:        GasStandard,
		SlippageBps:     300,
		MinNetProfitUSD: 1,
		ConfirmTimeout:  time.Second,
	}
}

func newTestOrchestrator(settlement *stubSettlement, gate *stubGate, ledger *recordingLedger, cfg Config) *Orchestrator {
	return New(settlement, gate, ledger, cfg, slog.New(slog.DiscardHandler))
}

func TestExecute_SettlesSuccessfully(t *testing.T) {
	settlement := &stubSettlement{
		submitTxRef: "0xfeed",
		conf:        chain.Confirmation{Succeeded: true, GasUsed: 312_456, Profit: 3.9},
	}
	gate := &stubGate{decision: domain.RiskDecision{Allowed: true}}
	ledger := &recordingLedger{}

	result, err := newTestOrchestrator(settlement, gate, ledger, defaultConfig()).
		Execute(context.Background(), testActor, testOpportunity(), 25)
	require.NoError(t, err)

	require.Equal(t, domain.ExecSettled, result.State)
	require.True(t, result.Succeeded)
	require.Equal(t, "0xfeed", result.TxRef)
	require.Equal(t, uint64(312_456), result.ActualGasUsed)
	require.InDelta(t, 3.9, result.RealizedProfit, 1e-9)

	require.Len(t, ledger.entries, 1)
	entry := ledger.entries[0]
	require.Equal(t, testActor.Hex(), entry.Actor)
	require.Equal(t, domain.ExecSettled, entry.State)
	require.InDelta(t, 4.2, entry.ExpectedProfit, 1e-9)
	require.NotEmpty(t, entry.ID)
}

func TestExecute_RiskDenialStopsBeforeSubmission(t *testing.T) {
	settlement := &stubSettlement{submitTxRef: "0xfeed"}
	gate := &stubGate{err: domain.ErrRiskDenied}
	ledger := &recordingLedger{}

	result, err := newTestOrchestrator(settlement, gate, ledger, defaultConfig()).
		Execute(context.Background(), testActor, testOpportunity(), 25)
	require.ErrorIs(t, err, domain.ErrRiskDenied)

	require.Equal(t, domain.ExecRejectedByRisk, result.State)
	require.Empty(t, result.TxRef)
	require.Empty(t, settlement.submitted, "denied trade must never reach the settlement layer")

	require.Len(t, ledger.entries, 1, "rejections are recorded exactly once")
	require.Equal(t, domain.ExecRejectedByRisk, ledger.entries[0].State)
}

func TestExecute_RevertedSettlementBooksGasLoss(t *testing.T) {
	settlement := &stubSettlement{
		submitTxRef: "0xdead",
		conf:        chain.Confirmation{Succeeded: false, GasUsed: 450_000, BlockNumber: 19_000_002},
	}
	gate := &stubGate{decision: domain.RiskDecision{Allowed: true}}
	ledger := &recordingLedger{}

	opp := testOpportunity()
	result, err := newTestOrchestrator(settlement, gate, ledger, defaultConfig()).
		Execute(context.Background(), testActor, opp, 25)
	require.Error(t, err)

	require.Equal(t, domain.ExecFailed, result.State)
	require.Equal(t, "0xdead", result.TxRef, "the attempt reached the chain, so the hash is recorded")
	require.False(t, result.Succeeded)
	require.InDelta(t, -opp.GasCostUSD, result.RealizedProfit, 1e-9, "a reverted trade costs its gas")

	require.Len(t, ledger.entries, 1)
	require.Equal(t, "0xdead", ledger.entries[0].TxRef)
}

func TestExecute_SubmissionFailureLeavesNoTxRef(t *testing.T) {
	settlement := &stubSettlement{submitErr: errors.New("nonce too low")}
	gate := &stubGate{decision: domain.RiskDecision{Allowed: true}}
	ledger := &recordingLedger{}

	result, err := newTestOrchestrator(settlement, gate, ledger, defaultConfig()).
		Execute(context.Background(), testActor, testOpportunity(), 25)
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)
	require.Equal(t, domain.ExecFailed, result.State)
	require.Empty(t, result.TxRef)
	require.Len(t, ledger.entries, 1)
}

func TestExecute_LocalProfitFloor(t *testing.T) {
	settlement := &stubSettlement{}
	gate := &stubGate{decision: domain.RiskDecision{Allowed: true}}
	ledger := &recordingLedger{}

	cfg := defaultConfig()
	cfg.MinNetProfitUSD = 100 // above the opportunity's 4.2

	result, err := newTestOrchestrator(settlement, gate, ledger, cfg).
		Execute(context.Background(), testActor, testOpportunity(), 25)
	require.Error(t, err)
	require.Equal(t, domain.ExecRejectedLocal, result.State)
	require.Zero(t, gate.calls, "local rejection skips the risk gate")
	require.Len(t, ledger.entries, 1)
}

func TestExecute_ConfirmationTimeoutKeepsSubmittedState(t *testing.T) {
	settlement := &stubSettlement{submitTxRef: "0xbeef", confErr: context.DeadlineExceeded}
	gate := &stubGate{decision: domain.RiskDecision{Allowed: true}}
	ledger := &recordingLedger{}

	result, err := newTestOrchestrator(settlement, gate, ledger, defaultConfig()).
		Execute(context.Background(), testActor, testOpportunity(), 25)
	require.Error(t, err)
	require.Equal(t, domain.ExecSubmitted, result.State, "an unobserved tx stays submitted, not failed")
	require.Equal(t, "0xbeef", result.TxRef)
	require.Len(t, ledger.entries, 1)
}

func TestExecute_GasStrategies(t *testing.T) {
	cases := []struct {
		name     string
		cfg      Config
		wantGwei float64
	}{
		{"slow", Config{Strategy: GasSlow}, 20},
		{"standard", Config{Strategy: GasStandard}, 25},
		{"fast", Config{Strategy: GasFast}, 30},
		{"custom", Config{Strategy: GasCustom, CustomGasGwei: 42}, 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settlement := &stubSettlement{
				submitTxRef: "0x1",
				conf:        chain.Confirmation{Succeeded: true},
			}
			cfg := tc.cfg
			cfg.ConfirmTimeout = time.Second
			cfg.MinNetProfitUSD = -1000

			_, err := newTestOrchestrator(settlement, &stubGate{decision: domain.RiskDecision{Allowed: true}}, &recordingLedger{}, cfg).
				Execute(context.Background(), testActor, testOpportunity(), 25)
			require.NoError(t, err)

			require.Len(t, settlement.gasPrices, 1)
			wantWei := new(big.Int).Mul(big.NewInt(int64(tc.wantGwei)), big.NewInt(1_000_000_000))
			require.Equal(t, wantWei, settlement.gasPrices[0])
		})
	}
}

func TestExecute_SlippageDiscountsMinProfit(t *testing.T) {
	settlement := &stubSettlement{
		submitTxRef: "0x1",
		conf:        chain.Confirmation{Succeeded: true},
	}
	cfg := defaultConfig()
	cfg.SlippageBps = 300

	_, err := newTestOrchestrator(settlement, &stubGate{decision: domain.RiskDecision{Allowed: true}}, &recordingLedger{}, cfg).
		Execute(context.Background(), testActor, testOpportunity(), 25)
	require.NoError(t, err)

	require.Len(t, settlement.submitted, 1)
	require.InDelta(t, 4.2*0.97, settlement.submitted[0].MinProfit, 1e-9)
}

func TestExecute_LedgerAppendFailureSurfaces(t *testing.T) {
	settlement := &stubSettlement{
		submitTxRef: "0x1",
		conf:        chain.Confirmation{Succeeded: true},
	}
	ledger := &recordingLedger{err: errors.New("disk full")}

	_, err := newTestOrchestrator(settlement, &stubGate{decision: domain.RiskDecision{Allowed: true}}, ledger, defaultConfig()).
		Execute(context.Background(), testActor, testOpportunity(), 25)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ledger append")
}
