// Package notify pushes operator alerts to external channels. Execution
// outcomes and pipeline health transitions fan out to every configured
// sender; delivery is best effort and never blocks the pipeline.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// Event types operators can subscribe to.
const (
	EventExecution = "execution"
	EventDegraded  = "degraded"
	EventAdmin     = "admin"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches alerts to all senders, filtered by event type. An empty
// event list subscribes to everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With("component", "notifier"),
	}
}

// ExecutionRecorded announces one ledger entry.
func (n *Notifier) ExecutionRecorded(ctx context.Context, entry domain.LedgerEntry) {
	var title string
	switch {
	case entry.Succeeded:
		title = fmt.Sprintf("Arbitrage settled: +%.2f USD", entry.RealizedProfit)
	case entry.State == domain.ExecRejectedByRisk:
		title = "Trade rejected by risk authority"
	default:
		title = fmt.Sprintf("Execution %s", entry.State)
	}

	message := fmt.Sprintf("%s %s/%s size %.2f expected %.2f USD",
		entry.Token, entry.VenueA, entry.VenueB, entry.TradeSize, entry.ExpectedProfit)
	if entry.TxRef != "" {
		message += " tx " + entry.TxRef
	}
	if entry.Reason != "" {
		message += "\n" + entry.Reason
	}
	n.notify(ctx, EventExecution, title, message)
}

// PipelineDegraded and PipelineRecovered report health transitions; together
// they satisfy the scheduler's Alerter.
func (n *Notifier) PipelineDegraded(ctx context.Context, lastError string) {
	n.notify(ctx, EventDegraded, "Price pipeline degraded", "Serving last known-good data.\n"+lastError)
}

func (n *Notifier) PipelineRecovered(ctx context.Context) {
	n.notify(ctx, EventDegraded, "Price pipeline recovered", "Fresh data is flowing again.")
}

// AdminAction announces a contract admin operation (withdrawal, pause).
func (n *Notifier) AdminAction(ctx context.Context, action, detail string) {
	n.notify(ctx, EventAdmin, action, detail)
}

func (n *Notifier) notify(ctx context.Context, event, title, message string) {
	if len(n.events) > 0 && !n.events[event] {
		return
	}
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Warn("notification delivery failed",
				"sender", s.Name(),
				"event", event,
				"error", err)
		}
	}
}
