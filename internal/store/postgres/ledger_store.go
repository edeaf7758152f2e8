package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/flasharb/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL. The table is
// append-only; nothing in this store updates or deletes rows.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

const ledgerSelectCols = `id, opportunity_id, token, venue_a, venue_b, trade_size,
	expected_profit, actor, tx_ref, state, succeeded, gas_used,
	realized_profit, reason, submitted_at`

func scanLedgerRows(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.OpportunityID, &e.Token, &e.VenueA, &e.VenueB,
			&e.TradeSize, &e.ExpectedProfit, &e.Actor, &e.TxRef,
			&e.State, &e.Succeeded, &e.GasUsed,
			&e.RealizedProfit, &e.Reason, &e.SubmittedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *LedgerStore) Append(ctx context.Context, entry domain.LedgerEntry) error {
	const query = `
		INSERT INTO ledger_entries (
			id, opportunity_id, token, venue_a, venue_b, trade_size,
			expected_profit, actor, tx_ref, state, succeeded, gas_used,
			realized_profit, reason, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15
		)`
	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.OpportunityID, entry.Token, entry.VenueA, entry.VenueB,
		entry.TradeSize, entry.ExpectedProfit, entry.Actor, entry.TxRef,
		entry.State, entry.Succeeded, entry.GasUsed,
		entry.RealizedProfit, entry.Reason, entry.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append ledger entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *LedgerStore) List(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerSelectCols + ` FROM ledger_entries ORDER BY submitted_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ledger entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan ledger entries: %w", err)
	}
	return entries, nil
}

func (s *LedgerStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerSelectCols + ` FROM ledger_entries WHERE submitted_at < $1 ORDER BY submitted_at ASC`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ledger entries before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	entries, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan aged ledger entries: %w", err)
	}
	return entries, nil
}

func (s *LedgerStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count ledger entries: %w", err)
	}
	return count, nil
}
