package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerrecon/internal/domain"
)

// LedgerEntryRepository implements usecase.LedgerEntryRepository.
type LedgerEntryRepository struct {
	db pgxQuerier
}

// NewLedgerEntryRepository creates a new LedgerEntryRepository.
func NewLedgerEntryRepository(pool *pgxpool.Pool) *LedgerEntryRepository {
	return &LedgerEntryRepository{db: pool}
}

// ListByOwner returns all entries for an owner ordered by posted_at, id.
func (r *LedgerEntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, kind, status, amount::text, pending_after::text, advance_after::text, posted_at
		FROM ledger_entries
		WHERE owner_id = $1
		ORDER BY posted_at, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var (
			e                      domain.LedgerEntry
			kind, status, amount   string
			pendingAfter, advAfter *string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &kind, &status, &amount, &pendingAfter, &advAfter, &e.PostedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.EntryKind(kind)
		e.Status = domain.EntryStatus(status)

		if e.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}

		// A checkpoint needs both sides; a half-written one is ignored.
		pending, err := parseOptionalDecimal("pending_after", pendingAfter)
		if err != nil {
			return nil, err
		}
		advance, err := parseOptionalDecimal("advance_after", advAfter)
		if err != nil {
			return nil, err
		}
		if pending != nil && advance != nil {
			e.SnapshotAfter = &domain.BalanceCheckpoint{Pending: *pending, Advance: *advance}
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
