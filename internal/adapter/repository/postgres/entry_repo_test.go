package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/ledgerrecon/internal/domain"
)

func TestLedgerEntryRepositoryListByOwner(t *testing.T) {
	pool := newMockPool(t)
	repo := &LedgerEntryRepository{db: pool}
	posted := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	cols := []string{"id", "owner_id", "kind", "status", "amount", "pending_after", "advance_after", "posted_at"}
	pool.ExpectQuery("FROM ledger_entries").
		WithArgs("cust-1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("e1", "cust-1", "invoice", "posted", "500", strPtr("500"), strPtr("0"), posted).
			AddRow("e2", "cust-1", "payment", "posted", "-200", (*string)(nil), (*string)(nil), posted.Add(time.Hour)).
			AddRow("e3", "cust-1", "refund", "reversed", "50", strPtr("10"), (*string)(nil), posted.Add(2*time.Hour)))

	entries, err := repo.ListByOwner(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].SnapshotAfter == nil {
		t.Fatal("expected checkpoint on first entry")
	}
	assertDecimal(t, "checkpoint pending", entries[0].SnapshotAfter.Pending, "500")

	if entries[1].Kind != domain.EntryKindPayment || entries[1].SnapshotAfter != nil {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	assertDecimal(t, "amount", entries[1].Amount, "-200")

	if !entries[2].IsReversed() || entries[2].SnapshotAfter != nil {
		t.Fatalf("expected reversed entry without half checkpoint, got %+v", entries[2])
	}
	assertExpectations(t, pool)
}
