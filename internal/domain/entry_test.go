package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLedgerEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *LedgerEntry)
		wantErr bool
	}{
		{"valid invoice", func(e *LedgerEntry) {}, false},
		{"negative payment allowed", func(e *LedgerEntry) { e.Kind = EntryKindPayment; e.Amount = decimal.NewFromInt(-50) }, false},
		{"negative write-off allowed", func(e *LedgerEntry) { e.Kind = EntryKindWriteOff; e.Amount = decimal.NewFromInt(-5) }, false},
		{"missing owner", func(e *LedgerEntry) { e.OwnerID = "" }, true},
		{"unknown kind", func(e *LedgerEntry) { e.Kind = "chargeback" }, true},
		{"negative invoice", func(e *LedgerEntry) { e.Amount = decimal.NewFromInt(-1) }, true},
		{"negative debit note", func(e *LedgerEntry) { e.Kind = EntryKindDebitNote; e.Amount = decimal.NewFromInt(-1) }, true},
		{"negative checkpoint", func(e *LedgerEntry) {
			e.SnapshotAfter = &BalanceCheckpoint{Pending: decimal.NewFromInt(-1), Advance: decimal.Zero}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("e1", EntryKindInvoice, 100, 0)
			tt.mutate(e)

			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}

			var malformed *MalformedEntryError
			if !errors.As(err, &malformed) || malformed.EntryID != "e1" || !errors.Is(err, ErrMalformedEntry) {
				t.Fatalf("expected malformed entry error for e1, got %v", err)
			}
		})
	}
}

func TestSortEntries(t *testing.T) {
	input := []*LedgerEntry{
		entry("b", EntryKindInvoice, 1, time.Hour),
		nil,
		entry("c", EntryKindInvoice, 1, 0),
		entry("a", EntryKindInvoice, 1, time.Hour),
	}

	sorted := SortEntries(input)

	var ids string
	for _, e := range sorted {
		ids += e.ID
	}
	if ids != "cab" {
		t.Fatalf("expected order cab, got %s", ids)
	}
	if input[0].ID != "b" || input[1] != nil {
		t.Fatalf("input slice was reordered")
	}
}
