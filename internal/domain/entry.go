package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the business event a ledger entry records.
type EntryKind string

const (
	EntryKindInvoice        EntryKind = "invoice"
	EntryKindDebitNote      EntryKind = "debit_note"
	EntryKindPayment        EntryKind = "payment"
	EntryKindRefund         EntryKind = "refund"
	EntryKindCreditNote     EntryKind = "credit_note"
	EntryKindAdjustment     EntryKind = "adjustment"
	EntryKindWriteOff       EntryKind = "write_off"
	EntryKindOpeningBalance EntryKind = "opening_balance"
)

var validEntryKinds = map[EntryKind]bool{
	EntryKindInvoice:        true,
	EntryKindDebitNote:      true,
	EntryKindPayment:        true,
	EntryKindRefund:         true,
	EntryKindCreditNote:     true,
	EntryKindAdjustment:     true,
	EntryKindWriteOff:       true,
	EntryKindOpeningBalance: true,
}

// IsValid reports whether the kind is one the replay understands.
func (k EntryKind) IsValid() bool {
	return validEntryKinds[k]
}

// EntryStatus is the lifecycle state of a posted entry.
type EntryStatus string

const (
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
)

// BalanceCheckpoint is a running balance captured when the entry was posted.
type BalanceCheckpoint struct {
	Pending decimal.Decimal
	Advance decimal.Decimal
}

// LedgerEntry is an immutable posted financial event for one owner.
// Amount is the signed balance impact, not a debit/credit pair.
type LedgerEntry struct {
	PostedAt      time.Time
	SnapshotAfter *BalanceCheckpoint
	ID            string
	OwnerID       string
	Kind          EntryKind
	Status        EntryStatus
	Amount        decimal.Decimal
}

// IsReversed reports whether the entry must be excluded from aggregates.
func (e *LedgerEntry) IsReversed() bool {
	return e.Status == EntryStatusReversed
}

// Validate checks that the entry can be replayed.
func (e *LedgerEntry) Validate() error {
	if e.OwnerID == "" {
		return &MalformedEntryError{EntryID: e.ID, Reason: "missing owner"}
	}

	if !e.Kind.IsValid() {
		return &MalformedEntryError{EntryID: e.ID, Reason: "unknown kind " + string(e.Kind)}
	}

	switch e.Kind {
	case EntryKindInvoice, EntryKindDebitNote:
		if e.Amount.IsNegative() {
			return &MalformedEntryError{EntryID: e.ID, Reason: "negative amount on " + string(e.Kind)}
		}
	}

	if e.SnapshotAfter != nil && (e.SnapshotAfter.Pending.IsNegative() || e.SnapshotAfter.Advance.IsNegative()) {
		return &MalformedEntryError{EntryID: e.ID, Reason: "negative checkpoint balance"}
	}

	return nil
}

// SortEntries returns a copy of entries ordered by PostedAt, ties broken by ID.
func SortEntries(entries []*LedgerEntry) []*LedgerEntry {
	sorted := make([]*LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			sorted = append(sorted, e)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PostedAt.Equal(sorted[j].PostedAt) {
			return sorted[i].PostedAt.Before(sorted[j].PostedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	return sorted
}
