package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Tolerance is the currency rounding slack used for every balance comparison.
var Tolerance = decimal.New(1, -2)

// WithinTolerance reports whether a and b differ by no more than Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// AccountBalanceSnapshot is the derived balance cached on an owner.
type AccountBalanceSnapshot struct {
	Pending decimal.Decimal `json:"pending_balance"`
	Advance decimal.Decimal `json:"advance_balance"`
	Current decimal.Decimal `json:"current_balance"`
}

// NewSnapshot builds a snapshot, deriving Current from pending and advance.
func NewSnapshot(pending, advance decimal.Decimal) AccountBalanceSnapshot {
	return AccountBalanceSnapshot{
		Pending: pending,
		Advance: advance,
		Current: pending.Sub(advance),
	}
}

// Discrepancy holds signed per-field differences (reconstructed minus cached).
type Discrepancy struct {
	Pending decimal.Decimal `json:"pending"`
	Advance decimal.Decimal `json:"advance"`
	Current decimal.Decimal `json:"current"`
}

// Compare returns the field differences between reconstructed and cached,
// and whether any field exceeds Tolerance.
func Compare(cached, reconstructed AccountBalanceSnapshot) (Discrepancy, bool) {
	d := Discrepancy{
		Pending: reconstructed.Pending.Sub(cached.Pending),
		Advance: reconstructed.Advance.Sub(cached.Advance),
		Current: reconstructed.Current.Sub(cached.Current),
	}

	exceeds := !WithinTolerance(reconstructed.Pending, cached.Pending) ||
		!WithinTolerance(reconstructed.Advance, cached.Advance) ||
		!WithinTolerance(reconstructed.Current, cached.Current)

	return d, exceeds
}

// ReplayMode selects how checkpoints on entries are treated.
type ReplayMode string

const (
	// ReplaySnapshotPriority adopts an entry's checkpoint as the running balance.
	ReplaySnapshotPriority ReplayMode = "snapshot_priority"
	// ReplayFull ignores checkpoints and always replays from zero.
	ReplayFull ReplayMode = "full"
)

// ParseReplayMode maps a config value to a ReplayMode, defaulting to snapshot priority.
func ParseReplayMode(s string) ReplayMode {
	if ReplayMode(s) == ReplayFull {
		return ReplayFull
	}
	return ReplaySnapshotPriority
}

// ReplayMethod records which code path produced a reconstructed balance.
type ReplayMethod string

const (
	ReplayMethodFull     ReplayMethod = "full_replay"
	ReplayMethodSnapshot ReplayMethod = "snapshot"
)

// ReplayResult is the outcome of reconstructing one owner's balance.
type ReplayResult struct {
	OwnerID         string
	Method          ReplayMethod
	Snapshot        AccountBalanceSnapshot
	Skipped         []*MalformedEntryError
	EntriesApplied  int
	CheckpointsUsed int
}

// Reconstruct replays the owner's entries into a balance snapshot.
// Reversed entries are excluded and malformed entries are skipped and reported.
// The input slice is not modified.
func Reconstruct(ownerID string, entries []*LedgerEntry, mode ReplayMode) ReplayResult {
	result := ReplayResult{
		OwnerID: ownerID,
		Method:  ReplayMethodFull,
	}

	pending := decimal.Zero
	advance := decimal.Zero

	for _, e := range SortEntries(entries) {
		if e.IsReversed() {
			continue
		}

		if e.OwnerID != ownerID {
			result.Skipped = append(result.Skipped, &MalformedEntryError{EntryID: e.ID, Reason: "entry belongs to owner " + e.OwnerID})
			continue
		}

		if err := e.Validate(); err != nil {
			var me *MalformedEntryError
			if errors.As(err, &me) {
				result.Skipped = append(result.Skipped, me)
			}
			continue
		}

		if mode != ReplayFull && e.SnapshotAfter != nil {
			pending = e.SnapshotAfter.Pending
			advance = e.SnapshotAfter.Advance
			result.Method = ReplayMethodSnapshot
			result.CheckpointsUsed++
			result.EntriesApplied++
			continue
		}

		pending, advance = applyEntry(e, pending, advance)
		result.EntriesApplied++
	}

	result.Snapshot = NewSnapshot(floorZero(pending), floorZero(advance))

	return result
}

// applyEntry applies one posting rule to the running balance.
func applyEntry(e *LedgerEntry, pending, advance decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	amount := e.Amount

	switch e.Kind {
	case EntryKindInvoice, EntryKindDebitNote:
		pending = pending.Add(amount)

	case EntryKindPayment, EntryKindRefund, EntryKindCreditNote:
		pending, advance = settle(pending, advance, amount.Abs())

	case EntryKindAdjustment:
		if !amount.IsNegative() {
			pending = pending.Add(amount)
			break
		}
		p := amount.Abs()
		reduction := decimal.Min(p, floorZero(pending))
		pending = pending.Sub(reduction)
		advance = floorZero(advance.Sub(p.Sub(reduction)))

	case EntryKindWriteOff:
		pending = floorZero(pending.Add(amount))

	case EntryKindOpeningBalance:
		if amount.IsNegative() {
			advance = advance.Add(amount.Abs())
		} else {
			pending = pending.Add(amount)
		}
	}

	return pending, advance
}

// settle extinguishes pending first and spills the remainder into advance.
func settle(pending, advance, p decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	reduction := decimal.Min(p, floorZero(pending))
	return pending.Sub(reduction), advance.Add(p.Sub(reduction))
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
