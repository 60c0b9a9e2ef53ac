package domain

import "github.com/shopspring/decimal"

// ResolutionPolicy names how two independent derivations of a figure are combined.
type ResolutionPolicy string

const (
	PolicyMax                 ResolutionPolicy = "max"
	PolicyPrimaryElseFallback ResolutionPolicy = "primary_if_nonzero_else_fallback"
)

// Source labels on a SourcedAmount.
const (
	SourcePrimary  = "primary"
	SourceFallback = "fallback"
)

// SourcedAmount is a figure derived from a primary and a fallback source,
// keeping both derivations and the one that was used.
type SourcedAmount struct {
	Amount   decimal.Decimal  `json:"amount"`
	Primary  decimal.Decimal  `json:"primary"`
	Fallback decimal.Decimal  `json:"fallback"`
	Source   string           `json:"source"`
	Policy   ResolutionPolicy `json:"policy"`
}

// Delta returns primary minus fallback, the cross-check between derivations.
func (s SourcedAmount) Delta() decimal.Decimal {
	return s.Primary.Sub(s.Fallback)
}

// ResolveMax takes the larger derivation. Ties go to the primary source.
func ResolveMax(primary, fallback decimal.Decimal) SourcedAmount {
	s := SourcedAmount{Primary: primary, Fallback: fallback, Policy: PolicyMax}
	if fallback.GreaterThan(primary) {
		s.Amount, s.Source = fallback, SourceFallback
	} else {
		s.Amount, s.Source = primary, SourcePrimary
	}
	return s
}

// ResolvePrimaryElseFallback uses the primary derivation unless it is zero.
func ResolvePrimaryElseFallback(primary, fallback decimal.Decimal) SourcedAmount {
	s := SourcedAmount{Primary: primary, Fallback: fallback, Policy: PolicyPrimaryElseFallback}
	if primary.IsZero() {
		s.Amount, s.Source = fallback, SourceFallback
	} else {
		s.Amount, s.Source = primary, SourcePrimary
	}
	return s
}
