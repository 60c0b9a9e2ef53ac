package domain

import (
	"regexp"
	"strings"
)

// OtherKind is a non-operating income or expense line.
type OtherKind string

const (
	OtherInterestIncome  OtherKind = "interest_income"
	OtherRentalIncome    OtherKind = "rental_income"
	OtherDividendIncome  OtherKind = "dividend_income"
	OtherMiscIncome      OtherKind = "other_income"
	OtherInterestExpense OtherKind = "interest_expense"
	OtherDepreciation    OtherKind = "depreciation"
	OtherAmortization    OtherKind = "amortization"
	OtherMiscExpense     OtherKind = "other_expense"
)

// IsIncome reports whether the kind belongs to the other income side.
func (k OtherKind) IsIncome() bool {
	switch k {
	case OtherInterestIncome, OtherRentalIncome, OtherDividendIncome, OtherMiscIncome:
		return true
	}
	return false
}

// IsValid reports whether the kind is known.
func (k OtherKind) IsValid() bool {
	switch k {
	case OtherInterestIncome, OtherRentalIncome, OtherDividendIncome, OtherMiscIncome,
		OtherInterestExpense, OtherDepreciation, OtherAmortization, OtherMiscExpense:
		return true
	}
	return false
}

// OtherSide restricts other income/expense classification to one side.
type OtherSide int

const (
	OtherSideUnknown OtherSide = iota
	OtherSideIncome
	OtherSideExpense
)

func (s OtherSide) allows(k OtherKind) bool {
	switch s {
	case OtherSideIncome:
		return k.IsIncome()
	case OtherSideExpense:
		return !k.IsIncome()
	}
	return true
}

// OtherPattern maps name patterns to an OtherKind.
type OtherPattern struct {
	Kind     OtherKind `mapstructure:"kind" json:"kind"`
	Patterns []string  `mapstructure:"patterns" json:"patterns"`
}

// OtherRules classifies non-operating postings. Categories maps account category
// metadata to a side; Patterns refine within that side by account name.
type OtherRules struct {
	Codes      map[string]OtherKind `mapstructure:"codes" json:"codes"`
	Categories map[string]OtherKind `mapstructure:"categories" json:"categories"`
	Patterns   []OtherPattern       `mapstructure:"patterns" json:"patterns"`
}

// OtherClassification is the result of ClassifyOther.
type OtherClassification struct {
	Kind    OtherKind            `json:"kind"`
	Method  ClassificationMethod `json:"method"`
	Matched bool                 `json:"matched"`
}

type otherRule struct {
	re   *regexp.Regexp
	kind OtherKind
}

type otherClassifier struct {
	codes      map[string]OtherKind
	categories map[string]OtherKind
	rules      []otherRule
}

func newOtherClassifier(r OtherRules) (*otherClassifier, error) {
	oc := &otherClassifier{
		codes:      make(map[string]OtherKind, len(r.Codes)),
		categories: make(map[string]OtherKind, len(r.Categories)),
	}

	for code, kind := range r.Codes {
		if !kind.IsValid() {
			return nil, NewValidationError("other.codes."+code, "unknown kind "+string(kind))
		}
		oc.codes[strings.TrimSpace(code)] = kind
	}

	for cat, kind := range r.Categories {
		if !kind.IsValid() {
			return nil, NewValidationError("other.categories."+cat, "unknown kind "+string(kind))
		}
		oc.categories[strings.ToLower(strings.TrimSpace(cat))] = kind
	}

	for _, p := range r.Patterns {
		if !p.Kind.IsValid() {
			return nil, NewValidationError("other.patterns", "unknown kind "+string(p.Kind))
		}
		for _, expr := range p.Patterns {
			re, err := compilePattern(expr)
			if err != nil {
				return nil, err
			}
			oc.rules = append(oc.rules, otherRule{re: re, kind: p.Kind})
		}
	}

	return oc, nil
}

// ClassifyOther resolves an other income/expense posting: code table first, then
// the account category metadata narrowed by name pattern, then name pattern alone.
func (c *Classifier) ClassifyOther(accountCode, accountName, accountCategory string) OtherClassification {
	return c.ClassifyOtherOnSide(accountCode, accountName, accountCategory, OtherSideUnknown)
}

// ClassifyOtherOnSide is ClassifyOther for a posting whose side is already known
// from the chart of accounts. Only kinds on that side can match; with no match
// the result is unmatched and the caller books it as misc on that side.
func (c *Classifier) ClassifyOtherOnSide(accountCode, accountName, accountCategory string, side OtherSide) OtherClassification {
	oc := c.other
	if oc == nil {
		return OtherClassification{}
	}

	if kind, ok := oc.codes[strings.TrimSpace(accountCode)]; ok && side.allows(kind) {
		return OtherClassification{Kind: kind, Method: MethodExactCode, Matched: true}
	}

	catKind, hasCat := oc.categories[strings.ToLower(strings.TrimSpace(accountCategory))]
	if hasCat && !side.allows(catKind) {
		hasCat = false
	}

	for _, r := range oc.rules {
		if !r.re.MatchString(accountName) || !side.allows(r.kind) {
			continue
		}
		if hasCat && r.kind.IsIncome() != catKind.IsIncome() {
			continue
		}
		return OtherClassification{Kind: r.kind, Method: MethodPattern, Matched: true}
	}

	if hasCat {
		return OtherClassification{Kind: catKind, Method: MethodGroupPattern, Matched: true}
	}

	return OtherClassification{}
}
