package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxBracket is a marginal rate over [Min, Max). A nil Max is unbounded.
// Rate is a percentage.
type TaxBracket struct {
	Max  *decimal.Decimal `json:"max,omitempty"`
	Min  decimal.Decimal  `json:"min"`
	Rate decimal.Decimal  `json:"rate"`
}

// IncomeTaxConfig is either a flat rate or a progressive bracket table.
// FlatRate wins when both are set.
type IncomeTaxConfig struct {
	FlatRate *decimal.Decimal `json:"flat_rate,omitempty"`
	Brackets []TaxBracket     `json:"brackets,omitempty"`
}

// Validate requires a rate and ordered, non-overlapping brackets.
func (c IncomeTaxConfig) Validate() error {
	if c.FlatRate != nil {
		if c.FlatRate.IsNegative() || c.FlatRate.GreaterThan(hundred) {
			return NewValidationError("flat_rate", "must be between 0 and 100")
		}
		return nil
	}

	if len(c.Brackets) == 0 {
		return NewValidationError("brackets", "a flat rate or at least one bracket is required")
	}

	for i, b := range c.Brackets {
		field := fmt.Sprintf("brackets[%d]", i)
		if b.Min.IsNegative() {
			return NewValidationError(field, "min must not be negative")
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThan(hundred) {
			return NewValidationError(field, "rate must be between 0 and 100")
		}
		if b.Max != nil && !b.Max.GreaterThan(b.Min) {
			return NewValidationError(field, "max must be greater than min")
		}
		if i == 0 {
			continue
		}
		prev := c.Brackets[i-1]
		if prev.Max == nil {
			return NewValidationError(field, "only the last bracket may be unbounded")
		}
		if b.Min.LessThan(*prev.Max) {
			return NewValidationError(field, "brackets must be ordered and non-overlapping")
		}
	}

	return nil
}

// BracketTax is the tax attributed to one bracket.
type BracketTax struct {
	Bracket       TaxBracket      `json:"bracket"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	Tax           decimal.Decimal `json:"tax"`
}

// IncomeTaxResult is the outcome of ComputeIncomeTax.
type IncomeTaxResult struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
	Brackets      []BracketTax    `json:"brackets"`
}

// ComputeIncomeTax applies cfg to earnings before tax. Earnings at or below zero
// owe nothing. The total is rounded to cents.
func ComputeIncomeTax(ebt decimal.Decimal, cfg IncomeTaxConfig) (IncomeTaxResult, error) {
	if err := cfg.Validate(); err != nil {
		return IncomeTaxResult{}, err
	}

	result := IncomeTaxResult{Amount: decimal.Zero, EffectiveRate: decimal.Zero}
	if !ebt.IsPositive() {
		return result, nil
	}

	if cfg.FlatRate != nil {
		result.Amount = ebt.Mul(*cfg.FlatRate).Div(hundred).Round(2)
	} else {
		total := decimal.Zero
		for _, b := range cfg.Brackets {
			if !ebt.GreaterThan(b.Min) {
				break
			}
			upper := ebt
			if b.Max != nil && b.Max.LessThan(ebt) {
				upper = *b.Max
			}
			portion := upper.Sub(b.Min)
			tax := portion.Mul(b.Rate).Div(hundred)
			result.Brackets = append(result.Brackets, BracketTax{
				Bracket:       b,
				TaxableAmount: portion,
				Tax:           tax.Round(2),
			})
			total = total.Add(tax)
		}
		result.Amount = total.Round(2)
	}

	result.EffectiveRate = result.Amount.Div(ebt).Mul(hundred).Round(4)

	return result, nil
}

// SalesTaxConfig names the account that accrues collected sales tax.
type SalesTaxConfig struct {
	PayableAccountCode string `json:"payable_account_code"`
}

// SalesTaxResult reports both derivations of sales tax for a period.
type SalesTaxResult struct {
	ByMonth     map[string]decimal.Decimal `json:"by_month"`
	Months      []string                   `json:"months"`
	Tax         SourcedAmount              `json:"tax"`
	TaxableBase decimal.Decimal            `json:"taxable_base"`
	ExemptBase  decimal.Decimal            `json:"exempt_base"`
}

// Amount returns the resolved sales tax.
func (r *SalesTaxResult) Amount() decimal.Decimal {
	return r.Tax.Amount
}

// ComputeSalesTax derives sales tax from the tax recorded on completed orders and,
// independently, from net credits to the payable account, keeping the larger.
// ByMonth follows whichever source was used.
func ComputeSalesTax(period Period, orders []*SalesOrder, payable []*Transaction) *SalesTaxResult {
	result := &SalesTaxResult{
		TaxableBase: decimal.Zero,
		ExemptBase:  decimal.Zero,
	}

	orderTax := decimal.Zero
	orderMonths := make(map[string]decimal.Decimal)
	for _, o := range orders {
		if o == nil || o.Status != SalesOrderConfirmed || !period.Contains(o.ConfirmedAt) {
			continue
		}
		if o.TaxExempt {
			result.ExemptBase = result.ExemptBase.Add(o.Subtotal)
			continue
		}
		result.TaxableBase = result.TaxableBase.Add(o.Subtotal)
		orderTax = orderTax.Add(o.TaxAmount)
		key := MonthKey(o.ConfirmedAt)
		orderMonths[key] = orderMonths[key].Add(o.TaxAmount)
	}

	postedTax := decimal.Zero
	postedMonths := make(map[string]decimal.Decimal)
	for _, t := range payable {
		if t == nil || t.Status == TransactionVoided || !period.Contains(t.CreatedAt) {
			continue
		}
		net := t.CreditAmount.Sub(t.DebitAmount)
		postedTax = postedTax.Add(net)
		key := MonthKey(t.CreatedAt)
		postedMonths[key] = postedMonths[key].Add(net)
	}

	result.Tax = ResolveMax(orderTax, postedTax)
	if result.Tax.Source == SourceFallback {
		result.ByMonth = postedMonths
	} else {
		result.ByMonth = orderMonths
	}

	result.Months = make([]string, 0, len(result.ByMonth))
	for k := range result.ByMonth {
		result.Months = append(result.Months, k)
	}
	sort.Strings(result.Months)

	return result
}
