package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle of an accounting transaction.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionVoided    TransactionStatus = "voided"
)

// Transaction is an accounting posting used for statement derivation.
// DebitAmount and CreditAmount are mutually exclusive.
type Transaction struct {
	CreatedAt       time.Time
	Tags            map[string]string
	ID              string
	AccountCode     string
	AccountName     string
	AccountCategory string
	Description     string
	Status          TransactionStatus
	DebitAmount     decimal.Decimal
	CreditAmount    decimal.Decimal
	// ReferenceAmount is the gross amount of the underlying document, if known.
	ReferenceAmount decimal.Decimal
}

// IsDebit reports whether the posting is on the debit side.
func (t *Transaction) IsDebit() bool {
	return t.DebitAmount.IsPositive()
}

// Net returns debit minus credit.
func (t *Transaction) Net() decimal.Decimal {
	return t.DebitAmount.Sub(t.CreditAmount)
}

// Amount returns whichever side carries the value.
func (t *Transaction) Amount() decimal.Decimal {
	if t.IsDebit() {
		return t.DebitAmount
	}
	return t.CreditAmount
}

// TagList flattens tags into sorted "key:value" strings.
func (t *Transaction) TagList() []string {
	tags := make([]string, 0, len(t.Tags))
	for k, v := range t.Tags {
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return tags
}

// TransactionSide restricts a query to one side of the posting.
type TransactionSide string

const (
	SideAny    TransactionSide = ""
	SideDebit  TransactionSide = "debit"
	SideCredit TransactionSide = "credit"
)

// TransactionFilter selects completed transactions for a period.
type TransactionFilter struct {
	Period          Period
	Side            TransactionSide
	AccountCodes    []string
	AccountPrefixes []string
	Categories      []string
}

// Matches applies the filter in memory. Voided transactions never match.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if t.Status == TransactionVoided {
		return false
	}
	if !f.Period.Contains(t.CreatedAt) {
		return false
	}

	switch f.Side {
	case SideDebit:
		if !t.IsDebit() {
			return false
		}
	case SideCredit:
		if !t.CreditAmount.IsPositive() {
			return false
		}
	}

	if len(f.AccountCodes) == 0 && len(f.AccountPrefixes) == 0 && len(f.Categories) == 0 {
		return true
	}

	for _, c := range f.AccountCodes {
		if t.AccountCode == c {
			return true
		}
	}
	for _, p := range f.AccountPrefixes {
		if len(t.AccountCode) >= len(p) && t.AccountCode[:len(p)] == p {
			return true
		}
	}
	for _, c := range f.Categories {
		if t.AccountCategory == c {
			return true
		}
	}

	return false
}

// SalesOrderStatus is the lifecycle of a sales order.
type SalesOrderStatus string

const (
	SalesOrderDraft     SalesOrderStatus = "draft"
	SalesOrderConfirmed SalesOrderStatus = "confirmed"
	SalesOrderCancelled SalesOrderStatus = "cancelled"
)

// SalesOrder is a confirmed sale with its tax and line items.
type SalesOrder struct {
	ConfirmedAt time.Time
	ID          string
	Status      SalesOrderStatus
	Lines       []OrderLine
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TaxExempt   bool
}

// OrderLine is one product line of a sales order.
type OrderLine struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
}

// Cost returns UnitCost times Quantity.
func (l OrderLine) Cost() decimal.Decimal {
	return l.UnitCost.Mul(l.Quantity)
}

// StockItem is the current on-hand quantity and cost of a product.
type StockItem struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// Value returns Quantity times UnitCost.
func (s StockItem) Value() decimal.Decimal {
	return s.Quantity.Mul(s.UnitCost)
}
