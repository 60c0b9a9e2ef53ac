package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType buckets sales discounts.
type DiscountType string

const (
	DiscountBulk        DiscountType = "bulk"
	DiscountCustomer    DiscountType = "customer"
	DiscountPromotional DiscountType = "promotional"

	// DiscountTypeTag is the transaction tag that overrides the magnitude heuristic.
	DiscountTypeTag = "discount_type"
)

var (
	bulkDiscountThreshold     = decimal.NewFromInt(15)
	customerDiscountThreshold = decimal.NewFromInt(5)
)

// CategorizeDiscount uses the explicit discount_type tag when present, otherwise the
// discount's share of its reference amount: 15% and up is bulk, 5% up to 15% is
// customer, anything smaller or without a reference is promotional.
func CategorizeDiscount(t *Transaction) DiscountType {
	switch DiscountType(t.Tags[DiscountTypeTag]) {
	case DiscountBulk:
		return DiscountBulk
	case DiscountCustomer:
		return DiscountCustomer
	case DiscountPromotional:
		return DiscountPromotional
	}

	if !t.ReferenceAmount.IsPositive() {
		return DiscountPromotional
	}

	pct := t.Amount().Div(t.ReferenceAmount).Mul(hundred)
	switch {
	case pct.GreaterThanOrEqual(bulkDiscountThreshold):
		return DiscountBulk
	case pct.GreaterThanOrEqual(customerDiscountThreshold):
		return DiscountCustomer
	default:
		return DiscountPromotional
	}
}

// DiscountBreakdown splits total sales discounts by type.
type DiscountBreakdown struct {
	Bulk        decimal.Decimal `json:"bulk"`
	Customer    decimal.Decimal `json:"customer"`
	Promotional decimal.Decimal `json:"promotional"`
	Total       decimal.Decimal `json:"total"`
}

// Add books a discount under its type.
func (d *DiscountBreakdown) Add(kind DiscountType, amount decimal.Decimal) {
	switch kind {
	case DiscountBulk:
		d.Bulk = d.Bulk.Add(amount)
	case DiscountCustomer:
		d.Customer = d.Customer.Add(amount)
	default:
		d.Promotional = d.Promotional.Add(amount)
	}
	d.Total = d.Total.Add(amount)
}

// RevenueSection is gross sales less returns and discounts.
type RevenueSection struct {
	GrossSales   SourcedAmount     `json:"gross_sales"`
	Discounts    DiscountBreakdown `json:"discounts"`
	SalesReturns decimal.Decimal   `json:"sales_returns"`
	Total        decimal.Decimal   `json:"total_revenue"`
}

// NewRevenueSection computes net revenue.
func NewRevenueSection(gross SourcedAmount, returns decimal.Decimal, discounts DiscountBreakdown) RevenueSection {
	return RevenueSection{
		GrossSales:   gross,
		SalesReturns: returns,
		Discounts:    discounts,
		Total:        gross.Amount.Sub(returns).Sub(discounts.Total),
	}
}

// Inventory valuation methods.
const (
	InventoryCurrentSnapshot = "current_snapshot"
	COGSMethodPerpetual      = "perpetual"
	COGSMethodPeriodic       = "periodic"
)

// COGSSection is the cost of goods sold.
type COGSSection struct {
	InventoryMethod    string          `json:"inventory_method"`
	Method             string          `json:"method"`
	CostOfSales        SourcedAmount   `json:"cost_of_sales"`
	BeginningInventory decimal.Decimal `json:"beginning_inventory"`
	EndingInventory    decimal.Decimal `json:"ending_inventory"`
	Purchases          decimal.Decimal `json:"purchases"`
	FreightIn          decimal.Decimal `json:"freight_in"`
	PurchaseReturns    decimal.Decimal `json:"purchase_returns"`
	PurchaseDiscounts  decimal.Decimal `json:"purchase_discounts"`
	NetPurchases       decimal.Decimal `json:"net_purchases"`
	Total              decimal.Decimal `json:"total_cogs"`
}

// NewCOGSSection uses the recorded cost of sales when either derivation has one,
// and otherwise falls back to beginning + net purchases − ending.
func NewCOGSSection(inventory, purchases, freight, returns, discounts decimal.Decimal, costOfSales SourcedAmount) COGSSection {
	s := COGSSection{
		InventoryMethod:    InventoryCurrentSnapshot,
		CostOfSales:        costOfSales,
		BeginningInventory: inventory,
		EndingInventory:    inventory,
		Purchases:          purchases,
		FreightIn:          freight,
		PurchaseReturns:    returns,
		PurchaseDiscounts:  discounts,
		NetPurchases:       purchases.Add(freight).Sub(returns).Sub(discounts),
	}

	if !costOfSales.Amount.IsZero() {
		s.Method = COGSMethodPerpetual
		s.Total = costOfSales.Amount
		return s
	}

	s.Method = COGSMethodPeriodic
	s.Total = s.BeginningInventory.Add(s.NetPurchases).Sub(s.EndingInventory)
	return s
}

// ClassifiedTransaction is an expense posting with its classification.
type ClassifiedTransaction struct {
	CreatedAt      time.Time       `json:"created_at"`
	ID             string          `json:"id"`
	AccountCode    string          `json:"account_code"`
	AccountName    string          `json:"account_name"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Classification Classification  `json:"classification"`
}

// ExpenseCategory is one category bucket with its contributing transactions.
type ExpenseCategory struct {
	Category     string                  `json:"category"`
	Transactions []ClassifiedTransaction `json:"transactions"`
	Total        decimal.Decimal         `json:"total"`
}

// ExpenseGroup is one expense type with its categories, sorted by name.
type ExpenseGroup struct {
	Type       ExpenseType       `json:"type"`
	Categories []ExpenseCategory `json:"categories"`
	Total      decimal.Decimal   `json:"total"`
}

// OperatingExpenses is selling plus administrative.
type OperatingExpenses struct {
	Selling        ExpenseGroup    `json:"selling"`
	Administrative ExpenseGroup    `json:"administrative"`
	Total          decimal.Decimal `json:"total_operating_expenses"`
}

// NewOperatingExpenses buckets classified transactions by type and category.
func NewOperatingExpenses(items []ClassifiedTransaction) OperatingExpenses {
	buckets := map[ExpenseType]map[string]*ExpenseCategory{
		ExpenseSelling:        {},
		ExpenseAdministrative: {},
	}

	for _, it := range items {
		typ := it.Classification.ExpenseType
		if !typ.IsValid() {
			typ = ExpenseAdministrative
		}
		cat, ok := buckets[typ][it.Classification.Category]
		if !ok {
			cat = &ExpenseCategory{Category: it.Classification.Category, Total: decimal.Zero}
			buckets[typ][it.Classification.Category] = cat
		}
		cat.Transactions = append(cat.Transactions, it)
		cat.Total = cat.Total.Add(it.Amount)
	}

	group := func(typ ExpenseType) ExpenseGroup {
		g := ExpenseGroup{Type: typ, Total: decimal.Zero, Categories: []ExpenseCategory{}}
		for _, c := range buckets[typ] {
			g.Categories = append(g.Categories, *c)
			g.Total = g.Total.Add(c.Total)
		}
		sort.Slice(g.Categories, func(i, j int) bool {
			return g.Categories[i].Category < g.Categories[j].Category
		})
		return g
	}

	oe := OperatingExpenses{
		Selling:        group(ExpenseSelling),
		Administrative: group(ExpenseAdministrative),
	}
	oe.Total = oe.Selling.Total.Add(oe.Administrative.Total)
	return oe
}

// OtherLine is the total of one other income/expense kind.
type OtherLine struct {
	Kind   OtherKind       `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// OtherSection is non-operating income and expense.
type OtherSection struct {
	Income       []OtherLine     `json:"income"`
	Expense      []OtherLine     `json:"expense"`
	TotalIncome  decimal.Decimal `json:"other_income"`
	TotalExpense decimal.Decimal `json:"other_expenses"`
}

// NewOtherSection groups amounts by kind, sorted by kind.
func NewOtherSection(amounts map[OtherKind]decimal.Decimal, counts map[OtherKind]int) OtherSection {
	s := OtherSection{
		Income:       []OtherLine{},
		Expense:      []OtherLine{},
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}

	kinds := make([]OtherKind, 0, len(amounts))
	for k := range amounts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, k := range kinds {
		line := OtherLine{Kind: k, Amount: amounts[k], Count: counts[k]}
		if k.IsIncome() {
			s.Income = append(s.Income, line)
			s.TotalIncome = s.TotalIncome.Add(line.Amount)
		} else {
			s.Expense = append(s.Expense, line)
			s.TotalExpense = s.TotalExpense.Add(line.Amount)
		}
	}

	return s
}

// TaxSection holds income tax and the informational sales tax figure.
// Only income tax counts toward TotalTax.
type TaxSection struct {
	SalesTax  *SalesTaxResult `json:"sales_tax,omitempty"`
	IncomeTax IncomeTaxResult `json:"income_tax"`
	TotalTax  decimal.Decimal `json:"total_tax"`
}

// StatementTotals are the headline figures, also used for comparisons.
type StatementTotals struct {
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	TotalCOGS              decimal.Decimal `json:"total_cogs"`
	GrossProfit            decimal.Decimal `json:"gross_profit"`
	TotalOperatingExpenses decimal.Decimal `json:"total_operating_expenses"`
	OperatingIncome        decimal.Decimal `json:"operating_income"`
	OtherIncome            decimal.Decimal `json:"other_income"`
	OtherExpenses          decimal.Decimal `json:"other_expenses"`
	EarningsBeforeTax      decimal.Decimal `json:"earnings_before_tax"`
	TotalTax               decimal.Decimal `json:"total_tax"`
	NetIncome              decimal.Decimal `json:"net_income"`
}

// Margins are percentages of total revenue, zero when there is no revenue.
type Margins struct {
	Gross     decimal.Decimal `json:"gross_margin"`
	Operating decimal.Decimal `json:"operating_margin"`
	PreTax    decimal.Decimal `json:"pre_tax_margin"`
	Net       decimal.Decimal `json:"net_margin"`
}

// Comparator kinds.
const (
	ComparisonPreviousPeriod = "previous_period"
	ComparisonBudget         = "budget"
)

// Variance compares one headline figure against a comparator.
type Variance struct {
	Line            string          `json:"line"`
	Current         decimal.Decimal `json:"current"`
	Comparator      decimal.Decimal `json:"comparator"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
}

// Comparison is a set of variances against one comparator statement.
type Comparison struct {
	Kind      string     `json:"kind"`
	Period    Period     `json:"period"`
	Variances []Variance `json:"variances"`
}

// StageWarning records a statement stage that degraded to zero.
type StageWarning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// PLStatement is a generated profit and loss statement.
type PLStatement struct {
	GeneratedAt       time.Time         `json:"generated_at"`
	PreviousPeriod    *Comparison       `json:"previous_period,omitempty"`
	Budget            *Comparison       `json:"budget,omitempty"`
	ID                string            `json:"id"`
	RulesVersion      string            `json:"rules_version,omitempty"`
	Period            Period            `json:"period"`
	Warnings          []StageWarning    `json:"warnings,omitempty"`
	Revenue           RevenueSection    `json:"revenue"`
	COGS              COGSSection       `json:"cogs"`
	OperatingExpenses OperatingExpenses `json:"operating_expenses"`
	Other             OtherSection      `json:"other"`
	Taxes             TaxSection        `json:"taxes"`
	Totals            StatementTotals   `json:"totals"`
	Margins           Margins           `json:"margins"`
}

// ComputeEarnings derives gross profit, operating income and earnings before tax,
// in that order, from the assembled sections.
func (s *PLStatement) ComputeEarnings() {
	t := &s.Totals
	t.TotalRevenue = s.Revenue.Total
	t.TotalCOGS = s.COGS.Total
	t.TotalOperatingExpenses = s.OperatingExpenses.Total
	t.OtherIncome = s.Other.TotalIncome
	t.OtherExpenses = s.Other.TotalExpense

	t.GrossProfit = t.TotalRevenue.Sub(t.TotalCOGS)
	t.OperatingIncome = t.GrossProfit.Sub(t.TotalOperatingExpenses)
	t.EarningsBeforeTax = t.OperatingIncome.Add(t.OtherIncome).Sub(t.OtherExpenses)
}

// ApplyTaxes books taxes and derives net income and margins. Call after ComputeEarnings.
func (s *PLStatement) ApplyTaxes(income IncomeTaxResult, sales *SalesTaxResult) {
	s.Taxes = TaxSection{
		IncomeTax: income,
		SalesTax:  sales,
		TotalTax:  income.Amount,
	}

	t := &s.Totals
	t.TotalTax = s.Taxes.TotalTax
	t.NetIncome = t.EarningsBeforeTax.Sub(t.TotalTax)

	s.Margins = Margins{
		Gross:     margin(t.GrossProfit, t.TotalRevenue),
		Operating: margin(t.OperatingIncome, t.TotalRevenue),
		PreTax:    margin(t.EarningsBeforeTax, t.TotalRevenue),
		Net:       margin(t.NetIncome, t.TotalRevenue),
	}
}

func margin(x, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return x.Div(revenue).Mul(hundred).Round(2)
}

// NewComparison computes variances of current against comparator for every headline line.
func NewComparison(kind string, period Period, current, comparator StatementTotals) *Comparison {
	lines := []struct {
		name       string
		cur, other decimal.Decimal
	}{
		{"total_revenue", current.TotalRevenue, comparator.TotalRevenue},
		{"total_cogs", current.TotalCOGS, comparator.TotalCOGS},
		{"gross_profit", current.GrossProfit, comparator.GrossProfit},
		{"total_operating_expenses", current.TotalOperatingExpenses, comparator.TotalOperatingExpenses},
		{"operating_income", current.OperatingIncome, comparator.OperatingIncome},
		{"other_income", current.OtherIncome, comparator.OtherIncome},
		{"other_expenses", current.OtherExpenses, comparator.OtherExpenses},
		{"earnings_before_tax", current.EarningsBeforeTax, comparator.EarningsBeforeTax},
		{"total_tax", current.TotalTax, comparator.TotalTax},
		{"net_income", current.NetIncome, comparator.NetIncome},
	}

	c := &Comparison{Kind: kind, Period: period, Variances: make([]Variance, 0, len(lines))}
	for _, l := range lines {
		v := Variance{
			Line:            l.name,
			Current:         l.cur,
			Comparator:      l.other,
			Variance:        l.cur.Sub(l.other),
			VariancePercent: decimal.Zero,
		}
		if !l.other.IsZero() {
			v.VariancePercent = v.Variance.Div(l.other.Abs()).Mul(hundred).Round(2)
		}
		c.Variances = append(c.Variances, v)
	}
	return c
}
