package domain

import "strings"

// ChartOfAccounts names the account codes each statement stage reads.
type ChartOfAccounts struct {
	SalesTaxPayableCode      string   `mapstructure:"sales_tax_payable_code" json:"sales_tax_payable_code"`
	RevenueCodes             []string `mapstructure:"revenue_codes" json:"revenue_codes"`
	SalesReturnCodes         []string `mapstructure:"sales_return_codes" json:"sales_return_codes"`
	SalesDiscountCodes       []string `mapstructure:"sales_discount_codes" json:"sales_discount_codes"`
	COGSCodes                []string `mapstructure:"cogs_codes" json:"cogs_codes"`
	PurchaseCodes            []string `mapstructure:"purchase_codes" json:"purchase_codes"`
	FreightInCodes           []string `mapstructure:"freight_in_codes" json:"freight_in_codes"`
	PurchaseReturnCodes      []string `mapstructure:"purchase_return_codes" json:"purchase_return_codes"`
	PurchaseDiscountCodes    []string `mapstructure:"purchase_discount_codes" json:"purchase_discount_codes"`
	OperatingExpensePrefixes []string `mapstructure:"operating_expense_prefixes" json:"operating_expense_prefixes"`
	OtherIncomeCodes         []string `mapstructure:"other_income_codes" json:"other_income_codes"`
	OtherExpenseCodes        []string `mapstructure:"other_expense_codes" json:"other_expense_codes"`
	OtherIncomeCategories    []string `mapstructure:"other_income_categories" json:"other_income_categories"`
	OtherExpenseCategories   []string `mapstructure:"other_expense_categories" json:"other_expense_categories"`
}

// DefaultChartOfAccounts is a conventional four-digit chart.
func DefaultChartOfAccounts() ChartOfAccounts {
	return ChartOfAccounts{
		SalesTaxPayableCode:      "2310",
		RevenueCodes:             []string{"4000", "4010", "4100"},
		SalesReturnCodes:         []string{"4200"},
		SalesDiscountCodes:       []string{"4300"},
		COGSCodes:                []string{"5000"},
		PurchaseCodes:            []string{"5100"},
		FreightInCodes:           []string{"5110"},
		PurchaseReturnCodes:      []string{"5120"},
		PurchaseDiscountCodes:    []string{"5130"},
		OperatingExpensePrefixes: []string{"52", "53", "6"},
		OtherIncomeCodes:         []string{"7000", "7010", "7020", "7100"},
		OtherExpenseCodes:        []string{"8000", "8010", "8020", "8100"},
		OtherIncomeCategories:    []string{"other_income"},
		OtherExpenseCategories:   []string{"other_expense"},
	}
}

// Validate requires the load-bearing revenue and expense mappings.
func (c ChartOfAccounts) Validate() error {
	if len(c.RevenueCodes) == 0 {
		return NewValidationError("chart.revenue_codes", "at least one revenue account is required")
	}
	if len(c.OperatingExpensePrefixes) == 0 {
		return NewValidationError("chart.operating_expense_prefixes", "at least one expense prefix is required")
	}
	return nil
}

// IsOperatingExpense reports whether t falls under an expense prefix and is
// not claimed by another statement section.
func (c ChartOfAccounts) IsOperatingExpense(t *Transaction) bool {
	if c.IsOther(t) {
		return false
	}
	for _, group := range [][]string{
		c.COGSCodes, c.PurchaseCodes, c.FreightInCodes, c.PurchaseReturnCodes,
		c.PurchaseDiscountCodes,
	} {
		if containsCode(group, t.AccountCode) {
			return false
		}
	}
	for _, p := range c.OperatingExpensePrefixes {
		if strings.HasPrefix(t.AccountCode, p) {
			return true
		}
	}
	return false
}

// IsOther reports whether t belongs to the other income and expense section,
// by account code or account category.
func (c ChartOfAccounts) IsOther(t *Transaction) bool {
	return c.OtherSideOf(t.AccountCode, t.AccountCategory) != OtherSideUnknown
}

// OtherSideOf reports which other section the chart assigns to an account.
// Codes take precedence over categories.
func (c ChartOfAccounts) OtherSideOf(code, category string) OtherSide {
	switch {
	case containsCode(c.OtherIncomeCodes, code):
		return OtherSideIncome
	case containsCode(c.OtherExpenseCodes, code):
		return OtherSideExpense
	case containsCategory(c.OtherIncomeCategories, category):
		return OtherSideIncome
	case containsCategory(c.OtherExpenseCategories, category):
		return OtherSideExpense
	}
	return OtherSideUnknown
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func containsCategory(categories []string, category string) bool {
	if category == "" {
		return false
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
