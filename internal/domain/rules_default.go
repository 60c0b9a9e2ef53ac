package domain

// DefaultRuleSet is the built-in classification table used until an operator
// rules file is loaded.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Version: "builtin-1",
		Codes: map[string]CategoryRef{
			"521": {Type: ExpenseSelling, Category: "salaries"},
			"522": {Type: ExpenseSelling, Category: "marketing"},
			"523": {Type: ExpenseSelling, Category: "distribution"},
			"524": {Type: ExpenseSelling, Category: "commissions"},
			"531": {Type: ExpenseAdministrative, Category: "salaries"},
			"532": {Type: ExpenseAdministrative, Category: "rent"},
			"533": {Type: ExpenseAdministrative, Category: "utilities"},
			"534": {Type: ExpenseAdministrative, Category: "professional_fees"},
			"535": {Type: ExpenseAdministrative, Category: "insurance"},
		},
		Selling: PatternGroup{
			Fallback: "general",
			Patterns: []string{`\bsales?\b`, `\bselling\b`, `\bcustomer\b`},
			Categories: []CategoryPatterns{
				{Category: "marketing", Patterns: []string{`advertis`, `marketing`, `promotion`, `campaign`}},
				{Category: "distribution", Patterns: []string{`shipping`, `delivery`, `freight out`, `courier`}},
				{Category: "commissions", Patterns: []string{`commission`}},
			},
		},
		Administrative: PatternGroup{
			Fallback: "general",
			Patterns: []string{`\badmin`, `\boffice\b`, `\bgeneral\b`},
			Categories: []CategoryPatterns{
				{Category: "salaries", Patterns: []string{`salar`, `payroll`, `wage`}},
				{Category: "rent", Patterns: []string{`\brent\b`, `lease`}},
				{Category: "utilities", Patterns: []string{`electric`, `water`, `internet`, `utilit`}},
				{Category: "professional_fees", Patterns: []string{`legal`, `audit`, `accounting`, `consult`}},
				{Category: "insurance", Patterns: []string{`insurance`}},
			},
		},
		Default: CategoryRef{Type: ExpenseAdministrative, Category: "other"},
		Other: OtherRules{
			Codes: map[string]OtherKind{
				"7000": OtherInterestIncome,
				"7010": OtherRentalIncome,
				"7020": OtherDividendIncome,
				"8000": OtherInterestExpense,
				"8010": OtherDepreciation,
				"8020": OtherAmortization,
			},
			Categories: map[string]OtherKind{
				"other_income":  OtherMiscIncome,
				"other_expense": OtherMiscExpense,
			},
			Patterns: []OtherPattern{
				{Kind: OtherInterestIncome, Patterns: []string{`interest (income|earned|received)`}},
				{Kind: OtherRentalIncome, Patterns: []string{`rental income`, `rent received`}},
				{Kind: OtherDividendIncome, Patterns: []string{`dividend`}},
				{Kind: OtherInterestExpense, Patterns: []string{`interest`}},
				{Kind: OtherDepreciation, Patterns: []string{`depreciation`}},
				{Kind: OtherAmortization, Patterns: []string{`amorti[sz]ation`}},
			},
		},
	}
}
