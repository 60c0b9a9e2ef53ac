package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerrecon/internal/domain"
	"github.com/iho/ledgerrecon/internal/usecase"
)

// ReconcileOwnerRequest reconciles one owner. Nil flags fall back to server defaults.
type ReconcileOwnerRequest struct {
	AutoCorrect *bool `json:"auto_correct,omitempty"`
	Alert       *bool `json:"alert,omitempty"`
}

// ToOptions resolves the request against defaults.
func (r *ReconcileOwnerRequest) ToOptions(defaults usecase.ReconcileOptions) usecase.ReconcileOptions {
	opts := defaults
	if r.AutoCorrect != nil {
		opts.AutoCorrect = *r.AutoCorrect
	}
	if r.Alert != nil {
		opts.AlertOnDiscrepancy = *r.Alert
	}
	return opts
}

// ReconcileAllRequest reconciles every owner matching the filter.
type ReconcileAllRequest struct {
	UpdatedBefore *time.Time `json:"updated_before,omitempty"`
	AutoCorrect   *bool      `json:"auto_correct,omitempty"`
	Alert         *bool      `json:"alert,omitempty"`
	OwnerIDs      []string   `json:"owner_ids,omitempty" validate:"omitempty,max=10000,dive,required"`
	Kinds         []string   `json:"kinds,omitempty" validate:"omitempty,dive,oneof=customer supplier account"`
	BatchSize     int        `json:"batch_size,omitempty" validate:"omitempty,min=1,max=10000"`
}

// ToUseCaseInput converts to the owner filter and batch options.
func (r *ReconcileAllRequest) ToUseCaseInput(defaults usecase.ReconcileAllOptions) (domain.OwnerFilter, usecase.ReconcileAllOptions) {
	filter := domain.OwnerFilter{
		UpdatedBefore: r.UpdatedBefore,
		IDs:           r.OwnerIDs,
	}
	for _, k := range r.Kinds {
		filter.Kinds = append(filter.Kinds, domain.OwnerKind(k))
	}

	single := ReconcileOwnerRequest{AutoCorrect: r.AutoCorrect, Alert: r.Alert}
	opts := usecase.ReconcileAllOptions{
		ReconcileOptions: single.ToOptions(defaults.ReconcileOptions),
		BatchSize:        defaults.BatchSize,
	}
	if r.BatchSize > 0 {
		opts.BatchSize = r.BatchSize
	}

	return filter, opts
}

// PeriodRequest is an inclusive reporting period.
type PeriodRequest struct {
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
	PeriodType string    `json:"period_type,omitempty" validate:"omitempty,oneof=month quarter year custom"`
}

// ToPeriod converts to a domain period, defaulting the type to custom.
func (r PeriodRequest) ToPeriod() domain.Period {
	pt := domain.PeriodType(r.PeriodType)
	if pt == "" {
		pt = domain.PeriodCustom
	}
	return domain.Period{Start: r.StartDate, End: r.EndDate, Type: pt}
}

// GenerateStatementRequest generates a P&L statement.
type GenerateStatementRequest struct {
	PeriodRequest

	Chart               *domain.ChartOfAccounts `json:"chart,omitempty"`
	SalesTax            *domain.SalesTaxConfig  `json:"sales_tax,omitempty"`
	IncomeTax           *domain.IncomeTaxConfig `json:"income_tax,omitempty"`
	CompareWithPrevious bool                    `json:"compare_previous"`
	CompareWithBudget   bool                    `json:"compare_budget"`
	Persist             bool                    `json:"persist"`
}

// ToUseCaseInput converts to a period and statement options.
func (r *GenerateStatementRequest) ToUseCaseInput() (domain.Period, usecase.StatementOptions) {
	return r.ToPeriod(), usecase.StatementOptions{
		Chart:               r.Chart,
		SalesTax:            r.SalesTax,
		IncomeTax:           r.IncomeTax,
		CompareWithPrevious: r.CompareWithPrevious,
		CompareWithBudget:   r.CompareWithBudget,
		Persist:             r.Persist,
	}
}

// ClassifyItem is one transaction to classify.
type ClassifyItem struct {
	AccountCode string   `json:"account_code" validate:"required_without_all=AccountName Description"`
	AccountName string   `json:"account_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ClassifyRequest classifies a batch of transactions.
type ClassifyRequest struct {
	Items []ClassifyItem `json:"items" validate:"required,min=1,max=1000,dive"`
}

// ToUseCaseInput converts to classifier inputs.
func (r *ClassifyRequest) ToUseCaseInput() []domain.ClassifyInput {
	inputs := make([]domain.ClassifyInput, len(r.Items))
	for i, item := range r.Items {
		inputs[i] = domain.ClassifyInput{
			AccountCode: item.AccountCode,
			AccountName: item.AccountName,
			Description: item.Description,
			Tags:        item.Tags,
		}
	}
	return inputs
}

// ClassifyOtherRequest classifies a non-operating account.
type ClassifyOtherRequest struct {
	AccountCode     string `json:"account_code" validate:"required"`
	AccountName     string `json:"account_name,omitempty"`
	AccountCategory string `json:"account_category,omitempty"`
}

// SalesTaxRequest computes sales tax for a period.
type SalesTaxRequest struct {
	PeriodRequest

	PayableAccountCode string `json:"payable_account_code,omitempty"`
}

// IncomeTaxRequest computes income tax on earnings before tax.
type IncomeTaxRequest struct {
	domain.IncomeTaxConfig

	EarningsBeforeTax decimal.Decimal `json:"earnings_before_tax"`
}
