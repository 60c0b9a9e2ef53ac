package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerrecon/internal/domain"
)

// TaxUseCase computes sales and income tax. Rates are always supplied per call.
type TaxUseCase struct {
	orders       SalesOrderRepository
	transactions TransactionRepository
	logger       zerolog.Logger
}

// NewTaxUseCase creates a new TaxUseCase.
func NewTaxUseCase(orders SalesOrderRepository, transactions TransactionRepository, logger zerolog.Logger) *TaxUseCase {
	return &TaxUseCase{
		orders:       orders,
		transactions: transactions,
		logger:       logger,
	}
}

// SalesTax derives sales tax for period from order tax and payable account postings.
// Without a payable account only the order derivation is used.
func (uc *TaxUseCase) SalesTax(ctx context.Context, period domain.Period, cfg domain.SalesTaxConfig) (*domain.SalesTaxResult, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	orders, err := uc.orders.ListConfirmed(ctx, period)
	if err != nil {
		uc.logger.Error().Err(err).Msg("failed to load sales orders for sales tax")
		return nil, fmt.Errorf("load sales orders: %w", err)
	}

	var payable []*domain.Transaction
	if cfg.PayableAccountCode != "" {
		payable, err = uc.transactions.Find(ctx, domain.TransactionFilter{
			Period:       period,
			AccountCodes: []string{cfg.PayableAccountCode},
		})
		if err != nil {
			uc.logger.Error().Err(err).Str("account_code", cfg.PayableAccountCode).Msg("failed to load sales tax postings")
			return nil, fmt.Errorf("load sales tax postings: %w", err)
		}
	}

	result := domain.ComputeSalesTax(period, orders, payable)

	if !result.Tax.Delta().IsZero() {
		uc.logger.Debug().
			Str("primary", result.Tax.Primary.String()).
			Str("fallback", result.Tax.Fallback.String()).
			Str("source", result.Tax.Source).
			Msg("sales tax derivations differ")
	}

	return result, nil
}

// IncomeTax applies cfg to earnings before tax.
func (uc *TaxUseCase) IncomeTax(ebt decimal.Decimal, cfg domain.IncomeTaxConfig) (domain.IncomeTaxResult, error) {
	return domain.ComputeIncomeTax(ebt, cfg)
}
