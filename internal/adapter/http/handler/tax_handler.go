package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
)

// TaxService is the tax use case as the handler sees it.
type TaxService interface {
	SalesTax(ctx context.Context, period domain.Period, cfg domain.SalesTaxConfig) (*domain.SalesTaxResult, error)
	IncomeTax(ebt decimal.Decimal, cfg domain.IncomeTaxConfig) (domain.IncomeTaxResult, error)
}

// TaxHandler handles tax computation requests.
type TaxHandler struct {
	service TaxService
}

// NewTaxHandler creates a new TaxHandler.
func NewTaxHandler(service TaxService) *TaxHandler {
	return &TaxHandler{service: service}
}

// SalesTax computes sales tax for a period.
func (h *TaxHandler) SalesTax(w http.ResponseWriter, r *http.Request) {
	var req dto.SalesTaxRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.SalesTax(r.Context(), req.ToPeriod(), domain.SalesTaxConfig{
		PayableAccountCode: req.PayableAccountCode,
	})
	if err != nil {
		writeDomainError(w, "failed to compute sales tax", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// IncomeTax computes income tax on the given earnings before tax.
func (h *TaxHandler) IncomeTax(w http.ResponseWriter, r *http.Request) {
	var req dto.IncomeTaxRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.IncomeTax(req.EarningsBeforeTax, req.IncomeTaxConfig)
	if err != nil {
		writeDomainError(w, "failed to compute income tax", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
