package handler

import (
	"context"
	"net/http"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
)

// ClassificationService is the classification use case as the handler sees it.
type ClassificationService interface {
	ClassifyBatch(ctx context.Context, inputs []domain.ClassifyInput) ([]domain.Classification, error)
	ClassifyOther(ctx context.Context, code, name, category string) (domain.OtherClassification, error)
}

// ClassificationHandler handles expense classification requests.
type ClassificationHandler struct {
	service ClassificationService
}

// NewClassificationHandler creates a new ClassificationHandler.
func NewClassificationHandler(service ClassificationService) *ClassificationHandler {
	return &ClassificationHandler{service: service}
}

// Classify classifies a batch of transactions.
func (h *ClassificationHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req dto.ClassifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	items, err := h.service.ClassifyBatch(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to classify", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ClassificationsResponse{Items: items})
}

// ClassifyOther maps an account to a non-operating income or expense line.
func (h *ClassificationHandler) ClassifyOther(w http.ResponseWriter, r *http.Request) {
	var req dto.ClassifyOtherRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.ClassifyOther(r.Context(), req.AccountCode, req.AccountName, req.AccountCategory)
	if err != nil {
		writeDomainError(w, "failed to classify", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
