package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
	"github.com/iho/ledgerrecon/internal/usecase"
)

// ReconciliationService is the reconciliation use case as the handler sees it.
type ReconciliationService interface {
	ReconcileOne(ctx context.Context, ownerID string, opts usecase.ReconcileOptions) (*usecase.ReconciliationResult, error)
	ReconcileAll(ctx context.Context, filter domain.OwnerFilter, opts usecase.ReconcileAllOptions) (*usecase.BatchResult, error)
}

// ReconciliationHandler handles balance reconciliation requests.
type ReconciliationHandler struct {
	service  ReconciliationService
	defaults usecase.ReconcileAllOptions
}

// NewReconciliationHandler creates a ReconciliationHandler. defaults apply
// to any option a request leaves unset.
func NewReconciliationHandler(service ReconciliationService, defaults usecase.ReconcileAllOptions) *ReconciliationHandler {
	return &ReconciliationHandler{service: service, defaults: defaults}
}

// ReconcileOwner reconciles a single owner. A lost correction race answers
// 409 with the reconciliation result as the body.
func (h *ReconciliationHandler) ReconcileOwner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing owner ID", "")
		return
	}

	var req dto.ReconcileOwnerRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.ReconcileOne(r.Context(), id, req.ToOptions(h.defaults.ReconcileOptions))
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) && result != nil {
			writeJSON(w, http.StatusConflict, result)
			return
		}
		writeDomainError(w, "failed to reconcile owner", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ReconcileAll reconciles every owner matching the request filter. A run cut
// short by cancellation or deadline answers with the partial result as the
// body and the status of the context error.
func (h *ReconciliationHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileAllRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	filter, opts := req.ToUseCaseInput(h.defaults)
	result, err := h.service.ReconcileAll(r.Context(), filter, opts)
	if err != nil {
		if result != nil && result.Cancelled {
			writeJSON(w, mapDomainError(err), result)
			return
		}
		writeDomainError(w, "failed to reconcile owners", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
