package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
	"github.com/iho/ledgerrecon/internal/usecase"
)

// StatementService is the statement use case as the handler sees it.
type StatementService interface {
	Generate(ctx context.Context, period domain.Period, opts usecase.StatementOptions) (*domain.PLStatement, error)
	GetStatement(ctx context.Context, id string) (*domain.PLStatement, error)
}

// StatementHandler handles P&L statement requests.
type StatementHandler struct {
	service StatementService
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(service StatementService) *StatementHandler {
	return &StatementHandler{service: service}
}

// Generate builds a statement for the requested period. Persisted statements
// answer 201, previews 200.
func (h *StatementHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateStatementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	period, opts := req.ToUseCaseInput()
	stmt, err := h.service.Generate(r.Context(), period, opts)
	if err != nil {
		writeDomainError(w, "failed to generate statement", err)
		return
	}

	status := http.StatusOK
	if opts.Persist {
		status = http.StatusCreated
	}
	writeJSON(w, status, stmt)
}

// Get retrieves a persisted statement by ID.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing statement ID", "")
		return
	}

	stmt, err := h.service.GetStatement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get statement", err)
		return
	}

	writeJSON(w, http.StatusOK, stmt)
}
