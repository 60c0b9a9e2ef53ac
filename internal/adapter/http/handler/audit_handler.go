package handler

import (
	"context"
	"net/http"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditLister reads the reconciliation audit trail.
type AuditLister interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error)
}

// AuditHandler handles audit trail queries.
type AuditHandler struct {
	lister AuditLister
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(lister AuditLister) *AuditHandler {
	return &AuditHandler{lister: lister}
}

// List returns audit records, newest first. Filters: entity_id, run_id,
// action, start_date, end_date, limit, offset.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.AuditFilter{
		EntityID: q.Get("entity_id"),
		RunID:    q.Get("run_id"),
		Action:   domain.AuditAction(q.Get("action")),
		Limit:    parseIntQuery(r, "limit", defaultAuditLimit),
		Offset:   parseIntQuery(r, "offset", 0),
	}
	if filter.Limit <= 0 || filter.Limit > maxAuditLimit {
		filter.Limit = defaultAuditLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var err error
	if filter.StartDate, err = parseTimeQuery(r, "start_date"); err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	if filter.EndDate, err = parseTimeQuery(r, "end_date"); err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	records, err := h.lister.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list audit records", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditListResponse{
		Records: dto.AuditRecordsFromDomain(records),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}
