package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
)

// EventLister reads alerts and statement events queued in the outbox.
type EventLister interface {
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
}

// EventHandler handles outbox event queries.
type EventHandler struct {
	lister EventLister
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(lister EventLister) *EventHandler {
	return &EventHandler{lister: lister}
}

// List returns the events of one owner or statement, newest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	aggregateType := chi.URLParam(r, "type")
	aggregateID := chi.URLParam(r, "id")

	if aggregateType != domain.AggregateTypeOwner && aggregateType != domain.AggregateTypeStatement {
		writeDomainError(w, "invalid query", domain.NewValidationError("type", "must be owner or statement"))
		return
	}

	limit := parseIntQuery(r, "limit", defaultAuditLimit)
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	events, err := h.lister.GetByAggregate(r.Context(), aggregateType, aggregateID, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list events", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EventListResponse{
		Events: dto.EventsFromDomain(events),
		Limit:  limit,
		Offset: offset,
	})
}
