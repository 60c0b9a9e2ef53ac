package dto

import (
	"time"

	"github.com/iho/ledgerrecon/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ClassificationsResponse is the result of a batch classification, in request order.
type ClassificationsResponse struct {
	Items []domain.Classification `json:"items"`
}

// AuditRecordResponse represents an audit record in API responses.
type AuditRecordResponse struct {
	CreatedAt   time.Time                     `json:"created_at"`
	ID          string                        `json:"id"`
	EntityID    string                        `json:"entity_id"`
	RunID       string                        `json:"run_id"`
	Action      domain.AuditAction            `json:"action"`
	Reason      string                        `json:"reason,omitempty"`
	Before      domain.AccountBalanceSnapshot `json:"before"`
	After       domain.AccountBalanceSnapshot `json:"after"`
	Discrepancy domain.Discrepancy            `json:"discrepancy"`
}

// AuditRecordFromDomain converts a domain audit record to a response.
func AuditRecordFromDomain(r *domain.AuditRecord) *AuditRecordResponse {
	return &AuditRecordResponse{
		CreatedAt:   r.CreatedAt,
		ID:          r.ID,
		EntityID:    r.EntityID,
		RunID:       r.RunID,
		Action:      r.Action,
		Reason:      r.Reason,
		Before:      r.Before,
		After:       r.After,
		Discrepancy: r.Discrepancy,
	}
}

// AuditRecordsFromDomain converts domain audit records to responses.
func AuditRecordsFromDomain(records []*domain.AuditRecord) []*AuditRecordResponse {
	result := make([]*AuditRecordResponse, len(records))
	for i, r := range records {
		result[i] = AuditRecordFromDomain(r)
	}
	return result
}

// AuditListResponse is a page of audit records.
type AuditListResponse struct {
	Records []*AuditRecordResponse `json:"records"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

// EventResponse is an outbox event as reported to operators.
type EventResponse struct {
	CreatedAt     time.Time      `json:"created_at"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	Payload       map[string]any `json:"payload"`
	ID            string         `json:"id"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	EventType     string         `json:"event_type"`
	Published     bool           `json:"published"`
}

// EventsFromDomain converts outbox events to responses.
func EventsFromDomain(events []*domain.OutboxEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = &EventResponse{
			CreatedAt:     e.CreatedAt,
			PublishedAt:   e.PublishedAt,
			Payload:       e.Payload,
			ID:            e.ID,
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			EventType:     e.EventType,
			Published:     e.Published,
		}
	}
	return result
}

// EventListResponse is a page of outbox events.
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}
