package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/ledgerrecon/internal/domain"
)

var outboxCols = []string{"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published", "published_at"}

func TestOutboxRepositoryCreate(t *testing.T) {
	pool := newMockPool(t)
	repo := &OutboxRepository{db: pool}
	event := &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateID:   "cust-1",
		AggregateType: domain.AggregateTypeOwner,
		EventType:     domain.EventTypeBalanceDiscrepancy,
		Payload:       map[string]any{"owner_id": "cust-1"},
		CreatedAt:     time.Now().UTC(),
	}

	pool.ExpectExec("INSERT INTO outbox_events").
		WithArgs("evt-1", "cust-1", "owner", "balance.discrepancy", []byte(`{"owner_id":"cust-1"}`), event.CreatedAt, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, pool)
}

func TestOutboxRepositoryGetUnpublished(t *testing.T) {
	pool := newMockPool(t)
	repo := &OutboxRepository{db: pool}
	created := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	pool.ExpectQuery("WHERE published = FALSE").
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(outboxCols).
			AddRow("evt-1", "cust-1", "owner", "balance.discrepancy", []byte(`{"delta_current":"20"}`), created, false, (*time.Time)(nil)))

	events, err := repo.GetUnpublished(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Payload["delta_current"] != "20" || events[0].PublishedAt != nil {
		t.Fatalf("unexpected events %+v", events)
	}
	assertExpectations(t, pool)
}

func TestOutboxRepositoryMarkAndDelete(t *testing.T) {
	pool := newMockPool(t)
	repo := &OutboxRepository{db: pool}
	at := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	pool.ExpectExec("UPDATE outbox_events SET published = TRUE").
		WithArgs("evt-1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec("DELETE FROM outbox_events").
		WithArgs(at).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	if err := repo.MarkPublished(context.Background(), "evt-1", at); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.DeletePublished(context.Background(), at); err != nil {
		t.Fatalf("delete published: %v", err)
	}
	assertExpectations(t, pool)
}
