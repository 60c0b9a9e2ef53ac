package usecase

import (
	"context"
	"time"

	"github.com/iho/ledgerrecon/internal/domain"
)

// OutboxAlerter queues discrepancy alerts in the outbox for asynchronous publishing.
type OutboxAlerter struct {
	outbox OutboxRepository
	idGen  IDGenerator
}

// NewOutboxAlerter creates a new OutboxAlerter.
func NewOutboxAlerter(outbox OutboxRepository, idGen IDGenerator) *OutboxAlerter {
	return &OutboxAlerter{outbox: outbox, idGen: idGen}
}

// Alert writes a balance.discrepancy event for result.
func (a *OutboxAlerter) Alert(ctx context.Context, result *ReconciliationResult) error {
	payload := domain.BalanceDiscrepancyEvent{
		OwnerID:              result.OwnerID,
		RunID:                result.RunID,
		CachedPending:        result.Cached.Pending.String(),
		CachedAdvance:        result.Cached.Advance.String(),
		ReconstructedPending: result.Reconstructed.Pending.String(),
		ReconstructedAdvance: result.Reconstructed.Advance.String(),
		Corrected:            result.Corrected,
		EventAt:              result.CheckedAt.Format(time.RFC3339),
	}
	if result.Discrepancy != nil {
		payload.DeltaCurrent = result.Discrepancy.Current.String()
	}

	eventType := domain.EventTypeBalanceDiscrepancy
	if result.Corrected {
		eventType = domain.EventTypeBalanceCorrected
	}

	return a.outbox.Create(ctx, &domain.OutboxEvent{
		ID:            a.idGen.Generate(),
		AggregateID:   result.OwnerID,
		AggregateType: domain.AggregateTypeOwner,
		EventType:     eventType,
		Payload:       domain.MarshalState(payload),
		CreatedAt:     time.Now().UTC(),
	})
}
