package domain

import "time"

// Event types
const (
	EventTypeBalanceDiscrepancy = "balance.discrepancy"
	EventTypeBalanceCorrected   = "balance.corrected"
	EventTypeStatementGenerated = "statement.generated"
)

// Aggregate types
const (
	AggregateTypeOwner     = "owner"
	AggregateTypeStatement = "statement"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Payload       map[string]any
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Published     bool
}

// BalanceDiscrepancyEvent payload
type BalanceDiscrepancyEvent struct {
	OwnerID              string `json:"owner_id"`
	RunID                string `json:"run_id"`
	CachedPending        string `json:"cached_pending"`
	CachedAdvance        string `json:"cached_advance"`
	ReconstructedPending string `json:"reconstructed_pending"`
	ReconstructedAdvance string `json:"reconstructed_advance"`
	DeltaCurrent         string `json:"delta_current"`
	EventAt              string `json:"event_at"`
	Corrected            bool   `json:"corrected"`
}

// StatementGeneratedEvent payload
type StatementGeneratedEvent struct {
	StatementID string `json:"statement_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	NetIncome   string `json:"net_income"`
}
