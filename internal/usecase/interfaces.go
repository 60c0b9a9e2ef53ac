package usecase

import (
	"context"
	"time"

	"github.com/iho/ledgerrecon/internal/domain"
)

// OwnerRepository defines data access for owners and their cached balances.
type OwnerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Owner, error)
	// List returns up to limit owners with id greater than filter.AfterID, ordered by id.
	List(ctx context.Context, filter domain.OwnerFilter, limit int) ([]*domain.Owner, error)
	// CompareAndSwapBalance writes snapshot only if the stored version still equals
	// expectedVersion, returning the new version or domain.ErrConcurrentUpdate.
	CompareAndSwapBalance(ctx context.Context, id string, expectedVersion int64, snapshot domain.AccountBalanceSnapshot, at time.Time) (int64, error)
}

// LedgerEntryRepository defines read access to the posted entry log.
type LedgerEntryRepository interface {
	// ListByOwner returns all entries for an owner ordered by posted_at, id.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.LedgerEntry, error)
}

// TransactionRepository defines read access to accounting transactions.
type TransactionRepository interface {
	Find(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// SalesOrderRepository defines read access to sales orders.
type SalesOrderRepository interface {
	ListConfirmed(ctx context.Context, period domain.Period) ([]*domain.SalesOrder, error)
}

// InventoryRepository defines read access to current stock.
type InventoryRepository interface {
	CurrentStock(ctx context.Context) ([]domain.StockItem, error)
}

// StatementRepository stores generated statements and budgets for comparison.
type StatementRepository interface {
	Save(ctx context.Context, statement *domain.PLStatement) error
	GetByID(ctx context.Context, id string) (*domain.PLStatement, error)
	// FindByPeriod returns domain.ErrStatementNotFound when no statement covers period.
	FindByPeriod(ctx context.Context, period domain.Period) (*domain.PLStatement, error)
	FindBudget(ctx context.Context, period domain.Period) (*domain.StatementTotals, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditSink records reconciliation findings. Failures are logged, never propagated.
type AuditSink interface {
	Record(ctx context.Context, record *domain.AuditRecord) error
}

// AuditRepository defines data access for audit records.
type AuditRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error)
}

// Alerter escalates a discrepancy. Failures are logged, never propagated.
type Alerter interface {
	Alert(ctx context.Context, result *ReconciliationResult) error
}

// Locker serializes balance writes per owner.
type Locker interface {
	// Lock blocks until the owner's lock is held or ctx is done.
	Lock(ctx context.Context, ownerID string) (unlock func(), err error)
}

// RuleSetProvider returns the current compiled classification rules and chart of accounts.
// Implementations may reload both at any time.
type RuleSetProvider interface {
	Classifier() (*domain.Classifier, error)
	Chart() domain.ChartOfAccounts
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock func() time.Time

// ReconciliationMetrics records reconciliation outcomes.
type ReconciliationMetrics interface {
	RecordOutcome(outcome string)
	RecordBatch(duration time.Duration, total int)
}

// StatementMetrics records statement generation.
type StatementMetrics interface {
	RecordGeneration(duration time.Duration)
	RecordStageFailure(stage string)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
