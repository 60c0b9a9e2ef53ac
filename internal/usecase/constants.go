package usecase

import "time"

const (
	// DefaultBatchSize bounds both the owner page size and concurrent reconciliations.
	DefaultBatchSize = 100

	// DefaultStageTimeout bounds each statement stage's data fetch
	DefaultStageTimeout = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyProcessing is stored under a key while its first request is in flight.
	IdempotencyProcessing = "processing"
)

// Reconciliation outcomes, used as metric labels.
const (
	OutcomeReconciled  = "reconciled"
	OutcomeDiscrepancy = "discrepancy"
	OutcomeCorrected   = "corrected"
	OutcomeConflict    = "conflict"
	OutcomeFailed      = "failed"
)

// Statement stages.
const (
	StageRevenue    = "revenue"
	StageCOGS       = "cogs"
	StageOpex       = "operating_expenses"
	StageOther      = "other_income_expense"
	StageSalesTax   = "sales_tax"
	StageComparison = "comparison"
)
