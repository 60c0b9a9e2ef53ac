package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/ledgerrecon/internal/domain"
)

// ReconciliationConfig wires a ReconciliationUseCase.
type ReconciliationConfig struct {
	Owners    OwnerRepository
	Entries   LedgerEntryRepository
	Audit     AuditSink
	Alerter   Alerter
	Locker    Locker
	IDGen     IDGenerator
	Metrics   ReconciliationMetrics
	Clock     Clock
	Logger    zerolog.Logger
	Mode      domain.ReplayMode
	BatchSize int
}

// ReconciliationUseCase rebuilds balances from the entry log and corrects drift
// in the cached snapshots.
type ReconciliationUseCase struct {
	owners    OwnerRepository
	entries   LedgerEntryRepository
	audit     AuditSink
	alerter   Alerter
	locker    Locker
	idGen     IDGenerator
	metrics   ReconciliationMetrics
	now       Clock
	logger    zerolog.Logger
	mode      domain.ReplayMode
	batchSize int
}

// NewReconciliationUseCase creates a new reconciliation use case.
func NewReconciliationUseCase(cfg ReconciliationConfig) *ReconciliationUseCase {
	if cfg.Locker == nil {
		cfg.Locker = NewKeyedLocker()
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopReconciliationMetrics{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.ReplaySnapshotPriority
	}

	return &ReconciliationUseCase{
		owners:    cfg.Owners,
		entries:   cfg.Entries,
		audit:     cfg.Audit,
		alerter:   cfg.Alerter,
		locker:    cfg.Locker,
		idGen:     cfg.IDGen,
		metrics:   cfg.Metrics,
		now:       cfg.Clock,
		logger:    cfg.Logger,
		mode:      cfg.Mode,
		batchSize: cfg.BatchSize,
	}
}

// ReconcileOptions controls what happens when a discrepancy is found.
type ReconcileOptions struct {
	AutoCorrect        bool
	AlertOnDiscrepancy bool
}

// ReconcileAllOptions adds batching to ReconcileOptions.
type ReconcileAllOptions struct {
	ReconcileOptions

	BatchSize int
}

// ReconciliationResult is the outcome of reconciling one owner.
type ReconciliationResult struct {
	CheckedAt     time.Time                     `json:"checked_at"`
	Discrepancy   *domain.Discrepancy           `json:"discrepancy,omitempty"`
	OwnerID       string                        `json:"owner_id"`
	RunID         string                        `json:"run_id"`
	Method        domain.ReplayMethod           `json:"method"`
	Skipped       []*domain.MalformedEntryError `json:"-"`
	SkippedIDs    []string                      `json:"skipped_entries,omitempty"`
	Cached        domain.AccountBalanceSnapshot `json:"cached"`
	Reconstructed domain.AccountBalanceSnapshot `json:"reconstructed"`
	Version       int64                         `json:"version"`
	Reconciled    bool                          `json:"reconciled"`
	Corrected     bool                          `json:"corrected"`
	Alerted       bool                          `json:"alerted"`
}

// OwnerError is one owner's failure inside a batch.
type OwnerError struct {
	Err     error  `json:"-"`
	OwnerID string `json:"owner_id"`
	Error   string `json:"error"`
}

// BatchResult aggregates a ReconcileAll run.
type BatchResult struct {
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at"`
	RunID         string                  `json:"run_id"`
	Discrepant    []*ReconciliationResult `json:"discrepant"`
	Errors        []OwnerError            `json:"errors"`
	Duration      time.Duration           `json:"duration"`
	Total         int                     `json:"total"`
	Reconciled    int                     `json:"reconciled"`
	Discrepancies int                     `json:"discrepancies"`
	Corrected     int                     `json:"corrected"`
	Conflicts     int                     `json:"conflicts"`
	Failed        int                     `json:"failed"`
	Cancelled     bool                    `json:"cancelled"`
}

func (b *BatchResult) add(res *ReconciliationResult, ownerID string, err error) {
	b.Total++

	if res != nil {
		switch {
		case res.Reconciled:
			b.Reconciled++
		default:
			b.Discrepancies++
			b.Discrepant = append(b.Discrepant, res)
		}
		if res.Corrected {
			b.Corrected++
		}
	}

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			b.Conflicts++
		}
		b.Failed++
		b.Errors = append(b.Errors, OwnerError{OwnerID: ownerID, Err: err, Error: err.Error()})
	}
}

// ReconcileOne reconciles a single owner. On a lost compare-and-swap the result is
// returned together with an error wrapping domain.ErrConcurrentUpdate.
func (uc *ReconciliationUseCase) ReconcileOne(ctx context.Context, ownerID string, opts ReconcileOptions) (*ReconciliationResult, error) {
	owner, err := uc.owners.GetByID(ctx, ownerID)
	if err != nil {
		uc.metrics.RecordOutcome(OutcomeFailed)
		return nil, fmt.Errorf("load owner %s: %w", ownerID, err)
	}

	return uc.reconcile(ctx, uc.idGen.Generate(), owner, opts)
}

// ReconcileAll walks every owner matching filter in id order, reconciling each page
// with bounded parallelism. Per-owner failures are collected, not returned. A
// cancelled ctx stops the walk between owners and returns the partial result with
// ctx.Err().
func (uc *ReconciliationUseCase) ReconcileAll(ctx context.Context, filter domain.OwnerFilter, opts ReconcileAllOptions) (*BatchResult, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = uc.batchSize
	}

	result := &BatchResult{
		RunID:      uc.idGen.Generate(),
		StartedAt:  uc.now(),
		Discrepant: []*ReconciliationResult{},
		Errors:     []OwnerError{},
	}

	log := uc.logger.With().Str("run_id", result.RunID).Logger()
	log.Info().Int("batch_size", batchSize).Bool("auto_correct", opts.AutoCorrect).Msg("reconciliation run started")

	finish := func(err error) (*BatchResult, error) {
		result.FinishedAt = uc.now()
		result.Duration = result.FinishedAt.Sub(result.StartedAt)
		uc.metrics.RecordBatch(result.Duration, result.Total)

		log.Info().
			Int("total", result.Total).
			Int("reconciled", result.Reconciled).
			Int("discrepancies", result.Discrepancies).
			Int("corrected", result.Corrected).
			Int("failed", result.Failed).
			Bool("cancelled", result.Cancelled).
			Dur("duration", result.Duration).
			Msg("reconciliation run finished")

		return result, err
	}

	var mu sync.Mutex
	cursor := filter

	for {
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			return finish(err)
		}

		owners, err := uc.owners.List(ctx, cursor, batchSize)
		if err != nil {
			log.Error().Err(err).Str("after_id", cursor.AfterID).Msg("failed to list owners")
			return finish(fmt.Errorf("list owners: %w", err))
		}
		if len(owners) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(batchSize)

		for _, owner := range owners {
			if ctx.Err() != nil {
				break
			}

			g.Go(func() error {
				res, err := uc.reconcile(ctx, result.RunID, owner, opts.ReconcileOptions)

				mu.Lock()
				result.add(res, owner.ID, err)
				mu.Unlock()

				return nil
			})
		}
		_ = g.Wait()

		if len(owners) < batchSize {
			break
		}
		cursor.AfterID = owners[len(owners)-1].ID
	}

	if err := ctx.Err(); err != nil {
		result.Cancelled = true
		return finish(err)
	}

	return finish(nil)
}

// reconcile compares the owner's cached balance with a replay of its entries.
// owner.Version is the token read before the entries were loaded.
func (uc *ReconciliationUseCase) reconcile(ctx context.Context, runID string, owner *domain.Owner, opts ReconcileOptions) (*ReconciliationResult, error) {
	log := uc.logger.With().Str("run_id", runID).Str("owner_id", owner.ID).Logger()

	entries, err := uc.entries.ListByOwner(ctx, owner.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load ledger entries")
		uc.metrics.RecordOutcome(OutcomeFailed)
		return nil, fmt.Errorf("load entries for owner %s: %w", owner.ID, err)
	}

	replay := domain.Reconstruct(owner.ID, entries, uc.mode)

	result := &ReconciliationResult{
		CheckedAt:     uc.now(),
		OwnerID:       owner.ID,
		RunID:         runID,
		Method:        replay.Method,
		Skipped:       replay.Skipped,
		Cached:        owner.Balance,
		Reconstructed: replay.Snapshot,
		Version:       owner.Version,
	}

	for _, s := range replay.Skipped {
		result.SkippedIDs = append(result.SkippedIDs, s.EntryID)
		log.Warn().Str("entry_id", s.EntryID).Str("reason", s.Reason).Msg("skipped malformed entry")
	}

	diff, exceeds := domain.Compare(owner.Balance, replay.Snapshot)
	if !exceeds {
		result.Reconciled = true
		uc.metrics.RecordOutcome(OutcomeReconciled)
		return result, nil
	}

	result.Discrepancy = &diff
	uc.metrics.RecordOutcome(OutcomeDiscrepancy)

	log.Warn().
		Str("delta_pending", diff.Pending.String()).
		Str("delta_advance", diff.Advance.String()).
		Str("delta_current", diff.Current.String()).
		Str("method", string(replay.Method)).
		Msg("balance discrepancy detected")

	action := domain.AuditActionDiscrepancy
	reason := "cached balance differs from ledger replay"

	var correctErr error
	if opts.AutoCorrect {
		correctErr = uc.correct(ctx, owner, result)
		switch {
		case correctErr == nil:
			action = domain.AuditActionCorrection
			reason = "cached balance replaced by ledger replay"
		case errors.Is(correctErr, domain.ErrConcurrentUpdate):
			action = domain.AuditActionConflict
			reason = "correction skipped: balance changed during reconciliation"
		default:
			reason = "correction failed: " + correctErr.Error()
		}
	}

	uc.recordAudit(ctx, log, &domain.AuditRecord{
		CreatedAt:   uc.now(),
		EntityID:    owner.ID,
		RunID:       runID,
		Action:      action,
		Reason:      reason,
		Before:      owner.Balance,
		After:       replay.Snapshot,
		Discrepancy: diff,
	})

	if opts.AlertOnDiscrepancy {
		uc.sendAlert(ctx, log, result)
	}

	return result, correctErr
}

// correct writes the reconstructed snapshot through the compare-and-swap primitive
// while holding the owner's write lock.
func (uc *ReconciliationUseCase) correct(ctx context.Context, owner *domain.Owner, result *ReconciliationResult) error {
	unlock, err := uc.locker.Lock(ctx, owner.ID)
	if err != nil {
		uc.metrics.RecordOutcome(OutcomeFailed)
		return fmt.Errorf("lock owner %s: %w", owner.ID, err)
	}
	defer unlock()

	version, err := uc.owners.CompareAndSwapBalance(ctx, owner.ID, owner.Version, result.Reconstructed, uc.now())
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			uc.metrics.RecordOutcome(OutcomeConflict)
			uc.logger.Warn().Str("owner_id", owner.ID).Int64("expected_version", owner.Version).Msg("balance changed during reconciliation")
			return fmt.Errorf("correct owner %s: %w", owner.ID, err)
		}
		uc.metrics.RecordOutcome(OutcomeFailed)
		uc.logger.Error().Err(err).Str("owner_id", owner.ID).Msg("failed to write corrected balance")
		return fmt.Errorf("correct owner %s: %w", owner.ID, err)
	}

	result.Corrected = true
	result.Version = version
	uc.metrics.RecordOutcome(OutcomeCorrected)

	return nil
}

func (uc *ReconciliationUseCase) recordAudit(ctx context.Context, log zerolog.Logger, record *domain.AuditRecord) {
	if uc.audit == nil {
		return
	}
	if err := uc.audit.Record(ctx, record); err != nil {
		log.Error().Err(err).Str("action", string(record.Action)).Msg("failed to record audit")
	}
}

func (uc *ReconciliationUseCase) sendAlert(ctx context.Context, log zerolog.Logger, result *ReconciliationResult) {
	if uc.alerter == nil {
		return
	}
	if err := uc.alerter.Alert(ctx, result); err != nil {
		log.Error().Err(err).Msg("failed to send discrepancy alert")
		return
	}
	result.Alerted = true
}

type noopReconciliationMetrics struct{}

func (noopReconciliationMetrics) RecordOutcome(string)           {}
func (noopReconciliationMetrics) RecordBatch(time.Duration, int) {}
