package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerrecon/internal/domain"
)

// StatementRepository implements usecase.StatementRepository. Statements are
// stored whole as JSONB with the period and net income broken out for lookup.
type StatementRepository struct {
	db pgxQuerier
}

// NewStatementRepository creates a new StatementRepository.
func NewStatementRepository(pool *pgxpool.Pool) *StatementRepository {
	return &StatementRepository{db: pool}
}

// Save inserts or replaces a statement.
func (r *StatementRepository) Save(ctx context.Context, statement *domain.PLStatement) error {
	body, err := json.Marshal(statement)
	if err != nil {
		return fmt.Errorf("encode statement: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO pl_statements (id, period_start, period_end, period_type, net_income, body, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET period_start = EXCLUDED.period_start, period_end = EXCLUDED.period_end,
		    period_type = EXCLUDED.period_type, net_income = EXCLUDED.net_income,
		    body = EXCLUDED.body, generated_at = EXCLUDED.generated_at`,
		statement.ID,
		statement.Period.Start,
		statement.Period.End,
		string(statement.Period.Type),
		statement.Totals.NetIncome.String(),
		body,
		statement.GeneratedAt,
	)

	return err
}

// GetByID retrieves a statement by ID.
func (r *StatementRepository) GetByID(ctx context.Context, id string) (*domain.PLStatement, error) {
	row := r.db.QueryRow(ctx, `SELECT body FROM pl_statements WHERE id = $1`, id)
	return scanStatement(row)
}

// FindByPeriod returns the most recently generated statement for period.
// Bounds are compared at second precision.
func (r *StatementRepository) FindByPeriod(ctx context.Context, period domain.Period) (*domain.PLStatement, error) {
	row := r.db.QueryRow(ctx, `
		SELECT body FROM pl_statements
		WHERE date_trunc('second', period_start) = date_trunc('second', $1::timestamptz)
		  AND date_trunc('second', period_end) = date_trunc('second', $2::timestamptz)
		ORDER BY generated_at DESC
		LIMIT 1`, period.Start, period.End)
	return scanStatement(row)
}

// FindBudget returns the budgeted totals for period.
func (r *StatementRepository) FindBudget(ctx context.Context, period domain.Period) (*domain.StatementTotals, error) {
	var body []byte
	err := r.db.QueryRow(ctx, `
		SELECT totals FROM budgets
		WHERE date_trunc('second', period_start) = date_trunc('second', $1::timestamptz)
		  AND date_trunc('second', period_end) = date_trunc('second', $2::timestamptz)`,
		period.Start, period.End).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("budget %w", domain.ErrNotFound)
		}
		return nil, err
	}

	var totals domain.StatementTotals
	if err := json.Unmarshal(body, &totals); err != nil {
		return nil, fmt.Errorf("decode budget: %w", err)
	}

	return &totals, nil
}

func scanStatement(row pgx.Row) (*domain.PLStatement, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStatementNotFound
		}
		return nil, err
	}

	var stmt domain.PLStatement
	if err := json.Unmarshal(body, &stmt); err != nil {
		return nil, fmt.Errorf("decode statement: %w", err)
	}

	return &stmt, nil
}
