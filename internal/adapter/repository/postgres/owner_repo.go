package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerrecon/internal/domain"
)

const ownerColumns = `id, name, kind, pending_balance::text, advance_balance::text, current_balance::text, version, updated_at`

// OwnerRepository implements usecase.OwnerRepository.
type OwnerRepository struct {
	db      pgxQuerier
	retrier *Retrier
}

// NewOwnerRepository creates a new OwnerRepository. Balance writes are retried
// with retrier on deadlocks and serialization failures.
func NewOwnerRepository(pool *pgxpool.Pool, retrier *Retrier) *OwnerRepository {
	return newOwnerRepository(pool, retrier)
}

func newOwnerRepository(db pgxQuerier, retrier *Retrier) *OwnerRepository {
	return &OwnerRepository{db: db, retrier: retrier}
}

// GetByID retrieves an owner by ID.
func (r *OwnerRepository) GetByID(ctx context.Context, id string) (*domain.Owner, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id)

	owner, err := scanOwner(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOwnerNotFound
		}
		return nil, err
	}

	return owner, nil
}

// List returns up to limit owners with id greater than filter.AfterID, ordered by id.
func (r *OwnerRepository) List(ctx context.Context, filter domain.OwnerFilter, limit int) ([]*domain.Owner, error) {
	var (
		p     placeholders
		where []string
	)

	if filter.AfterID != "" {
		where = append(where, "id > "+p.add(filter.AfterID))
	}
	if len(filter.IDs) > 0 {
		where = append(where, "id = ANY("+p.add(filter.IDs)+")")
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		where = append(where, "kind = ANY("+p.add(kinds)+")")
	}
	if filter.UpdatedBefore != nil {
		where = append(where, "updated_at < "+p.add(*filter.UpdatedBefore))
	}

	query := `SELECT ` + ownerColumns + ` FROM owners`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id LIMIT ` + p.add(limit)

	rows, err := r.db.Query(ctx, query, p.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]*domain.Owner, 0, limit)
	for rows.Next() {
		owner, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}

	return owners, rows.Err()
}

// CompareAndSwapBalance writes snapshot only if the stored version still equals
// expectedVersion and returns the new version.
func (r *OwnerRepository) CompareAndSwapBalance(ctx context.Context, id string, expectedVersion int64, snapshot domain.AccountBalanceSnapshot, at time.Time) (int64, error) {
	var version int64

	op := func() error {
		err := r.db.QueryRow(ctx, `
			UPDATE owners
			SET pending_balance = $3, advance_balance = $4, current_balance = $5,
			    version = version + 1, updated_at = $6
			WHERE id = $1 AND version = $2
			RETURNING version`,
			id,
			expectedVersion,
			snapshot.Pending.String(),
			snapshot.Advance.String(),
			snapshot.Current.String(),
			at,
		).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrStale(ctx, id)
		}
		return err
	}

	if err := r.retrier.Retry(ctx, "compare_and_swap_balance", op); err != nil {
		return 0, err
	}

	return version, nil
}

// missingOrStale tells a vanished owner apart from a version conflict.
func (r *OwnerRepository) missingOrStale(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM owners WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrOwnerNotFound
	}
	return domain.ErrConcurrentUpdate
}

func scanOwner(row pgx.Row) (*domain.Owner, error) {
	var (
		o                         domain.Owner
		kind                      string
		pending, advance, current string
	)

	if err := row.Scan(&o.ID, &o.Name, &kind, &pending, &advance, &current, &o.Version, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Kind = domain.OwnerKind(kind)

	var err error
	if o.Balance.Pending, err = parseDecimal("pending_balance", pending); err != nil {
		return nil, err
	}
	if o.Balance.Advance, err = parseDecimal("advance_balance", advance); err != nil {
		return nil, err
	}
	if o.Balance.Current, err = parseDecimal("current_balance", current); err != nil {
		return nil, err
	}

	return &o, nil
}
