package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerrecon/internal/domain"
)

var ownerCols = []string{"id", "name", "kind", "pending_balance", "advance_balance", "current_balance", "version", "updated_at"}

func TestOwnerRepositoryGetByID(t *testing.T) {
	pool := newMockPool(t)
	repo := newOwnerRepository(pool, nil)
	updated := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	pool.ExpectQuery("FROM owners WHERE id").
		WithArgs("cust-1").
		WillReturnRows(pgxmock.NewRows(ownerCols).
			AddRow("cust-1", "Acme", "customer", "300.0000", "0.0000", "300.0000", int64(4), updated))

	owner, err := repo.GetByID(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if owner.Kind != domain.OwnerKindCustomer || owner.Version != 4 {
		t.Fatalf("unexpected owner %+v", owner)
	}
	assertDecimal(t, "pending", owner.Balance.Pending, "300")
	assertDecimal(t, "current", owner.Balance.Current, "300")
	assertExpectations(t, pool)
}

func TestOwnerRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := newOwnerRepository(pool, nil)

	pool.ExpectQuery("FROM owners WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestOwnerRepositoryListBuildsKeysetQuery(t *testing.T) {
	pool := newMockPool(t)
	repo := newOwnerRepository(pool, nil)
	updated := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	pool.ExpectQuery(`WHERE id > \$1 AND kind = ANY\(\$2\) ORDER BY id LIMIT \$3`).
		WithArgs("cust-2", []string{"customer"}, 2).
		WillReturnRows(pgxmock.NewRows(ownerCols).
			AddRow("cust-3", "", "customer", "0", "0", "0", int64(1), updated).
			AddRow("cust-4", "", "customer", "10", "0", "10", int64(2), updated))

	owners, err := repo.List(context.Background(), domain.OwnerFilter{
		AfterID: "cust-2",
		Kinds:   []domain.OwnerKind{domain.OwnerKindCustomer},
	}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(owners) != 2 || owners[0].ID != "cust-3" || owners[1].ID != "cust-4" {
		t.Fatalf("unexpected owners %+v", owners)
	}
	assertExpectations(t, pool)
}

func TestOwnerRepositoryListRejectsBadNumeric(t *testing.T) {
	pool := newMockPool(t)
	repo := newOwnerRepository(pool, nil)

	pool.ExpectQuery("FROM owners ORDER BY id").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(ownerCols).
			AddRow("cust-1", "", "customer", "NaN?", "0", "0", int64(1), time.Now()))

	if _, err := repo.List(context.Background(), domain.OwnerFilter{}, 10); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOwnerRepositoryCompareAndSwapBalance(t *testing.T) {
	snapshot := domain.NewSnapshot(decimal.NewFromInt(250), decimal.Zero)
	at := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		setup       func(pool pgxmock.PgxPoolIface)
		wantVersion int64
		wantErr     error
	}{
		{
			name: "swaps when version matches",
			setup: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectQuery("UPDATE owners").
					WithArgs("cust-1", int64(3), "250", "0", "250", at).
					WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(4)))
			},
			wantVersion: 4,
		},
		{
			name: "stale version is a conflict",
			setup: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectQuery("UPDATE owners").
					WithArgs("cust-1", int64(3), "250", "0", "250", at).
					WillReturnError(pgx.ErrNoRows)
				pool.ExpectQuery("SELECT EXISTS").
					WithArgs("cust-1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr: domain.ErrConcurrentUpdate,
		},
		{
			name: "vanished owner is not found",
			setup: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectQuery("UPDATE owners").
					WithArgs("cust-1", int64(3), "250", "0", "250", at).
					WillReturnError(pgx.ErrNoRows)
				pool.ExpectQuery("SELECT EXISTS").
					WithArgs("cust-1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: domain.ErrOwnerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			tt.setup(pool)
			repo := newOwnerRepository(pool, nil)

			version, err := repo.CompareAndSwapBalance(context.Background(), "cust-1", 3, snapshot, at)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if version != tt.wantVersion {
				t.Fatalf("version = %d, want %d", version, tt.wantVersion)
			}
			assertExpectations(t, pool)
		})
	}
}

func TestOwnerRepositoryCompareAndSwapRetriesDeadlock(t *testing.T) {
	pool := newMockPool(t)
	repo := newOwnerRepository(pool, newFastRetrier(2))

	snapshot := domain.NewSnapshot(decimal.NewFromInt(5), decimal.Zero)
	at := time.Now().UTC()

	pool.ExpectQuery("UPDATE owners").
		WithArgs("cust-1", int64(1), "5", "0", "5", at).
		WillReturnError(&pgconn.PgError{Code: pgErrDeadlock})
	pool.ExpectQuery("UPDATE owners").
		WithArgs("cust-1", int64(1), "5", "0", "5", at).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(2)))

	version, err := repo.CompareAndSwapBalance(context.Background(), "cust-1", 1, snapshot, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 2 {
		t.Fatalf("version = %d, want 2", version)
	}
	assertExpectations(t, pool)
}
