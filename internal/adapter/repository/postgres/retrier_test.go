package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerrecon/internal/domain"
)

func newFastRetrier(maxRetries int) *Retrier {
	return NewRetrierWithPolicy(zerolog.Nop(), RetryPolicy{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	})
}

func TestRetrier_RetriesDeadlock(t *testing.T) {
	r := newFastRetrier(2)

	attempts := 0
	err := r.Retry(context.Background(), "swap", func() error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: pgErrDeadlock}
		}
		return nil
	})

	if err != nil || attempts != 2 {
		t.Fatalf("expected success on attempt 2, got %d attempts, %v", attempts, err)
	}
}

func TestRetrier_GivesUpAfterMaxRetries(t *testing.T) {
	r := newFastRetrier(1)

	attempts := 0
	err := r.Retry(context.Background(), "swap", func() error {
		attempts++
		return &pgconn.PgError{Code: pgErrSerializationFailure}
	})

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || attempts != 2 {
		t.Fatalf("expected serialization failure after 2 attempts, got %d, %v", attempts, err)
	}
}

func TestRetrier_ConflictIsNotRetried(t *testing.T) {
	r := newFastRetrier(3)

	attempts := 0
	err := r.Retry(context.Background(), "swap", func() error {
		attempts++
		return fmt.Errorf("owner cust-1: %w", domain.ErrConcurrentUpdate)
	})

	if !errors.Is(err, domain.ErrConcurrentUpdate) || attempts != 1 {
		t.Fatalf("expected a single attempt with conflict, got %d, %v", attempts, err)
	}
}

func TestRetrier_NilRunsOnce(t *testing.T) {
	var r *Retrier

	attempts := 0
	err := r.Retry(context.Background(), "swap", func() error {
		attempts++
		return &pgconn.PgError{Code: pgErrDeadlock}
	})

	if err == nil || attempts != 1 {
		t.Fatalf("expected one attempt, got %d, %v", attempts, err)
	}
}

func TestNewRetrierWithPolicy_Defaults(t *testing.T) {
	r := NewRetrierWithPolicy(zerolog.Nop(), RetryPolicy{MaxRetries: 7})

	if r.policy.MaxRetries != 7 {
		t.Fatalf("expected explicit max retries to be kept, got %d", r.policy.MaxRetries)
	}
	if r.policy.InitialInterval != DefaultRetryPolicy.InitialInterval || r.policy.MaxElapsedTime != DefaultRetryPolicy.MaxElapsedTime {
		t.Fatalf("expected zero fields to use defaults, got %+v", r.policy)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: pgErrDeadlock}, true},
		{&pgconn.PgError{Code: pgErrSerializationFailure}, true},
		{fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgErrLockNotAvailable}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("other"), false},
	}

	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Fatalf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
