// Package audit records reconciliation findings behind a circuit breaker.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iho/ledgerrecon/internal/domain"
	"github.com/iho/ledgerrecon/internal/usecase"
)

// ErrSinkUnavailable is returned while the breaker is open.
var ErrSinkUnavailable = errors.New("audit sink unavailable")

// Metrics records audit writes.
type Metrics interface {
	RecordAudit(action string, err error)
}

// Config configures a Sink.
type Config struct {
	Repo        usecase.AuditRepository
	IDGen       usecase.IDGenerator
	Metrics     Metrics
	Logger      zerolog.Logger
	Clock       usecase.Clock
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Sink implements usecase.AuditSink over an AuditRepository.
type Sink struct {
	repo    usecase.AuditRepository
	idGen   usecase.IDGenerator
	metrics Metrics
	clock   usecase.Clock
	cb      *gobreaker.CircuitBreaker
}

// NewSink creates a Sink. The breaker opens after MaxFailures consecutive
// failures and half-opens after OpenTimeout.
func NewSink(cfg Config) *Sink {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}

	logger := cfg.Logger
	maxFailures := cfg.MaxFailures

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("audit breaker state changed")
		},
	})

	return &Sink{
		repo:    cfg.Repo,
		idGen:   cfg.IDGen,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
		cb:      cb,
	}
}

// Record stores record, assigning an ID and timestamp when missing.
func (s *Sink) Record(ctx context.Context, record *domain.AuditRecord) error {
	if record.ID == "" && s.idGen != nil {
		record.ID = s.idGen.Generate()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.clock()
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.repo.Create(ctx, record)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}

	if s.metrics != nil {
		s.metrics.RecordAudit(string(record.Action), err)
	}

	return err
}

// List returns audit records matching filter. Reads bypass the breaker.
func (s *Sink) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error) {
	return s.repo.List(ctx, filter)
}

// State reports the breaker state, for health output.
func (s *Sink) State() string {
	return s.cb.State().String()
}
