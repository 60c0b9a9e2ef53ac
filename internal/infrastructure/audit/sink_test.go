package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/ledgerrecon/internal/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	err     error
	records []*domain.AuditRecord
	calls   int
}

func (r *fakeRepo) Create(ctx context.Context, record *domain.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records, nil
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type recordedAudit struct {
	action string
	err    error
}

type fakeMetrics struct {
	calls []recordedAudit
}

func (m *fakeMetrics) RecordAudit(action string, err error) {
	m.calls = append(m.calls, recordedAudit{action, err})
}

var fixedNow = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestSink(repo *fakeRepo, metrics *fakeMetrics) *Sink {
	return NewSink(Config{
		Repo:        repo,
		IDGen:       fixedID("audit-1"),
		Metrics:     metrics,
		Logger:      zerolog.Nop(),
		Clock:       func() time.Time { return fixedNow },
		MaxFailures: 2,
		OpenTimeout: time.Hour,
	})
}

func TestSinkRecordAssignsIDAndTime(t *testing.T) {
	repo := &fakeRepo{}
	metrics := &fakeMetrics{}
	sink := newTestSink(repo, metrics)

	rec := &domain.AuditRecord{EntityID: "cust-1", Action: domain.AuditActionCorrection}
	require.NoError(t, sink.Record(context.Background(), rec))

	assert.Equal(t, "audit-1", rec.ID)
	assert.Equal(t, fixedNow, rec.CreatedAt)
	require.Len(t, repo.records, 1)
	require.Len(t, metrics.calls, 1)
	assert.Equal(t, "balance.correction", metrics.calls[0].action)
	assert.NoError(t, metrics.calls[0].err)

	listed, err := sink.List(context.Background(), domain.AuditFilter{EntityID: "cust-1"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestSinkOpensAfterConsecutiveFailures(t *testing.T) {
	storeErr := errors.New("db down")
	repo := &fakeRepo{err: storeErr}
	sink := newTestSink(repo, &fakeMetrics{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := sink.Record(ctx, &domain.AuditRecord{EntityID: "cust-1"})
		assert.ErrorIs(t, err, storeErr)
	}
	assert.Equal(t, "open", sink.State())

	err := sink.Record(ctx, &domain.AuditRecord{EntityID: "cust-1"})
	assert.ErrorIs(t, err, ErrSinkUnavailable)
	assert.Equal(t, 2, repo.calls, "open breaker must not reach the store")
}

func TestSinkKeepsExistingID(t *testing.T) {
	repo := &fakeRepo{}
	sink := newTestSink(repo, &fakeMetrics{})

	rec := &domain.AuditRecord{ID: "given", CreatedAt: fixedNow.Add(-time.Hour)}
	require.NoError(t, sink.Record(context.Background(), rec))

	assert.Equal(t, "given", rec.ID)
	assert.Equal(t, fixedNow.Add(-time.Hour), rec.CreatedAt)
}
