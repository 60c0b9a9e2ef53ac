package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.Reconciliations == nil || m.HTTPRequests == nil || m.StatementDuration == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestRecorders(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.RecordOutcome("corrected")
	m.RecordOutcome("corrected")
	m.RecordOutcome("conflict")
	m.RecordBatch(2*time.Second, 40)
	m.RecordGeneration(150 * time.Millisecond)
	m.RecordStageFailure("sales_tax")
	m.RecordPublish("balance.discrepancy", errors.New("broker down"))
	m.RecordAudit("balance.correction", nil)
	m.RecordHTTP("POST", "/api/v1/statements", 201, 40*time.Millisecond)

	if got := testutil.ToFloat64(m.Reconciliations.WithLabelValues("corrected")); got != 2 {
		t.Fatalf("expected 2 corrected, got %v", got)
	}
	if got := testutil.ToFloat64(m.StatementsGenerated); got != 1 {
		t.Fatalf("expected 1 statement, got %v", got)
	}
	if got := testutil.ToFloat64(m.StatementStageFailures.WithLabelValues("sales_tax")); got != 1 {
		t.Fatalf("expected 1 stage failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.EventsPublished.WithLabelValues("balance.discrepancy", "error")); got != 1 {
		t.Fatalf("expected 1 failed publish, got %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/statements", "201")); got != 1 {
		t.Fatalf("expected 1 http request, got %v", got)
	}
	if got := testutil.ToFloat64(m.AuditRecords.WithLabelValues("balance.correction", "success")); got != 1 {
		t.Fatalf("expected 1 audit record, got %v", got)
	}
}
