package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerrecon/internal/domain"
	"github.com/iho/ledgerrecon/internal/usecase"
)

type reconciliationServiceStub struct {
	oneFn func(ctx context.Context, ownerID string, opts usecase.ReconcileOptions) (*usecase.ReconciliationResult, error)
	allFn func(ctx context.Context, filter domain.OwnerFilter, opts usecase.ReconcileAllOptions) (*usecase.BatchResult, error)
}

func (s *reconciliationServiceStub) ReconcileOne(ctx context.Context, ownerID string, opts usecase.ReconcileOptions) (*usecase.ReconciliationResult, error) {
	return s.oneFn(ctx, ownerID, opts)
}

func (s *reconciliationServiceStub) ReconcileAll(ctx context.Context, filter domain.OwnerFilter, opts usecase.ReconcileAllOptions) (*usecase.BatchResult, error) {
	return s.allFn(ctx, filter, opts)
}

func newReconciliationRouter(stub *reconciliationServiceStub) http.Handler {
	h := NewReconciliationHandler(stub, usecase.ReconcileAllOptions{
		ReconcileOptions: usecase.ReconcileOptions{AlertOnDiscrepancy: true},
		BatchSize:        100,
	})

	r := chi.NewRouter()
	r.Post("/reconciliations/owners/{id}", h.ReconcileOwner)
	r.Post("/reconciliations", h.ReconcileAll)
	return r
}

func TestReconciliationHandler_ReconcileOwner_Success(t *testing.T) {
	var gotID string
	var gotOpts usecase.ReconcileOptions

	router := newReconciliationRouter(&reconciliationServiceStub{
		oneFn: func(ctx context.Context, ownerID string, opts usecase.ReconcileOptions) (*usecase.ReconciliationResult, error) {
			gotID, gotOpts = ownerID, opts
			return &usecase.ReconciliationResult{OwnerID: ownerID, Reconciled: true}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/reconciliations/owners/cust-1", bytes.NewBufferString(`{"auto_correct":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotID != "cust-1" {
		t.Fatalf("expected owner cust-1, got %q", gotID)
	}
	if !gotOpts.AutoCorrect || !gotOpts.AlertOnDiscrepancy {
		t.Fatalf("expected request override plus default alert, got %+v", gotOpts)
	}

	var resp usecase.ReconciliationResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Reconciled {
		t.Fatalf("expected reconciled result, got %+v", resp)
	}
}

func TestReconciliationHandler_ReconcileOwner_EmptyBodyUsesDefaults(t *testing.T) {
	var gotOpts usecase.ReconcileOptions
	router := newReconciliationRouter(&reconciliationServiceStub{
		oneFn: func(ctx context.Context, ownerID string, opts usecase.ReconcileOptions) (*usecase.ReconciliationResult, error) {
			gotOpts = opts
			return &usecase.ReconciliationResult{OwnerID: ownerID, Reconciled: true}, nil
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliations/owners/cust-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotOpts.AutoCorrect || !gotOpts.AlertOnDiscrepancy {
		t.Fatalf("expected defaults, got %+v", gotOpts)
	}
}

func TestReconciliationHandler_ReconcileOwner_Errors(t *testing.T) {
	tests := []struct {
		name   string
		result *usecase.ReconciliationResult
		err    error
		want   int
	}{
		{"not found", nil, domain.ErrOwnerNotFound, http.StatusNotFound},
		{
			name:   "lost correction race",
			result: &usecase.ReconciliationResult{OwnerID: "cust-1", Discrepancy: &domain.Discrepancy{Current: decimal.NewFromInt(20)}},
			err:    fmt.Errorf("correct: %w", domain.ErrConcurrentUpdate),
			want:   http.StatusConflict,
		},
		{"internal", nil, fmt.Errorf("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newReconciliationRouter(&reconciliationServiceStub{
				oneFn: func(ctx context.Context, ownerID string, opts usecase.ReconcileOptions) (*usecase.ReconciliationResult, error) {
					return tt.result, tt.err
				},
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliations/owners/cust-1", nil))

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.result != nil {
				var resp usecase.ReconciliationResult
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Discrepancy == nil || !resp.Discrepancy.Current.Equal(decimal.NewFromInt(20)) {
					t.Fatalf("expected discrepancy in conflict body, got %+v", resp)
				}
			}
		})
	}
}

func TestReconciliationHandler_ReconcileAll(t *testing.T) {
	var gotFilter domain.OwnerFilter
	var gotOpts usecase.ReconcileAllOptions

	router := newReconciliationRouter(&reconciliationServiceStub{
		allFn: func(ctx context.Context, filter domain.OwnerFilter, opts usecase.ReconcileAllOptions) (*usecase.BatchResult, error) {
			gotFilter, gotOpts = filter, opts
			return &usecase.BatchResult{RunID: "run-1", Total: 3, Reconciled: 3}, nil
		},
	})

	body := `{"kinds":["customer"],"batch_size":10}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliations", bytes.NewBufferString(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(gotFilter.Kinds) != 1 || gotFilter.Kinds[0] != domain.OwnerKindCustomer {
		t.Fatalf("unexpected filter %+v", gotFilter)
	}
	if gotOpts.BatchSize != 10 {
		t.Fatalf("expected batch size 10, got %d", gotOpts.BatchSize)
	}

	var resp usecase.BatchResult
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || resp.RunID != "run-1" {
		t.Fatalf("unexpected batch result %+v", resp)
	}
}

func TestReconciliationHandler_ReconcileAll_InvalidKind(t *testing.T) {
	router := newReconciliationRouter(&reconciliationServiceStub{
		allFn: func(ctx context.Context, filter domain.OwnerFilter, opts usecase.ReconcileAllOptions) (*usecase.BatchResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliations", bytes.NewBufferString(`{"kinds":["vendor"]}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReconciliationHandler_ReconcileAll_PartialResult(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"deadline", fmt.Errorf("reconcile owners: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newReconciliationRouter(&reconciliationServiceStub{
				allFn: func(ctx context.Context, filter domain.OwnerFilter, opts usecase.ReconcileAllOptions) (*usecase.BatchResult, error) {
					return &usecase.BatchResult{RunID: "run-2", Total: 2, Reconciled: 1, Corrected: 1, Cancelled: true}, tt.err
				},
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliations", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}

			var resp usecase.BatchResult
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !resp.Cancelled || resp.RunID != "run-2" || resp.Corrected != 1 {
				t.Fatalf("expected the partial batch result, got %+v", resp)
			}
		})
	}
}

func TestReconciliationHandler_ReconcileAll_FailureWritesError(t *testing.T) {
	router := newReconciliationRouter(&reconciliationServiceStub{
		allFn: func(ctx context.Context, filter domain.OwnerFilter, opts usecase.ReconcileAllOptions) (*usecase.BatchResult, error) {
			return &usecase.BatchResult{}, fmt.Errorf("list owners: db unavailable")
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconciliations", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "failed to reconcile owners" {
		t.Fatalf("expected error body, got %v", resp)
	}
}
