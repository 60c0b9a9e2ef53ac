package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/audit?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/audit?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestParseTimeQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/audit?start_date=2025-03-01T00:00:00Z&end_date=march", nil)

	got, err := parseTimeQuery(req, "start_date")
	if err != nil || got == nil || got.Month() != 3 {
		t.Fatalf("unexpected parse result %v, %v", got, err)
	}

	if _, err := parseTimeQuery(req, "end_date"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if got, err := parseTimeQuery(req, "missing"); got != nil || err != nil {
		t.Fatalf("expected nil for missing param, got %v, %v", got, err)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"owner not found", domain.ErrOwnerNotFound, http.StatusNotFound},
		{"statement not found", fmt.Errorf("get: %w", domain.ErrStatementNotFound), http.StatusNotFound},
		{"validation", domain.NewValidationError("end_date", "must not be before start_date"), http.StatusBadRequest},
		{"conflict", domain.ErrConcurrentUpdate, http.StatusConflict},
		{"rules", domain.ErrRulesUnavailable, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"cancelled", fmt.Errorf("batch: %w", context.Canceled), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestWriteDomainErrorIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, "invalid request", domain.NewValidationError("start_date", "is required"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Field != "start_date" || resp.Error != "invalid request" {
		t.Fatalf("unexpected error response %+v", resp)
	}
}
