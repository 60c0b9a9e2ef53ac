package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/ledgerrecon/internal/adapter/http/dto"
	"github.com/iho/ledgerrecon/internal/domain"
)

type classificationServiceStub struct {
	batchFn func(ctx context.Context, inputs []domain.ClassifyInput) ([]domain.Classification, error)
	otherFn func(ctx context.Context, code, name, category string) (domain.OtherClassification, error)
}

func (s *classificationServiceStub) ClassifyBatch(ctx context.Context, inputs []domain.ClassifyInput) ([]domain.Classification, error) {
	return s.batchFn(ctx, inputs)
}

func (s *classificationServiceStub) ClassifyOther(ctx context.Context, code, name, category string) (domain.OtherClassification, error) {
	return s.otherFn(ctx, code, name, category)
}

func TestClassificationHandler_Classify(t *testing.T) {
	var got []domain.ClassifyInput
	h := NewClassificationHandler(&classificationServiceStub{
		batchFn: func(ctx context.Context, inputs []domain.ClassifyInput) ([]domain.Classification, error) {
			got = inputs
			out := make([]domain.Classification, len(inputs))
			for i := range inputs {
				out[i] = domain.Classification{ExpenseType: domain.ExpenseSelling, Category: "marketing", Method: domain.MethodExactCode}
			}
			return out, nil
		},
	})

	body, _ := json.Marshal(dto.ClassifyRequest{Items: []dto.ClassifyItem{
		{AccountCode: "6100", Description: "Ad campaign"},
		{AccountName: "Office rent"},
	}})
	rec := httptest.NewRecorder()
	h.Classify(rec, httptest.NewRequest(http.MethodPost, "/classifications", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(got) != 2 || got[0].AccountCode != "6100" || got[1].AccountName != "Office rent" {
		t.Fatalf("unexpected inputs %+v", got)
	}

	var resp dto.ClassificationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Category != "marketing" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClassificationHandler_Classify_RulesUnavailable(t *testing.T) {
	h := NewClassificationHandler(&classificationServiceStub{
		batchFn: func(ctx context.Context, inputs []domain.ClassifyInput) ([]domain.Classification, error) {
			return nil, domain.ErrRulesUnavailable
		},
	})

	rec := httptest.NewRecorder()
	h.Classify(rec, httptest.NewRequest(http.MethodPost, "/classifications", bytes.NewBufferString(`{"items":[{"account_code":"6100"}]}`)))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestClassificationHandler_ClassifyOther(t *testing.T) {
	h := NewClassificationHandler(&classificationServiceStub{
		otherFn: func(ctx context.Context, code, name, category string) (domain.OtherClassification, error) {
			if code != "7100" || name != "Bank interest" {
				t.Fatalf("unexpected args %q %q", code, name)
			}
			return domain.OtherClassification{Kind: domain.OtherInterestIncome, Matched: true}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.ClassifyOther(rec, httptest.NewRequest(http.MethodPost, "/classifications/other", bytes.NewBufferString(`{"account_code":"7100","account_name":"Bank interest"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp domain.OtherClassification
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != domain.OtherInterestIncome || !resp.Matched {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClassificationHandler_ClassifyOther_MissingCode(t *testing.T) {
	h := NewClassificationHandler(&classificationServiceStub{})

	rec := httptest.NewRecorder()
	h.ClassifyOther(rec, httptest.NewRequest(http.MethodPost, "/classifications/other", bytes.NewBufferString(`{"account_name":"Bank interest"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
