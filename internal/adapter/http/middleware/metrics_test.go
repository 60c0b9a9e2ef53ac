package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type httpCall struct {
	method, path string
	status       int
}

type fakeHTTPRecorder struct {
	calls []httpCall
}

func (f *fakeHTTPRecorder) RecordHTTP(method, path string, status int, duration time.Duration) {
	f.calls = append(f.calls, httpCall{method: method, path: path, status: status})
}

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		wantPath   string
		statusCode int
	}{
		{
			name:       "labels by route pattern",
			method:     http.MethodGet,
			path:       "/api/v1/statements/01HX9",
			wantPath:   "/api/v1/statements/{id}",
			statusCode: http.StatusTeapot,
		},
		{
			name:       "unmatched path",
			method:     http.MethodPost,
			path:       "/nope",
			wantPath:   "unmatched",
			statusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &fakeHTTPRecorder{}
			r := chi.NewRouter()
			r.Use(Metrics(rec))
			r.Get("/api/v1/statements/{id}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))

			if len(rec.calls) != 1 {
				t.Fatalf("expected one recorded request, got %d", len(rec.calls))
			}
			got := rec.calls[0]
			if got.method != tc.method || got.path != tc.wantPath || got.status != tc.statusCode {
				t.Fatalf("unexpected record %+v", got)
			}
		})
	}
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusBadGateway, "error"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		mw := NewLoggingMiddleware(zerolog.New(&buf))

		mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil))

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("expected json log line, got %q", buf.String())
		}
		if line["level"] != tt.level || line["path"] != "/api/v1/audit" {
			t.Fatalf("status %d: unexpected log line %v", tt.status, line)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}
