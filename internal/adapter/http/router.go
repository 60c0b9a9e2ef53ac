package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerrecon/internal/adapter/http/handler"
	"github.com/iho/ledgerrecon/internal/adapter/http/middleware"
	"github.com/iho/ledgerrecon/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	ReconciliationHandler *handler.ReconciliationHandler
	StatementHandler      *handler.StatementHandler
	ClassificationHandler *handler.ClassificationHandler
	TaxHandler            *handler.TaxHandler
	AuditHandler          *handler.AuditHandler
	EventHandler          *handler.EventHandler
	HealthHandler         *handler.HealthHandler
	IdempotencyStore      usecase.IdempotencyStore
	IdempotencyTTL        time.Duration
	Metrics               middleware.HTTPRecorder
	MetricsHandler        http.Handler
	Logger                zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", cfg.ReconciliationHandler.ReconcileAll)
			r.Post("/owners/{id}", cfg.ReconciliationHandler.ReconcileOwner)
		})

		r.Route("/statements", func(r chi.Router) {
			r.Post("/", cfg.StatementHandler.Generate)
			r.Get("/{id}", cfg.StatementHandler.Get)
		})

		r.Route("/classifications", func(r chi.Router) {
			r.Post("/", cfg.ClassificationHandler.Classify)
			r.Post("/other", cfg.ClassificationHandler.ClassifyOther)
		})

		r.Route("/taxes", func(r chi.Router) {
			r.Post("/sales", cfg.TaxHandler.SalesTax)
			r.Post("/income", cfg.TaxHandler.IncomeTax)
		})

		r.Get("/audit", cfg.AuditHandler.List)
		r.Get("/events/{type}/{id}", cfg.EventHandler.List)
	})

	return r
}
