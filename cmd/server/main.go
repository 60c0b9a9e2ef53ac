package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/ledgerrecon/internal/adapter/http"
	"github.com/iho/ledgerrecon/internal/adapter/http/handler"
	postgresRepo "github.com/iho/ledgerrecon/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/ledgerrecon/internal/adapter/repository/redis"
	"github.com/iho/ledgerrecon/internal/domain"
	"github.com/iho/ledgerrecon/internal/infrastructure/audit"
	"github.com/iho/ledgerrecon/internal/infrastructure/config"
	"github.com/iho/ledgerrecon/internal/infrastructure/eventpublisher"
	"github.com/iho/ledgerrecon/internal/infrastructure/logger"
	"github.com/iho/ledgerrecon/internal/infrastructure/metrics"
	"github.com/iho/ledgerrecon/internal/infrastructure/postgres"
	"github.com/iho/ledgerrecon/internal/infrastructure/redis"
	"github.com/iho/ledgerrecon/internal/infrastructure/rules"
	"github.com/iho/ledgerrecon/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.Config{
		URL:         cfg.RedisURL,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisDialTimeout,
		PingTimeout: cfg.RedisDialTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegisterer(registry)

	// Classification rules
	provider, err := newRulesProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	// Initialize repositories
	retrier := postgresRepo.NewRetrierWithPolicy(log, postgresRepo.RetryPolicy{MaxRetries: cfg.DatabaseMaxRetries})
	ownerRepo := postgresRepo.NewOwnerRepository(pool, retrier)
	entryRepo := postgresRepo.NewLedgerEntryRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	orderRepo := postgresRepo.NewSalesOrderRepository(pool)
	inventoryRepo := postgresRepo.NewInventoryRepository(pool)
	statementRepo := postgresRepo.NewStatementRepository(pool)
	outboxRepo := newOutbox(cfg, pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	auditSink := audit.NewSink(audit.Config{
		Repo:        postgresRepo.NewAuditRepository(pool),
		IDGen:       postgresRepo.NewUUIDGenerator(),
		Metrics:     m,
		Logger:      log,
		MaxFailures: cfg.AuditBreakerMaxFailures,
		OpenTimeout: cfg.AuditBreakerTimeout,
	})

	// Initialize use cases
	reconciliationUC := usecase.NewReconciliationUseCase(usecase.ReconciliationConfig{
		Owners:    ownerRepo,
		Entries:   entryRepo,
		Audit:     auditSink,
		Alerter:   usecase.NewOutboxAlerter(outboxRepo, idGen),
		Locker:    redisRepo.NewLocker(redisClient, cfg.OwnerLockTTL),
		IDGen:     idGen,
		Metrics:   m,
		Logger:    log,
		Mode:      domain.ParseReplayMode(cfg.ReplayMode),
		BatchSize: cfg.ReconcileBatchSize,
	})
	taxUC := usecase.NewTaxUseCase(orderRepo, transactionRepo, log)
	statementUC := usecase.NewStatementUseCase(usecase.StatementConfig{
		Transactions: transactionRepo,
		Orders:       orderRepo,
		Inventory:    inventoryRepo,
		Statements:   statementRepo,
		Outbox:       outboxRepo,
		Rules:        provider,
		Tax:          taxUC,
		IDGen:        idGen,
		Metrics:      m,
		Logger:       log,
		StageTimeout: cfg.StageTimeout,
	})
	classificationUC := usecase.NewClassificationUseCase(provider)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(map[string]handler.Check{
		"postgres": handler.PostgresCheck(pool),
		"redis":    handler.RedisCheck(redisClient),
		"rules": func(context.Context) error {
			_, err := provider.Classifier()
			return err
		},
		"audit": auditBreakerCheck(auditSink),
	})

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC, usecase.ReconcileAllOptions{
			ReconcileOptions: usecase.ReconcileOptions{
				AutoCorrect:        cfg.ReconcileAutoCorrect,
				AlertOnDiscrepancy: cfg.ReconcileAlert,
			},
			BatchSize: cfg.ReconcileBatchSize,
		}),
		StatementHandler:      handler.NewStatementHandler(statementUC),
		ClassificationHandler: handler.NewClassificationHandler(classificationUC),
		TaxHandler:            handler.NewTaxHandler(taxUC),
		AuditHandler:          handler.NewAuditHandler(auditSink),
		EventHandler:          handler.NewEventHandler(outboxRepo),
		HealthHandler:         healthHandler,
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		Metrics:               m,
		MetricsHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:                log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  newPublisher(cfg, redisClient, log),
		Metrics:    m,
		Logger:     log.With().Str("component", "event_publisher").Logger(),
		Interval:   cfg.AlertPublishInterval,
		Retention:  cfg.OutboxRetention,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.EventPublisher != publisherNone {
		g.Go(func() error {
			if err := publisher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newRulesProvider loads RULES_FILE, watching it for changes when enabled,
// or falls back to the built-in rules.
func newRulesProvider(cfg *config.Config, log zerolog.Logger) (*rules.Provider, error) {
	if cfg.RulesFile == "" {
		log.Info().Msg("using built-in classification rules")
		return rules.NewDefaultProvider()
	}

	provider, err := rules.NewFileProvider(cfg.RulesFile, log)
	if err != nil {
		return nil, err
	}

	if cfg.RulesWatch {
		provider.OnReload(func(version string, err error) {
			if err != nil {
				log.Error().Err(err).Str("file", cfg.RulesFile).Msg("rules reload rejected, keeping previous rules")
				return
			}
			log.Info().Str("version", version).Msg("classification rules reloaded")
		})
		provider.Watch()
	}

	return provider, nil
}

const publisherNone = "none"

// auditBreakerCheck fails readiness while the audit store circuit is open.
func auditBreakerCheck(sink *audit.Sink) handler.Check {
	return func(context.Context) error {
		if state := sink.State(); state == "open" {
			return fmt.Errorf("audit store circuit %s", state)
		}
		return nil
	}
}

// newOutbox discards alerts when publishing is disabled.
func newOutbox(cfg *config.Config, pool *pgxpool.Pool) usecase.OutboxRepository {
	if cfg.EventPublisher == publisherNone {
		return postgresRepo.NewNullOutboxRepository()
	}
	return postgresRepo.NewOutboxRepository(pool)
}

// newPublisher picks the outbox publisher.
func newPublisher(cfg *config.Config, client *goredis.Client, log zerolog.Logger) eventpublisher.Publisher {
	if cfg.EventPublisher == "log" {
		return eventpublisher.NewLogPublisher(log)
	}
	return eventpublisher.NewRedisPublisher(client, cfg.EventChannelPrefix)
}
