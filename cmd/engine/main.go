// Package main is the entry point for the academic lifecycle engine.
//
// The engine owns the enrollment ledger and everything derived from it:
// progress accumulation, completion certificates, withdrawal refunds, and
// semester advancement decisions. Architecture follows Clean Architecture
// and DDD:
//   - Domain: pure business logic without external dependencies
//   - Application: use case orchestration (Commands/Queries)
//   - Infrastructure: repositories, external APIs, messaging, scheduling
//   - Interface: REST API handlers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/academica-hub/lifecycle-engine/config"

	// Application layer
	"github.com/academica-hub/lifecycle-engine/internal/application/command"
	"github.com/academica-hub/lifecycle-engine/internal/application/eventhandler"
	"github.com/academica-hub/lifecycle-engine/internal/application/query"

	// Domain layer
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"

	// Infrastructure layer
	"github.com/academica-hub/lifecycle-engine/internal/infrastructure/external/catalog"
	"github.com/academica-hub/lifecycle-engine/internal/infrastructure/messaging"
	"github.com/academica-hub/lifecycle-engine/internal/infrastructure/persistence/postgres"
	"github.com/academica-hub/lifecycle-engine/internal/infrastructure/persistence/redis"
	"github.com/academica-hub/lifecycle-engine/internal/infrastructure/scheduler"
	"github.com/academica-hub/lifecycle-engine/internal/infrastructure/scheduler/jobs"

	// Interface layer
	httpserver "github.com/academica-hub/lifecycle-engine/internal/interface/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)
	log.Info("starting lifecycle engine",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer conn.Close()
	log.Info("connected to postgres")

	if cfg.Database.MigrateOnStart {
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	var progressCache query.ProgressCache
	if !cfg.Redis.Disabled {
		cache, err = redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer cache.Close()
		progressCache = redis.NewProgressCache(cache)
		log.Info("connected to redis", "host", cfg.Redis.Host)
	} else {
		log.Warn("redis disabled, progress reads go to the database")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBus, err := setupEventBus(cfg, cache, log)
	if err != nil {
		return fmt.Errorf("failed to set up event bus: %w", err)
	}
	defer eventBus.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. COURSE CATALOG CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	catalogClient := catalog.NewClient(catalog.ClientConfig{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: cfg.Catalog.RequestTimeout,
		Logger:  log.With("component", "catalog_client"),
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	uowFactory := postgres.NewUnitOfWorkFactory(conn)

	issuer := eventhandler.NewCertificateIssuer(eventhandler.CertificateIssuerConfig{
		CertificateBaseURL: cfg.Certificate.BaseURL,
	}, log.With("component", "certificate_issuer"))

	// Command handlers
	enrollHandler := command.NewEnrollHandler(uowFactory, catalogClient, eventBus, log)
	recordProgressHandler := command.NewRecordProgressHandler(uowFactory, issuer, eventBus, log)
	withdrawHandler := command.NewWithdrawHandler(uowFactory, catalogClient, eventBus, log)
	issueCertHandler := command.NewIssueCertificateHandler(uowFactory, cfg.Certificate.BaseURL, eventBus, log)
	syncTotalsHandler := command.NewSyncCourseTotalsHandler(uowFactory, catalogClient, issuer, eventBus, log)

	// Query handlers read through the pool, not a transaction.
	enrollmentRepo := postgres.NewEnrollmentRepository(conn.Pool())
	progressRepo := postgres.NewProgressRepository(conn.Pool())
	certificateRepo := postgres.NewCertificateRepository(conn.Pool())
	semesterRepo := postgres.NewSemesterRepository(conn.Pool())

	getProgressHandler := query.NewGetProgressHandler(progressRepo, progressCache, redis.TTLProgressSnapshot, log)
	canAdvanceHandler := query.NewCanAdvanceHandler(semesterRepo, log)
	listCertsHandler := query.NewListCertificatesHandler(certificateRepo, log)

	// Cache invalidation on progress changes rides the event bus so that
	// write paths never talk to Redis directly.
	if progressCache != nil {
		registerCacheInvalidation(eventBus, progressCache, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Logger: log.With("component", "scheduler"),
		})

		syncJob := jobs.NewSyncCourseTotalsJob(syncTotalsHandler, enrollmentRepo, log)
		cronSchedule, err := scheduler.ParseCron(cfg.Scheduler.SyncTotalsSchedule)
		if err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", cfg.Scheduler.SyncTotalsSchedule, err)
		}
		if err := sched.Register(syncJob, cronSchedule); err != nil {
			return fmt.Errorf("failed to register sync job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
		log.Info("scheduler started", "sync_schedule", cfg.Scheduler.SyncTotalsSchedule)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:     1 << 20,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
	}, httpserver.Dependencies{
		EnrollHandler:           enrollHandler,
		RecordProgressHandler:   recordProgressHandler,
		WithdrawHandler:         withdrawHandler,
		IssueCertificateHandler: issueCertHandler,
		GetProgressHandler:      getProgressHandler,
		CanAdvanceHandler:       canAdvanceHandler,
		ListCertificatesHandler: listCertsHandler,
		Logger:                  log.With("component", "http"),
		HealthChecker: &healthChecker{
			conn:    conn,
			cache:   cache,
			catalog: catalogClient,
		},
	})

	serverErrCh := server.StartAsync()
	log.Info("HTTP server listening", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	log.Info("lifecycle engine stopped")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// engineEventBus is the bus surface main wires: publish, subscribe, and
// lifecycle teardown. Both the in-memory and Redis buses satisfy it.
type engineEventBus interface {
	shared.EventBus
	Close() error
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("app", cfg.App.Name)
}

// setupEventBus builds the configured bus. With Redis the bus distributes
// events across instances; certificate issuance never depends on it.
func setupEventBus(cfg *config.Config, cache *redis.Cache, log *slog.Logger) (engineEventBus, error) {
	localConfig := messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: cfg.EventBus.Workers,
		Logger:         log.With("component", "event_bus"),
		EnableMetrics:  true,
	}

	if cfg.EventBus.Mode == "redis" && cache != nil {
		return messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(cache.Client()),
			ChannelName:    cfg.EventBus.Channel,
			LocalBusConfig: localConfig,
			Logger:         log.With("component", "event_bus"),
		})
	}

	return messaging.NewInMemoryEventBus(localConfig), nil
}

// registerCacheInvalidation drops cached progress snapshots whenever an
// event changes the underlying record.
func registerCacheInvalidation(bus engineEventBus, cache query.ProgressCache, log *slog.Logger) {
	invalidate := func(event shared.Event) error {
		payload := event.Payload()
		studentID, _ := payload["student_id"].(string)
		courseID, _ := payload["course_id"].(string)

		pair, err := shared.NewPair(studentID, courseID)
		if err != nil {
			return nil // event without a pair, nothing to invalidate
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := cache.Invalidate(ctx, pair); err != nil {
			log.Warn("progress cache invalidation failed",
				"pair", pair.Key(),
				"error", err,
			)
		}
		return nil
	}

	for _, eventType := range []shared.EventType{
		shared.EventProgressChanged,
		shared.EventCourseTotalsRefreshed,
		shared.EventEnrollmentWithdrawn,
	} {
		_ = bus.Subscribe(eventType, invalidate)
	}
}

// healthChecker aggregates component health for the HTTP health endpoints.
type healthChecker struct {
	conn    *postgres.Connection
	cache   *redis.Cache
	catalog *catalog.Client
}

func (h *healthChecker) CheckHealth(ctx context.Context) map[string]string {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	components := make(map[string]string, 3)

	if err := h.conn.Ping(checkCtx); err != nil {
		components["postgres"] = "unhealthy"
	} else {
		components["postgres"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Ping(checkCtx); err != nil {
			components["redis"] = "unhealthy"
		} else {
			components["redis"] = "healthy"
		}
	}

	if h.catalog.IsHealthy(checkCtx) {
		components["catalog"] = "healthy"
	} else {
		components["catalog"] = "unhealthy"
	}

	return components
}
