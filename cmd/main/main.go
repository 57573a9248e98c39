package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/api"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/jetstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/storage"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/upstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/usecase"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting outreach metrics service",
		zap.String("environment", cfg.Environment),
		zap.String("version", version),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.String("upstream_fallback", cfg.Upstream.Fallback),
	)

	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	var (
		jsClient  *jetstream.Client
		notifier  usecase.EventNotifier = usecase.NoopNotifier{}
		processor *usecase.Processor
	)
	if cfg.NATS.Enabled {
		jsClient, err = initJetStreamClient(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}
		poolNotifier, err := usecase.NewPoolNotifier(cfg.WorkerPools.Notifier, jsClient, cfg.NATS.Events.SubjectPrefix, logger.Log)
		if err != nil {
			logger.Log.Fatal("Failed to initialize event notifier pool", zap.Error(err))
		}
		notifier = poolNotifier
	}

	ingestService := usecase.NewIngestService(
		postgresRepo, postgresRepo, postgresRepo, postgresRepo,
		upstream.NewClient(cfg.Upstream.Timeout),
		notifier,
		cfg.Upstream,
	)
	queryService := usecase.NewQueryService(postgresRepo, postgresRepo, postgresRepo, postgresRepo)
	scheduleService := usecase.NewScheduleService(postgresRepo, ingestService)

	deps := api.Dependencies{
		Ingest:    ingestService,
		Query:     queryService,
		Schedules: scheduleService,
		DB:        postgresRepo,
		Version:   version,
	}
	if jsClient != nil {
		deps.NATS = jsClient
	}

	server := api.NewServer(cfg.Server.Port, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, deps, logger.Log)
	if cfg.Metrics.Enabled {
		server.RegisterMetricsHandler(promhttp.Handler())
	} else {
		logger.Log.Info("Metrics endpoint disabled", zap.String("environment", cfg.Environment))
	}
	server.Start()

	logger.Log.Info("HTTP endpoints available",
		zap.String("api", fmt.Sprintf("http://localhost:%d/api", cfg.Server.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Server.Port)),
	)

	if jsClient != nil {
		processor = usecase.NewProcessor(ingestService, jsClient, cfg)
		if err := processor.Setup(); err != nil {
			logger.Log.Fatal("Failed to set up ingest processor", zap.Error(err))
		}
		if err := processor.Start(); err != nil {
			logger.Log.Fatal("Failed to start ingest processor", zap.Error(err))
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", shutdownTimeout))

	// The HTTP server and the consumer stop first so no new ingestion starts,
	// then the notifier drains, then connections close.
	var wg sync.WaitGroup
	stopComponent(&wg, "HTTP server", func() error { return server.Stop(shutdownCtx) })
	if processor != nil {
		stopComponent(&wg, "ingest processor", func() error { processor.Stop(); return nil })
	}
	waitWithTimeout(shutdownCtx, &wg)

	stopComponent(&wg, "event notifier", func() error { notifier.Stop(); return nil })
	waitWithTimeout(shutdownCtx, &wg)

	stopComponent(&wg, "connections", func() error {
		if jsClient != nil {
			jsClient.Close()
		}
		return postgresRepo.Close(shutdownCtx)
	})
	waitWithTimeout(shutdownCtx, &wg)

	logger.Log.Info("Outreach metrics service shutdown complete")
}

// stopComponent runs stop in a goroutine guarded against panics.
func stopComponent(wg *sync.WaitGroup, name string, stop func() error) {
	wg.Add(1)
	utils.SafeGo("shutdown "+name, func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping " + name)
		start := time.Now()
		if err := stop(); err != nil {
			logger.Log.Error("[shutdown] Error stopping "+name, zap.Error(err))
			return
		}
		logger.Log.Info("[shutdown] Stopped "+name, zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping "+name,
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})
}

func waitWithTimeout(ctx context.Context, wg *sync.WaitGroup) {
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-ctx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}
}

func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

func initJetStreamClient(url string) (*jetstream.Client, error) {
	client, err := jetstream.NewClient(url, "outreach-metrics-service")
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}
	return client, nil
}
