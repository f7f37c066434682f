package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"media-observer/internal/archive"
	"media-observer/internal/config"
	pgStorage "media-observer/internal/infra/adapter/persistence/postgres"
	sqliteStorage "media-observer/internal/infra/adapter/persistence/sqlite"
	"media-observer/internal/infra/db"
	"media-observer/internal/infra/embedder"
	workerPkg "media-observer/internal/infra/worker"
	"media-observer/internal/index"
	"media-observer/internal/media"
	"media-observer/internal/observability/logging"
	"media-observer/internal/observability/tracing"
	"media-observer/internal/queue"
	"media-observer/internal/repository"
	"media-observer/internal/usecase/embedding"
	"media-observer/internal/usecase/snapshot"
)

// Worker counts per pipeline stage. Store stays single so writes to the
// SQLite backend never contend.
const (
	discoverWorkers = 3
	fetchWorkers    = 3
	parseWorkers    = 3
	storeWorkers    = 1
)

func main() {
	settingsPath := flag.String("settings", "settings.yaml", "path to the settings file")
	flag.Parse()

	logger := initLogger()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		logger.Error("failed to load settings", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "media-observer-worker")
	if err != nil {
		logger.Error("failed to set up tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", slog.Any("error", err))
		}
	}()

	storage, err := openStorage(ctx, settings.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	diagnostics, err := snapshot.NewDiagnostics(settings.Diagnostics.Dir)
	if err != nil {
		logger.Error("failed to create diagnostics dir", slog.Any("error", err))
		os.Exit(1)
	}

	client := archive.NewClient(archive.Config{
		LimiterMaxRate: settings.InternetArchive.LimiterMaxRate,
		LimiterPeriod:  settings.LimiterTimePeriod(),
		Relax429:       settings.RelaxationAfter429(),
		RelaxConnect:   settings.RelaxationAfterConnect(),
		RequestTimeout: settings.RequestTimeout(),
		GateDir:        settings.InternetArchive.GateDir,
	}, logger)

	pipeline := snapshot.NewPipeline(storage, client, diagnostics)

	set := queue.NewSet()
	discoverQ := queue.NewQueue[snapshot.DiscoverJob](set)
	fetchQ := queue.NewQueue[snapshot.FetchJob](set)
	parseQ := queue.NewQueue[snapshot.ParseJob](set)
	storeQ := queue.NewQueue[snapshot.StoreJob](set)

	watchdog := snapshot.NewWatchdog(discoverQ, media.Collections(),
		settings.Snapshots.DaysInPast, settings.Snapshots.Hours, logger)

	provider := embedder.NewOpenAIEmbedder(embedder.Config{
		APIKey:  config.OpenAIAPIKey(),
		BaseURL: settings.Embeddings.BaseURL,
		Model:   settings.Embeddings.Model,
	}, logger)

	newEmbeddings := queue.NewEvent()
	embeddingWorker := embedding.NewWorker(storage, provider, newEmbeddings, logger).
		WithBatchSize(settings.Embeddings.BatchSize)
	rebuilder := index.NewRebuilder(storage, newEmbeddings, settings.Index.Path, logger)

	healthAddr := fmt.Sprintf(":%d", config.HealthPort())
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)

	startMetricsServer(ctx, logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := healthServer.Start(groupCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	for i := 0; i < discoverWorkers; i++ {
		worker := snapshot.NewWorker("discover", discoverQ, fetchQ, pipeline.Discover, logger)
		group.Go(func() error { return worker.Run(groupCtx) })
	}
	for i := 0; i < fetchWorkers; i++ {
		worker := snapshot.NewWorker("fetch", fetchQ, parseQ, pipeline.Fetch, logger)
		group.Go(func() error { return worker.Run(groupCtx) })
	}
	for i := 0; i < parseWorkers; i++ {
		worker := snapshot.NewWorker("parse", parseQ, storeQ, pipeline.Parse, logger)
		group.Go(func() error { return worker.Run(groupCtx) })
	}
	for i := 0; i < storeWorkers; i++ {
		worker := snapshot.NewWorker("store", storeQ, nil, pipeline.Store, logger)
		group.Go(func() error { return worker.Run(groupCtx) })
	}
	group.Go(func() error { return watchdog.Run(groupCtx) })
	group.Go(func() error { return embeddingWorker.Run(groupCtx) })
	group.Go(func() error { return rebuilder.Run(groupCtx) })

	healthServer.SetReady(true)
	logger.Info("observer started",
		slog.Int("collections", len(media.Collections())),
		slog.Int("days_in_past", settings.Snapshots.DaysInPast),
		slog.Any("hours", settings.Snapshots.Hours))

	if err := group.Wait(); err != nil {
		logger.Error("observer stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("observer stopped")
}

// initLogger initializes the process-wide structured logger.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// openStorage connects to the database selected by the URL scheme and
// returns the matching storage backend.
func openStorage(ctx context.Context, databaseURL string, logger *slog.Logger) (repository.Storage, error) {
	handle, dialect, err := db.Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case db.DialectPostgres:
		logger.Info("using PostgreSQL storage")
		return pgStorage.NewStorage(handle)
	case db.DialectSQLite:
		logger.Info("using SQLite storage")
		return sqliteStorage.NewStorage(handle)
	default:
		_ = handle.Close()
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}
}
