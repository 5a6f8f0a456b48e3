package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radustef/mangapipe/internal/config"
	"github.com/radustef/mangapipe/internal/database"
	"github.com/radustef/mangapipe/internal/extract"
	"github.com/radustef/mangapipe/internal/fetch"
	apihttp "github.com/radustef/mangapipe/internal/http"
	"github.com/radustef/mangapipe/internal/importer"
	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/scheduler"
	"github.com/radustef/mangapipe/internal/scrape/defaults"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedDefaultData {
		if err := database.SeedDefaults(db); err != nil {
			slog.Error("failed to seed defaults", "error", err)
			os.Exit(1)
		}
	}

	registry, registryErr := defaults.NewRegistry(cfg.YAMLAdaptersPath)
	if registryErr != nil {
		slog.Warn("adapter registry loaded with warnings", "error", registryErr)
	}

	client := fetch.NewClient(&http.Client{Timeout: cfg.FetchTimeout}, fetch.Options{
		Retries:     cfg.FetchRetries,
		BackoffBase: cfg.FetchBackoffBase,
		RatePerSec:  cfg.FetchRatePerSec,
	})
	queueRepo := repository.NewQueueRepository(db)
	sourceRepo := repository.NewSourceRepository(db)
	service := importer.NewService(
		client,
		registry,
		extract.NewEngine(cfg.ChapterImportCap),
		repository.NewMangaRepository(db),
		repository.NewChapterRepository(db),
		queueRepo,
		sourceRepo,
		slog.Default(),
	)

	app := apihttp.NewServerWithDeps(cfg, db, registry, service)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	worker := scheduler.NewWorker(
		queueRepo,
		service,
		scheduler.WorkerConfig{
			Interval:   cfg.WorkerInterval,
			ClaimLimit: cfg.WorkerClaimLimit,
		},
		slog.Default(),
	)
	if cfg.WorkerEnabled {
		worker.Start(workerCtx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	workerCancel()
	if cfg.WorkerEnabled {
		worker.StopWait(2 * time.Second)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
