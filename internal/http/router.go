package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/radustef/mangapipe/internal/config"
	"github.com/radustef/mangapipe/internal/extract"
	"github.com/radustef/mangapipe/internal/fetch"
	"github.com/radustef/mangapipe/internal/http/handlers"
	"github.com/radustef/mangapipe/internal/importer"
	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/scrape"
	"github.com/radustef/mangapipe/internal/scrape/defaults"
)

func NewServer(cfg config.Config, db *sql.DB) *fiber.App {
	registry, err := defaults.NewRegistry(cfg.YAMLAdaptersPath)
	if err != nil {
		slog.Warn("yaml adapters loaded with warnings", "error", err)
	}

	client := fetch.NewClient(&http.Client{Timeout: cfg.FetchTimeout}, fetch.Options{
		Retries:     cfg.FetchRetries,
		BackoffBase: cfg.FetchBackoffBase,
		RatePerSec:  cfg.FetchRatePerSec,
	})
	service := importer.NewService(
		client,
		registry,
		extract.NewEngine(cfg.ChapterImportCap),
		repository.NewMangaRepository(db),
		repository.NewChapterRepository(db),
		repository.NewQueueRepository(db),
		repository.NewSourceRepository(db),
		slog.Default(),
	)

	return NewServerWithDeps(cfg, db, registry, service)
}

func NewServerWithDeps(cfg config.Config, db *sql.DB, registry *scrape.Registry, service *importer.Service) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     cfg.AppName,
		ReadTimeout: 30 * time.Second,
	})

	app.Use(recover.New())

	health := handlers.NewHealthHandler(db, registry)
	sources := handlers.NewSourcesHandler(registry, repository.NewSourceRepository(db))
	imports := handlers.NewImportHandler(service)
	queue := handlers.NewQueueHandler(db)

	app.Get("/health", health.Check)
	app.Get("/v1/health", health.Check)

	v1 := app.Group("/v1")
	v1.Get("/sources", sources.List)
	v1.Post("/import", imports.Dispatch)
	v1.Get("/queue", queue.List)
	v1.Get("/queue/:ref", queue.GetByRef)
	v1.Post("/queue/:ref/retry", queue.Retry)

	return app
}
