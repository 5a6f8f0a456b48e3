package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/radustef/mangapipe/internal/config"
	"github.com/radustef/mangapipe/internal/database"
	"github.com/radustef/mangapipe/internal/extract"
	"github.com/radustef/mangapipe/internal/fetch"
	"github.com/radustef/mangapipe/internal/importer"
	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/scrape/defaults"
)

// run-import is the operator companion to the API: import a single URL,
// requeue a failed item, toggle a source on or off, or drain the pending
// backlog once, without a running server.
func main() {
	var (
		source        string
		mangaURL      string
		requeueRef    string
		drain         bool
		enableSource  string
		disableSource string
	)
	flag.StringVar(&source, "source", "", "Source key to import from (e.g. asurascans).")
	flag.StringVar(&mangaURL, "url", "", "Manga detail page URL to import.")
	flag.StringVar(&requeueRef, "requeue", "", "Ref of a failed queue item to put back in the backlog.")
	flag.BoolVar(&drain, "drain", false, "Process all pending queue items, then exit.")
	flag.StringVar(&enableSource, "enable-source", "", "Source key to switch back on for imports.")
	flag.StringVar(&disableSource, "disable-source", "", "Source key to switch off for imports.")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

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

	queueRepo := repository.NewQueueRepository(db)
	sourceRepo := repository.NewSourceRepository(db)

	if enableSource != "" || disableSource != "" {
		toggleSource(sourceRepo, enableSource, true)
		toggleSource(sourceRepo, disableSource, false)
		if requeueRef == "" && !drain && source == "" {
			return
		}
	}

	if requeueRef != "" {
		requeued, err := queueRepo.Requeue(requeueRef)
		if err != nil {
			slog.Error("failed to requeue item", "ref", requeueRef, "error", err)
			os.Exit(1)
		}
		if !requeued {
			slog.Error("item not requeued; only failed items can be retried", "ref", requeueRef)
			os.Exit(1)
		}
		slog.Info("item requeued", "ref", requeueRef)
		if !drain {
			return
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case drain:
		drainBacklog(ctx, service, queueRepo)
	case source != "" && mangaURL != "":
		result, err := service.Import(ctx, source, mangaURL)
		if err != nil {
			ref := ""
			if result != nil {
				ref = result.QueueRef
			}
			slog.Error("import failed", "source", source, "url", mangaURL, "ref", ref, "error", err)
			os.Exit(1)
		}
		slog.Info("import finished",
			"outcome", result.Outcome,
			"ref", result.QueueRef,
			"manga_id", derefID(result.MangaID),
			"chapters_added", result.ChaptersAdded,
		)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func toggleSource(sourceRepo *repository.SourceRepository, key string, enabled bool) {
	if key == "" {
		return
	}
	updated, err := sourceRepo.SetEnabled(key, enabled)
	if err != nil {
		slog.Error("failed to update source", "key", key, "error", err)
		os.Exit(1)
	}
	if !updated {
		slog.Error("source not found; seed defaults or check the key", "key", key)
		os.Exit(1)
	}
	slog.Info("source updated", "key", key, "enabled", enabled)
}

func drainBacklog(ctx context.Context, service *importer.Service, queueRepo *repository.QueueRepository) {
	processed := 0
	failed := 0
	for ctx.Err() == nil {
		item, err := queueRepo.ClaimNext()
		if err != nil {
			slog.Error("failed to claim next item", "error", err)
			os.Exit(1)
		}
		if item == nil {
			break
		}
		if _, err := service.Process(ctx, item); err != nil {
			failed++
			continue
		}
		processed++
	}
	slog.Info("backlog drained", "processed", processed, "failed", failed)
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
