package handlers_test

import (
	"database/sql"
	"net/http"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/radustef/mangapipe/internal/config"
	"github.com/radustef/mangapipe/internal/database"
	"github.com/radustef/mangapipe/internal/extract"
	"github.com/radustef/mangapipe/internal/fetch"
	apihttp "github.com/radustef/mangapipe/internal/http"
	"github.com/radustef/mangapipe/internal/importer"
	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/scrape"
	"github.com/radustef/mangapipe/internal/scrape/defaults"
)

func setupTestApp(t *testing.T) (*sql.DB, *fiber.App) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "migrations")
	if err := database.ApplyMigrations(db, migrationsPath); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	if err := database.SeedDefaults(db); err != nil {
		_ = db.Close()
		t.Fatalf("seed defaults: %v", err)
	}

	registry, err := defaults.NewRegistry("")
	if err != nil {
		_ = db.Close()
		t.Fatalf("build registry: %v", err)
	}

	app := apihttp.NewServerWithDeps(config.Config{AppName: "test-app"}, db, registry, newTestImporter(t, db, registry))

	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = db.Close()
	})

	return db, app
}

func newTestImporter(t *testing.T, db *sql.DB, registry *scrape.Registry) *importer.Service {
	t.Helper()

	client := fetch.NewClient(&http.Client{Timeout: 5 * time.Second}, fetch.Options{
		Retries:     1,
		BackoffBase: time.Millisecond,
		RatePerSec:  1000,
	})
	return importer.NewService(
		client,
		registry,
		extract.NewEngine(extract.DefaultChapterCap),
		repository.NewMangaRepository(db),
		repository.NewChapterRepository(db),
		repository.NewQueueRepository(db),
		repository.NewSourceRepository(db),
		nil,
	)
}
