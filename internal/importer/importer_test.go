package importer_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/radustef/mangapipe/internal/database"
	"github.com/radustef/mangapipe/internal/extract"
	"github.com/radustef/mangapipe/internal/fetch"
	"github.com/radustef/mangapipe/internal/importer"
	"github.com/radustef/mangapipe/internal/models"
	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/scrape"
	"github.com/radustef/mangapipe/internal/scrape/defaults"
	"github.com/radustef/mangapipe/internal/scrape/native/asurascans"
)

const asuraDetailPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="Solo Leveling - Asura Scans">
<meta property="og:image" content="/covers/solo-leveling.webp">
</head>
<body>
<div class="summary">Ten years ago the gates opened.</div>
<a href="/genres/action">Action</a>
<a href="/genres/fantasy">Fantasy</a>
<span>Status</span><span>Ongoing</span>
<ul>
<li><a href="/series/solo-leveling/chapter/2">Chapter 2</a></li>
<li><a href="/series/solo-leveling/chapter/1">Chapter 1</a></li>
</ul>
</body>
</html>`

const manganeloDetailPage = `<!DOCTYPE html>
<html>
<body>
<h1>SOLO Leveling</h1>
<div id="panel-story-info-description">Ten years ago the gates opened.</div>
<ul>
<li><a class="chapter-name" href="/chapter/solo_leveling/chapter_3">Chapter 3</a></li>
</ul>
</body>
</html>`

const mangadexDetailPayload = `{
  "data": {
    "id": "bbbb2222-0000-0000-0000-000000000002",
    "attributes": {
      "title": {"en": "Solo Leveling"},
      "altTitles": [{"ko": "나 혼자만 레벨업"}],
      "description": {"en": "Only I level up."},
      "status": "completed",
      "year": 2018,
      "tags": [{"attributes": {"name": {"en": "Action"}, "group": "genre"}}]
    },
    "relationships": [
      {"type": "author", "attributes": {"name": "Chugong"}},
      {"type": "cover_art", "attributes": {"fileName": "solo.jpg"}}
    ]
  }
}`

const asuraChapterPage = `<html><body>
<img src="/static/logo.png">
<img src="/pages/solo-1-001.webp" class="page-img">
<img src="/pages/solo-1-002.webp" class="page-img">
</body></html>`

func newTestService(t *testing.T, registry *scrape.Registry) (*importer.Service, *sql.DB) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := database.ApplyMigrations(db, migrationsPath); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if err := database.SeedDefaults(db); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}

	if registry == nil {
		registry, err = defaults.NewRegistry("")
		if err != nil {
			t.Fatalf("build registry: %v", err)
		}
	}

	client := fetch.NewClient(&http.Client{Timeout: 5 * time.Second}, fetch.Options{
		Retries:     1,
		BackoffBase: time.Millisecond,
		RatePerSec:  1000,
	})

	service := importer.NewService(
		client,
		registry,
		extract.NewEngine(extract.DefaultChapterCap),
		repository.NewMangaRepository(db),
		repository.NewChapterRepository(db),
		repository.NewQueueRepository(db),
		repository.NewSourceRepository(db),
		nil,
	)
	return service, db
}

func countManga(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM manga`).Scan(&count); err != nil {
		t.Fatalf("count manga: %v", err)
	}
	return count
}

func TestImportCreatesDraftWithChapters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(asuraDetailPage))
	}))
	defer server.Close()

	service, db := newTestService(t, nil)
	result, err := service.Import(context.Background(), "asurascans", server.URL+"/series/solo-leveling")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.Outcome != importer.OutcomeImported {
		t.Fatalf("expected outcome %q, got %q", importer.OutcomeImported, result.Outcome)
	}
	if result.MangaID == nil {
		t.Fatal("expected a manga id on the result")
	}
	if result.ChaptersAdded != 2 {
		t.Fatalf("expected 2 chapters added, got %d", result.ChaptersAdded)
	}

	mangas := repository.NewMangaRepository(db)
	saved, err := mangas.GetByID(*result.MangaID)
	if err != nil {
		t.Fatalf("load saved manga: %v", err)
	}
	if saved.Title != "Solo Leveling" {
		t.Fatalf("expected title 'Solo Leveling', got %q", saved.Title)
	}
	if saved.NormalizedTitle != "sololeveling" {
		t.Fatalf("expected normalized title 'sololeveling', got %q", saved.NormalizedTitle)
	}
	if saved.PublishStatus != models.PublishStatusDraft {
		t.Fatalf("imported manga must start as draft, got %q", saved.PublishStatus)
	}
	if saved.SourceKey != "asurascans" {
		t.Fatalf("expected source attribution 'asurascans', got %q", saved.SourceKey)
	}

	chapters, err := repository.NewChapterRepository(db).ListByManga(saved.ID)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	if len(chapters) != 2 || chapters[0].Number != 1 || chapters[1].Number != 2 {
		t.Fatalf("expected chapters [1 2], got %+v", chapters)
	}

	item, err := repository.NewQueueRepository(db).GetByRef(result.QueueRef)
	if err != nil || item == nil {
		t.Fatalf("load queue item %q: %v", result.QueueRef, err)
	}
	if item.Status != models.QueueStatusCompleted {
		t.Fatalf("expected completed queue item, got %q", item.Status)
	}
	if item.MangaID == nil || *item.MangaID != saved.ID {
		t.Fatalf("queue item should point at manga %d, got %v", saved.ID, item.MangaID)
	}
}

func TestImportSameURLIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(asuraDetailPage))
	}))
	defer server.Close()

	service, db := newTestService(t, nil)
	pageURL := server.URL + "/series/solo-leveling"

	first, err := service.Import(context.Background(), "asurascans", pageURL)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := service.Import(context.Background(), "asurascans", pageURL)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	if second.Outcome != importer.OutcomeAlreadyExists {
		t.Fatalf("expected outcome %q, got %q", importer.OutcomeAlreadyExists, second.Outcome)
	}
	if second.MangaID == nil || *second.MangaID != *first.MangaID {
		t.Fatalf("expected same manga id %d, got %v", *first.MangaID, second.MangaID)
	}
	if got := countManga(t, db); got != 1 {
		t.Fatalf("expected a single manga row, got %d", got)
	}
	if second.QueueRef == first.QueueRef {
		t.Fatal("each import request must get its own queue ref")
	}
}

func TestImportSkipsWorsePrioritySource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manga/solo_leveling" {
			_, _ = w.Write([]byte(manganeloDetailPage))
			return
		}
		_, _ = w.Write([]byte(asuraDetailPage))
	}))
	defer server.Close()

	service, db := newTestService(t, nil)

	first, err := service.Import(context.Background(), "asurascans", server.URL+"/series/solo-leveling")
	if err != nil {
		t.Fatalf("import from better source: %v", err)
	}

	second, err := service.Import(context.Background(), "manganelo", server.URL+"/manga/solo_leveling")
	if err != nil {
		t.Fatalf("import from worse source: %v", err)
	}

	if second.Outcome != importer.OutcomeDuplicateSkipped {
		t.Fatalf("expected outcome %q, got %q", importer.OutcomeDuplicateSkipped, second.Outcome)
	}
	if second.MangaID == nil || *second.MangaID != *first.MangaID {
		t.Fatalf("duplicate must reference existing manga %d, got %v", *first.MangaID, second.MangaID)
	}
	if got := countManga(t, db); got != 1 {
		t.Fatalf("expected a single manga row, got %d", got)
	}

	saved, err := repository.NewMangaRepository(db).GetByID(*first.MangaID)
	if err != nil {
		t.Fatalf("load manga: %v", err)
	}
	if saved.SourceKey != "asurascans" {
		t.Fatalf("attribution must stay with the better source, got %q", saved.SourceKey)
	}
}

func TestImportOverwritesFromBetterSourceKeepingUserFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manga/solo_leveling" {
			_, _ = w.Write([]byte(manganeloDetailPage))
			return
		}
		_, _ = w.Write([]byte(mangadexDetailPayload))
	}))
	defer server.Close()

	service, db := newTestService(t, nil)

	first, err := service.Import(context.Background(), "manganelo", server.URL+"/manga/solo_leveling")
	if err != nil {
		t.Fatalf("import from worse source: %v", err)
	}

	// Simulate a user touching the record between imports.
	_, err = db.Exec(
		`UPDATE manga SET rating = 4.5, view_count = 1234, publish_status = 'published' WHERE id = ?`,
		*first.MangaID,
	)
	if err != nil {
		t.Fatalf("set user fields: %v", err)
	}

	second, err := service.Import(context.Background(), "mangadex", server.URL+"/manga/bbbb2222")
	if err != nil {
		t.Fatalf("import from better source: %v", err)
	}

	if second.Outcome != importer.OutcomeImported {
		t.Fatalf("expected outcome %q, got %q", importer.OutcomeImported, second.Outcome)
	}
	if second.MangaID == nil || *second.MangaID != *first.MangaID {
		t.Fatalf("overwrite must stay on manga %d, got %v", *first.MangaID, second.MangaID)
	}
	if got := countManga(t, db); got != 1 {
		t.Fatalf("expected a single manga row, got %d", got)
	}

	saved, err := repository.NewMangaRepository(db).GetByID(*first.MangaID)
	if err != nil {
		t.Fatalf("load manga: %v", err)
	}
	if saved.SourceKey != "mangadex" {
		t.Fatalf("attribution should move to the better source, got %q", saved.SourceKey)
	}
	if saved.Author == nil || *saved.Author != "Chugong" {
		t.Fatalf("expected author 'Chugong', got %v", saved.Author)
	}
	if saved.Rating == nil || *saved.Rating != 4.5 {
		t.Fatalf("user rating must survive the overwrite, got %v", saved.Rating)
	}
	if saved.ViewCount != 1234 {
		t.Fatalf("user view count must survive the overwrite, got %d", saved.ViewCount)
	}
	if saved.PublishStatus != models.PublishStatusPublished {
		t.Fatalf("publish status must survive the overwrite, got %q", saved.PublishStatus)
	}
}

func TestImportRejectsPageWithoutTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="summary">nothing here</div></body></html>`))
	}))
	defer server.Close()

	service, db := newTestService(t, nil)
	pageURL := server.URL + "/series/broken"

	result, err := service.Import(context.Background(), "asurascans", pageURL)
	if !errors.Is(err, extract.ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
	if result == nil || result.Outcome != importer.OutcomeFailed {
		t.Fatalf("expected failed result, got %+v", result)
	}

	if got := countManga(t, db); got != 0 {
		t.Fatalf("no manga should be created, got %d rows", got)
	}

	item, err := repository.NewQueueRepository(db).GetByRef(result.QueueRef)
	if err != nil || item == nil {
		t.Fatalf("load queue item: %v", err)
	}
	if item.Status != models.QueueStatusFailed {
		t.Fatalf("expected failed queue item, got %q", item.Status)
	}
	if item.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", item.RetryCount)
	}
	if item.ErrorMessage == nil || *item.ErrorMessage == "" {
		t.Fatal("failed queue item must record the error")
	}

	// Unrelated to the page content: saved source url must stay unset so a
	// later retry is not short-circuited as already existing.
	existing, err := repository.NewMangaRepository(db).FindBySourceURL(pageURL)
	if err != nil {
		t.Fatalf("find by source url: %v", err)
	}
	if existing != nil {
		t.Fatalf("unexpected manga row for failed import: %+v", existing)
	}
}

func TestImportUnknownSource(t *testing.T) {
	service, _ := newTestService(t, nil)
	_, err := service.Import(context.Background(), "nosuchsite", "https://example.com/series/x")
	if !errors.Is(err, importer.ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestImportRejectsDisabledSource(t *testing.T) {
	service, db := newTestService(t, nil)
	sources := repository.NewSourceRepository(db)
	if updated, err := sources.SetEnabled("asurascans", false); err != nil || !updated {
		t.Fatalf("disable asurascans: updated=%v err=%v", updated, err)
	}

	_, err := service.Import(context.Background(), "asurascans", "https://asuracomic.net/series/solo-leveling")
	if !errors.Is(err, importer.ErrSourceDisabled) {
		t.Fatalf("expected ErrSourceDisabled, got %v", err)
	}

	var queued int
	if err := db.QueryRow(`SELECT COUNT(*) FROM scraper_queue`).Scan(&queued); err != nil {
		t.Fatalf("count queue: %v", err)
	}
	if queued != 0 {
		t.Fatalf("disabled source must not enqueue work, got %d items", queued)
	}

	if updated, err := sources.SetEnabled("asurascans", true); err != nil || !updated {
		t.Fatalf("re-enable asurascans: updated=%v err=%v", updated, err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(asuraDetailPage))
	}))
	defer server.Close()
	result, err := service.Import(context.Background(), "asurascans", server.URL+"/series/solo-leveling")
	if err != nil {
		t.Fatalf("import after re-enable: %v", err)
	}
	if result.Outcome != importer.OutcomeImported {
		t.Fatalf("expected imported after re-enable, got %q", result.Outcome)
	}
}

func TestConcurrentImportsOfSameTitleConvergeToOneRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manga/solo_leveling" {
			_, _ = w.Write([]byte(manganeloDetailPage))
			return
		}
		_, _ = w.Write([]byte(asuraDetailPage))
	}))
	defer server.Close()

	service, db := newTestService(t, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = service.Import(context.Background(), "asurascans", server.URL+"/series/solo-leveling")
	}()
	go func() {
		defer wg.Done()
		_, _ = service.Import(context.Background(), "manganelo", server.URL+"/manga/solo_leveling")
	}()
	wg.Wait()

	if got := countManga(t, db); got != 1 {
		t.Fatalf("concurrent imports of one title must yield one row, got %d", got)
	}

	saved, err := repository.NewMangaRepository(db).FindByNormalizedTitle("sololeveling")
	if err != nil || saved == nil {
		t.Fatalf("load merged manga: %v", err)
	}
	// Whichever order they ran in, the better source ends up attributed:
	// either it inserted first and the worse one skipped, or it overwrote.
	if saved.SourceKey != "asurascans" {
		t.Fatalf("expected final attribution 'asurascans', got %q", saved.SourceKey)
	}
}

func TestFetchImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/series/solo-leveling/chapter/1" {
			_, _ = w.Write([]byte(asuraChapterPage))
			return
		}
		_, _ = w.Write([]byte(asuraDetailPage))
	}))
	defer server.Close()

	service, _ := newTestService(t, nil)

	result, err := service.Import(context.Background(), "asurascans", server.URL+"/series/solo-leveling")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	chapter, err := service.FetchImages(context.Background(), "asurascans", *result.MangaID, 1, server.URL+"/series/solo-leveling/chapter/1")
	if err != nil {
		t.Fatalf("fetch images: %v", err)
	}

	want := []string{
		"https://asuracomic.net/pages/solo-1-001.webp",
		"https://asuracomic.net/pages/solo-1-002.webp",
	}
	if len(chapter.Images) != len(want) {
		t.Fatalf("expected %d images, got %v", len(want), chapter.Images)
	}
	for i, url := range want {
		if chapter.Images[i] != url {
			t.Fatalf("image %d: expected %q, got %q", i, url, chapter.Images[i])
		}
	}
}

func TestFetchImagesForUnknownChapter(t *testing.T) {
	service, _ := newTestService(t, nil)
	_, err := service.FetchImages(context.Background(), "asurascans", 42, 7, "https://example.com/chapter/7")
	if err == nil {
		t.Fatal("expected an error for a chapter that was never imported")
	}
}

func TestSearchRanksClosestMatchFirst(t *testing.T) {
	const searchPage = `<html><body>
	<a href="/series/tower-of-god" title="Tower of God"></a>
	<a href="/series/solo-leveling" title="Solo Leveling"></a>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchPage))
	}))
	defer server.Close()

	registry := scrape.NewRegistry()
	if err := registry.Register(asurascans.NewAdapterWithOptions(server.URL, 2)); err != nil {
		t.Fatalf("register adapter: %v", err)
	}

	service, _ := newTestService(t, registry)
	results, err := service.Search(context.Background(), "asurascans", "solo leveling")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Solo Leveling" {
		t.Fatalf("expected closest match first, got %q", results[0].Title)
	}
}
