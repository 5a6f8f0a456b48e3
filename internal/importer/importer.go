package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/radustef/mangapipe/internal/extract"
	"github.com/radustef/mangapipe/internal/models"
	"github.com/radustef/mangapipe/internal/repository"
	"github.com/radustef/mangapipe/internal/resolve"
	"github.com/radustef/mangapipe/internal/scrape"
)

// Import outcomes. Callers can tell a fresh insert apart from an idempotent
// re-import of the same URL and from a cross-site duplicate that lost on
// source priority.
const (
	OutcomeImported         = "imported"
	OutcomeAlreadyExists    = "already_exists"
	OutcomeDuplicateSkipped = "duplicate_skipped"
	OutcomeFailed           = "failed"
)

var (
	ErrUnknownSource  = errors.New("unknown source")
	ErrSourceDisabled = errors.New("source is disabled")
)

// Fetcher retrieves page text for a URL.
type Fetcher interface {
	Text(ctx context.Context, rawURL string) (string, error)
}

type Result struct {
	Outcome       string `json:"outcome"`
	QueueRef      string `json:"queueRef,omitempty"`
	MangaID       *int64 `json:"mangaId,omitempty"`
	ChaptersAdded int    `json:"chaptersAdded"`
}

// Service runs the import pipeline: fetch, parse, extract, resolve against
// the catalog, persist. Every import is tracked as a queue item so callers
// can inspect and retry it later by ref.
type Service struct {
	fetcher  Fetcher
	registry *scrape.Registry
	engine   *extract.Engine
	mangas   *repository.MangaRepository
	chapters *repository.ChapterRepository
	queue    *repository.QueueRepository
	sources  *repository.SourceRepository
	keys     *resolve.KeyLock
	logger   *slog.Logger
}

func NewService(
	fetcher Fetcher,
	registry *scrape.Registry,
	engine *extract.Engine,
	mangas *repository.MangaRepository,
	chapters *repository.ChapterRepository,
	queue *repository.QueueRepository,
	sources *repository.SourceRepository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:  fetcher,
		registry: registry,
		engine:   engine,
		mangas:   mangas,
		chapters: chapters,
		queue:    queue,
		sources:  sources,
		keys:     resolve.NewKeyLock(),
		logger:   logger,
	}
}

// adapterFor resolves a registered, operator-enabled adapter. A missing
// sources row counts as enabled so yaml adapters work without seeding.
func (s *Service) adapterFor(sourceKey string) (scrape.Adapter, error) {
	adapter, ok := s.registry.Get(sourceKey)
	if !ok {
		return nil, fmt.Errorf("source %q: %w", sourceKey, ErrUnknownSource)
	}

	source, err := s.sources.GetByKey(sourceKey)
	if err != nil {
		return nil, err
	}
	if source != nil && !source.Enabled {
		return nil, fmt.Errorf("source %q: %w", sourceKey, ErrSourceDisabled)
	}
	return adapter, nil
}

// Search fetches a source's search page for the query and returns its
// results ranked by fuzzy closeness to the query.
func (s *Service) Search(ctx context.Context, sourceKey, query string) ([]scrape.SearchResult, error) {
	adapter, err := s.adapterFor(sourceKey)
	if err != nil {
		return nil, err
	}

	raw, err := s.fetcher.Text(ctx, adapter.BuildSearchURL(query))
	if err != nil {
		return nil, fmt.Errorf("search %q on %s: %w", query, sourceKey, err)
	}

	results := adapter.ParseSearchResults(raw)
	return resolve.RankResults(query, results), nil
}

// Import queues and immediately processes one manga URL. The returned
// result always carries the queue ref; when processing fails the queue item
// records the error and the result outcome is "failed" alongside the error.
func (s *Service) Import(ctx context.Context, sourceKey, mangaURL string) (*Result, error) {
	adapter, err := s.adapterFor(sourceKey)
	if err != nil {
		return nil, err
	}

	item, err := s.queue.Create(&models.QueueItem{
		Ref:       uuid.NewString(),
		SourceKey: sourceKey,
		MangaURL:  mangaURL,
		Status:    models.QueueStatusPending,
		Priority:  adapter.SitePriority(),
	})
	if err != nil {
		return nil, fmt.Errorf("queue import: %w", err)
	}

	claimed, err := s.queue.Claim(item.ID)
	if err != nil {
		return nil, fmt.Errorf("claim queue item %s: %w", item.Ref, err)
	}
	if !claimed {
		// Another worker picked it up between create and claim; the caller
		// can poll the ref for the outcome.
		return &Result{Outcome: OutcomeFailed, QueueRef: item.Ref}, fmt.Errorf("queue item %s already claimed", item.Ref)
	}

	return s.Process(ctx, item)
}

// Process runs an already-claimed queue item through the pipeline and
// settles its final status. The scheduler calls this for items it claims
// from the backlog.
func (s *Service) Process(ctx context.Context, item *models.QueueItem) (*Result, error) {
	result, err := s.run(ctx, item)
	if err != nil {
		if markErr := s.queue.MarkFailed(item.ID, err.Error()); markErr != nil {
			s.logger.Error("mark queue item failed", "ref", item.Ref, "error", markErr)
		}
		s.logger.Warn("import failed", "ref", item.Ref, "source", item.SourceKey, "url", item.MangaURL, "error", err)
		return &Result{Outcome: OutcomeFailed, QueueRef: item.Ref}, err
	}

	result.QueueRef = item.Ref
	if err := s.queue.MarkCompleted(item.ID, result.MangaID); err != nil {
		s.logger.Error("mark queue item completed", "ref", item.Ref, "error", err)
	}
	s.logger.Info("import finished",
		"ref", item.Ref,
		"source", item.SourceKey,
		"outcome", result.Outcome,
		"chapters_added", result.ChaptersAdded,
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, item *models.QueueItem) (*Result, error) {
	// Re-checked here so a source disabled after queueing fails the item
	// instead of importing behind the operator's back.
	adapter, err := s.adapterFor(item.SourceKey)
	if err != nil {
		return nil, err
	}

	// Re-importing a URL we already hold is a no-op, not a failure.
	existing, err := s.mangas.FindBySourceURL(item.MangaURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{Outcome: OutcomeAlreadyExists, MangaID: &existing.ID}, nil
	}

	raw, err := s.fetcher.Text(ctx, item.MangaURL)
	if err != nil {
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}

	// Content sites list chapters on the detail page itself; metadata
	// sources contribute catalog fields only.
	chapterRaw := ""
	if adapter.Kind() == scrape.KindContent {
		chapterRaw = raw
	}

	candidate, err := s.engine.Candidate(adapter, raw, chapterRaw, item.MangaURL)
	if err != nil {
		return nil, err
	}

	key := resolve.NormalizeTitle(candidate.Manga.Title)
	unlock := s.keys.Lock(key)
	defer unlock()

	catalogEntry, err := s.mangas.FindByNormalizedTitle(key)
	if err != nil {
		return nil, err
	}

	decision := resolve.Resolve(candidate.Manga, catalogEntry, s.registry.Priority)
	switch decision.Kind {
	case resolve.Insert:
		candidate.Manga.NormalizedTitle = key
		created, err := s.mangas.Create(&candidate.Manga)
		if err != nil {
			return nil, fmt.Errorf("insert manga: %w", err)
		}
		added, err := s.saveChapters(created.ID, candidate.Chapters)
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeImported, MangaID: &created.ID, ChaptersAdded: added}, nil

	case resolve.UpdateOverwrite:
		merged := resolve.Merge(*catalogEntry, candidate.Manga)
		if err := s.mangas.Update(decision.ExistingID, &merged); err != nil {
			return nil, fmt.Errorf("overwrite manga %d: %w", decision.ExistingID, err)
		}
		added, err := s.saveChapters(decision.ExistingID, candidate.Chapters)
		if err != nil {
			return nil, err
		}
		id := decision.ExistingID
		return &Result{Outcome: OutcomeImported, MangaID: &id, ChaptersAdded: added}, nil

	default:
		id := decision.ExistingID
		return &Result{Outcome: OutcomeDuplicateSkipped, MangaID: &id}, nil
	}
}

// FetchImages resolves one chapter's page images and stores them. The
// chapter must already exist from a prior import.
func (s *Service) FetchImages(ctx context.Context, sourceKey string, mangaID int64, number float64, chapterURL string) (*models.Chapter, error) {
	if _, err := s.adapterFor(sourceKey); err != nil {
		return nil, err
	}
	adapter, ok := s.registry.GetContent(sourceKey)
	if !ok {
		return nil, fmt.Errorf("fetch images from %q: %w", sourceKey, ErrUnknownSource)
	}

	chapter, err := s.chapters.GetByMangaAndNumber(mangaID, number)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, fmt.Errorf("chapter %g of manga %d not imported", number, mangaID)
	}

	raw, err := s.fetcher.Text(ctx, chapterURL)
	if err != nil {
		return nil, fmt.Errorf("fetch chapter page: %w", err)
	}

	images := adapter.ParseChapterImages(raw)
	if len(images) == 0 {
		return nil, fmt.Errorf("no page images found at %s", chapterURL)
	}

	if err := s.chapters.UpdateImages(chapter.ID, images); err != nil {
		return nil, err
	}
	return s.chapters.GetByID(chapter.ID)
}

func (s *Service) saveChapters(mangaID int64, refs []scrape.ChapterRef) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	existing, err := s.chapters.ExistingNumbers(mangaID)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, ref := range refs {
		if _, ok := existing[ref.Number]; ok {
			continue
		}
		chapter := &models.Chapter{MangaID: mangaID, Number: ref.Number}
		if ref.Title != "" {
			title := ref.Title
			chapter.Title = &title
		}
		if _, err := s.chapters.Create(chapter); err != nil {
			return added, fmt.Errorf("insert chapter %g: %w", ref.Number, err)
		}
		added++
	}
	return added, nil
}
