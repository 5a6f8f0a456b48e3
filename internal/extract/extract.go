package extract

import (
	"errors"
	"fmt"

	"github.com/radustef/mangapipe/internal/models"
	"github.com/radustef/mangapipe/internal/scrape"
)

// ErrMissingTitle marks a page the adapter could not pull a title from.
// Retrying the fetch will not help, so callers must not re-queue these.
var ErrMissingTitle = errors.New("extracted candidate has no title")

const DefaultChapterCap = 200

// Candidate is an extracted, unsaved manga with the chapters discovered for
// it, not yet reconciled against the catalog.
type Candidate struct {
	Manga    models.Manga
	Chapters []scrape.ChapterRef
}

// Engine assembles candidates from already-fetched page text. All
// site-specific knowledge lives in the adapter; the engine only enforces
// structural rules: a candidate must have a title, and chapter imports are
// capped so a 3000-chapter backlog cannot stall an import.
type Engine struct {
	chapterCap int
}

func NewEngine(chapterCap int) *Engine {
	if chapterCap <= 0 {
		chapterCap = DefaultChapterCap
	}
	return &Engine{chapterCap: chapterCap}
}

func (e *Engine) ChapterCap() int { return e.chapterCap }

// Candidate runs the adapter's detail parser over detailRaw and, for
// content adapters, the chapter-list parser over chapterRaw. chapterRaw may
// be empty when only metadata was fetched.
func (e *Engine) Candidate(adapter scrape.Adapter, detailRaw, chapterRaw, pageURL string) (*Candidate, error) {
	detail := adapter.ParseDetail(detailRaw, pageURL)
	if detail.Title == "" {
		return nil, fmt.Errorf("extract from %s: %w", adapter.Key(), ErrMissingTitle)
	}

	manga := models.Manga{
		Title:            detail.Title,
		AlternativeNames: detail.AlternativeNames,
		Genres:           detail.Genres,
		SourceKey:        adapter.Key(),
		PublishStatus:    models.PublishStatusDraft,
	}
	if pageURL != "" {
		manga.SourceURL = &pageURL
	}
	if detail.Summary != "" {
		manga.Summary = &detail.Summary
	}
	if detail.Author != "" {
		manga.Author = &detail.Author
	}
	if detail.Artist != "" {
		manga.Artist = &detail.Artist
	}
	if detail.Status != "" {
		manga.Status = &detail.Status
	}
	if detail.ReleaseYear != 0 {
		year := detail.ReleaseYear
		manga.ReleaseYear = &year
	}
	if detail.CoverURL != "" {
		manga.CoverURL = &detail.CoverURL
	}

	candidate := &Candidate{Manga: manga}

	if chapterRaw != "" {
		if content, ok := adapter.(scrape.ContentAdapter); ok {
			refs := content.ParseChapterList(chapterRaw)
			if len(refs) > e.chapterCap {
				refs = refs[:e.chapterCap]
			}
			candidate.Chapters = refs
		}
	}

	return candidate, nil
}
