package yamladapter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/radustef/mangapipe/internal/scrape"
)

type Adapter struct {
	cfg Config

	searchResults []*regexp.Regexp
	title         []*regexp.Regexp
	summary       []*regexp.Regexp
	cover         []*regexp.Regexp
	author        []*regexp.Regexp
	status        []*regexp.Regexp
	genres        []*regexp.Regexp
	chapterList   []*regexp.Regexp
	chapterImages []*regexp.Regexp
}

func NewAdapter(cfg Config) (*Adapter, error) {
	if err := cfg.normalizeAndValidate(); err != nil {
		return nil, err
	}

	adapter := &Adapter{cfg: cfg}
	var err error

	if adapter.searchResults, err = compileAll("search_results", cfg.Patterns.SearchResults); err != nil {
		return nil, err
	}
	if adapter.title, err = compileAll("title", cfg.Patterns.Title); err != nil {
		return nil, err
	}
	if adapter.summary, err = compileAll("summary", cfg.Patterns.Summary); err != nil {
		return nil, err
	}
	if adapter.cover, err = compileAll("cover", cfg.Patterns.Cover); err != nil {
		return nil, err
	}
	if adapter.author, err = compileAll("author", cfg.Patterns.Author); err != nil {
		return nil, err
	}
	if adapter.status, err = compileAll("status", cfg.Patterns.Status); err != nil {
		return nil, err
	}
	if adapter.genres, err = compileAll("genres", cfg.Patterns.Genres); err != nil {
		return nil, err
	}
	if adapter.chapterList, err = compileAll("chapter_list", cfg.Patterns.ChapterList); err != nil {
		return nil, err
	}
	if adapter.chapterImages, err = compileAll("chapter_images", cfg.Patterns.ChapterImages); err != nil {
		return nil, err
	}

	return adapter, nil
}

func compileAll(field string, raw []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(raw))
	for _, pattern := range raw {
		re, err := regexp.Compile("(?is)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile patterns.%s %q: %w", field, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func (a *Adapter) Key() string       { return a.cfg.Key }
func (a *Adapter) Name() string      { return a.cfg.Name }
func (a *Adapter) Kind() string      { return a.cfg.Kind }
func (a *Adapter) SitePriority() int { return a.cfg.SitePriority }

func (a *Adapter) BuildSearchURL(query string) string {
	path := strings.ReplaceAll(a.cfg.Search.URLTemplate, "{query}", url.QueryEscape(strings.TrimSpace(query)))
	return scrape.AbsoluteURL(a.cfg.BaseURL, path)
}

func (a *Adapter) ParseSearchResults(raw string) []scrape.SearchResult {
	results := make([]scrape.SearchResult, 0, 8)
	seen := make(map[string]struct{})

	for _, re := range a.searchResults {
		matches := re.FindAllStringSubmatch(raw, -1)
		if len(matches) == 0 {
			continue
		}
		for _, match := range matches {
			if len(match) < 3 {
				continue
			}
			href := strings.TrimSpace(match[1])
			title := scrape.CleanText(match[2])
			if href == "" || title == "" {
				continue
			}
			if _, dup := seen[href]; dup {
				continue
			}
			seen[href] = struct{}{}

			result := scrape.SearchResult{
				Title: title,
				URL:   scrape.AbsoluteURL(a.cfg.BaseURL, href),
			}
			if len(match) > 3 {
				result.CoverURL = scrape.AbsoluteURL(a.cfg.BaseURL, match[3])
			}
			results = append(results, result)
		}
		break
	}

	return results
}

func (a *Adapter) ParseDetail(raw string, _ string) scrape.Detail {
	detail := scrape.Detail{
		Title:    scrape.CleanText(scrape.FirstSubmatch(raw, a.title...)),
		Summary:  scrape.CleanText(scrape.FirstSubmatch(raw, a.summary...)),
		Author:   scrape.CleanText(scrape.FirstSubmatch(raw, a.author...)),
		Status:   mapStatus(scrape.FirstSubmatch(raw, a.status...)),
		CoverURL: scrape.AbsoluteURL(a.cfg.BaseURL, scrape.FirstSubmatch(raw, a.cover...)),
	}

	seen := make(map[string]struct{})
	for _, match := range scrape.AllSubmatches(raw, a.genres...) {
		if len(match) < 2 {
			continue
		}
		genre := scrape.CleanText(match[1])
		if genre == "" {
			continue
		}
		if _, dup := seen[genre]; dup {
			continue
		}
		seen[genre] = struct{}{}
		detail.Genres = append(detail.Genres, genre)
	}

	return detail
}

func (a *Adapter) ParseChapterList(raw string) []scrape.ChapterRef {
	refs := make([]scrape.ChapterRef, 0, 16)
	for _, match := range scrape.AllSubmatches(raw, a.chapterList...) {
		if len(match) < 3 {
			continue
		}
		number, ok := scrape.ParseChapterNumber(match[2])
		if !ok {
			continue
		}
		ref := scrape.ChapterRef{
			Number: number,
			URL:    scrape.AbsoluteURL(a.cfg.BaseURL, match[1]),
		}
		if len(match) > 3 {
			ref.Title = scrape.CleanText(match[3])
		}
		refs = append(refs, ref)
	}
	return scrape.SortChapterRefs(refs)
}

func (a *Adapter) ParseChapterImages(raw string) []string {
	urls := make([]string, 0, 16)
	for _, match := range scrape.AllSubmatches(raw, a.chapterImages...) {
		if len(match) < 2 {
			continue
		}
		urls = append(urls, scrape.AbsoluteURL(a.cfg.BaseURL, match[1]))
	}
	return scrape.FilterImageURLs(urls)
}

func mapStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ongoing", "releasing", "publishing":
		return "ongoing"
	case "completed", "finished":
		return "completed"
	case "hiatus", "paused":
		return "hiatus"
	default:
		return ""
	}
}
