package manganelo

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/radustef/mangapipe/internal/scrape"
)

var (
	searchItemPattern  = regexp.MustCompile(`(?is)<a[^>]+class=["'][^"']*item-img[^"']*["'][^>]+href=["']([^"']+)["'][^>]+title=["']([^"']+)["'][^>]*>\s*<img[^>]+src=["']([^"']+)["']`)
	searchStoryPattern = regexp.MustCompile(`(?is)<h3[^>]*>\s*<a[^>]+href=["']([^"']+)["'][^>]*>([^<]+)</a>\s*</h3>`)
	searchHrefPattern  = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']*(?:/manga[/-][^"']+|/read-[^"']+))["'][^>]*\btitle=["']([^"']+)["']`)

	infoTitlePattern = regexp.MustCompile(`(?is)<div[^>]+class=["'][^"']*story-info-right[^"']*["'][^>]*>\s*<h1[^>]*>(.*?)</h1>`)
	h1Pattern        = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	metaTitlePattern = regexp.MustCompile(`(?is)<meta\s+[^>]*property=["']og:title["'][^>]*content=["']([^"']+)["']`)

	altRowPattern     = regexp.MustCompile(`(?is)alternative\s*:?\s*</[^>]+>\s*<[^>]+>\s*([^<]+)`)
	authorRowPattern  = regexp.MustCompile(`(?is)author\(?s?\)?\s*:?\s*</[^>]+>\s*(?:<td[^>]*>\s*)?(?:<a[^>]*>)?\s*([^<]+)`)
	statusRowPattern  = regexp.MustCompile(`(?is)status\s*:?\s*</[^>]+>\s*<[^>]+>\s*([A-Za-z]+)`)
	genreRowPattern   = regexp.MustCompile(`(?is)<a[^>]+class=["'][^"']*a-h[^"']*["'][^>]+href=["'][^"']*genre[^"']*["'][^>]*>([^<]+)</a>`)
	genreLinkPattern  = regexp.MustCompile(`(?is)<a[^>]+href=["'][^"']*[/-]genre[/-][^"']*["'][^>]*>([^<]+)</a>`)
	descPattern       = regexp.MustCompile(`(?is)<div[^>]+(?:id=["']panel-story-info-description["']|class=["'][^"']*panel-story-info-description[^"']*["'])[^>]*>(.*?)</div>`)
	metaDescPattern   = regexp.MustCompile(`(?is)<meta\s+[^>]*name=["']description["'][^>]*content=["']([^"']+)["']`)
	coverSpanPattern  = regexp.MustCompile(`(?is)<span[^>]+class=["'][^"']*info-image[^"']*["'][^>]*>\s*<img[^>]+src=["']([^"']+)["']`)
	metaImagePattern  = regexp.MustCompile(`(?is)<meta\s+[^>]*property=["']og:image["'][^>]*content=["']([^"']+)["']`)

	chapterRowPattern  = regexp.MustCompile(`(?is)<a[^>]+class=["'][^"']*chapter-name[^"']*["'][^>]+href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	chapterHrefPattern = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']*chapter[_-](\d+(?:\.\d+)?)[^"']*)["'][^>]*>(.*?)</a>`)

	readerImagePattern = regexp.MustCompile(`(?is)<div[^>]+class=["'][^"']*container-chapter-reader[^"']*["'][^>]*>(.*?)</div>`)
	imgSrcPattern      = regexp.MustCompile(`(?is)<img[^>]+src=["']([^"']+\.(?:jpe?g|png|webp)[^"']*)["']`)

	searchSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

type Adapter struct {
	baseURL  string
	priority int
}

func NewAdapter() *Adapter {
	return &Adapter{baseURL: "https://m.manganelo.com", priority: 3}
}

func NewAdapterWithOptions(baseURL string, priority int) *Adapter {
	if baseURL == "" {
		baseURL = "https://m.manganelo.com"
	}
	return &Adapter{baseURL: strings.TrimRight(baseURL, "/"), priority: priority}
}

func (a *Adapter) Key() string       { return "manganelo" }
func (a *Adapter) Name() string      { return "Manganelo" }
func (a *Adapter) Kind() string      { return scrape.KindContent }
func (a *Adapter) SitePriority() int { return a.priority }

// Search slugs replace everything non-alphanumeric with underscores, the
// site 404s on raw query strings.
func (a *Adapter) BuildSearchURL(query string) string {
	slug := strings.TrimSpace(strings.ToLower(query))
	slug = searchSlugPattern.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	return a.baseURL + "/search/story/" + url.PathEscape(slug)
}

func (a *Adapter) ParseSearchResults(raw string) []scrape.SearchResult {
	results := make([]scrape.SearchResult, 0, 8)
	seen := make(map[string]struct{})

	for _, match := range searchItemPattern.FindAllStringSubmatch(raw, -1) {
		appendResult(&results, seen, match[1], match[2], match[3])
	}
	if len(results) == 0 {
		for _, match := range searchStoryPattern.FindAllStringSubmatch(raw, -1) {
			appendResult(&results, seen, match[1], match[2], "")
		}
	}
	if len(results) == 0 {
		for _, match := range searchHrefPattern.FindAllStringSubmatch(raw, -1) {
			appendResult(&results, seen, match[1], match[2], "")
		}
	}

	return results
}

func appendResult(results *[]scrape.SearchResult, seen map[string]struct{}, href, title, cover string) {
	cleanHref := strings.TrimSpace(href)
	cleanTitle := scrape.CleanText(title)
	if cleanHref == "" || cleanTitle == "" {
		return
	}
	if _, dup := seen[cleanHref]; dup {
		return
	}
	seen[cleanHref] = struct{}{}

	*results = append(*results, scrape.SearchResult{
		Title:      cleanTitle,
		URL:        cleanHref,
		CoverURL:   strings.TrimSpace(cover),
		ExternalID: externalIDFromURL(cleanHref),
	})
}

func externalIDFromURL(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func (a *Adapter) ParseDetail(raw string, _ string) scrape.Detail {
	detail := scrape.Detail{
		Title:    scrape.CleanText(scrape.FirstSubmatch(raw, infoTitlePattern, h1Pattern, metaTitlePattern)),
		Summary:  scrape.CleanText(scrape.FirstSubmatch(raw, descPattern, metaDescPattern)),
		Author:   scrape.CleanText(scrape.FirstSubmatch(raw, authorRowPattern)),
		Status:   mapStatus(scrape.FirstSubmatch(raw, statusRowPattern)),
		CoverURL: scrape.FirstSubmatch(raw, coverSpanPattern, metaImagePattern),
	}

	if block := scrape.FirstSubmatch(raw, altRowPattern); block != "" {
		for _, part := range strings.FieldsFunc(block, func(r rune) bool { return r == ';' || r == ',' || r == '/' }) {
			if name := scrape.CleanText(part); name != "" && name != detail.Title {
				detail.AlternativeNames = append(detail.AlternativeNames, name)
			}
		}
	}

	matches := scrape.AllSubmatches(raw, genreRowPattern, genreLinkPattern)
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
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

	matches := chapterRowPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) > 0 {
		for _, match := range matches {
			label := scrape.CleanText(match[2])
			number, ok := scrape.ParseChapterNumber(label)
			if !ok {
				// Fall back to the href, the label can be decorative.
				number, ok = scrape.ParseChapterNumber(match[1])
			}
			if !ok {
				continue
			}
			refs = append(refs, scrape.ChapterRef{Number: number, Title: label, URL: match[1]})
		}
		return scrape.SortChapterRefs(refs)
	}

	for _, match := range chapterHrefPattern.FindAllStringSubmatch(raw, -1) {
		number, ok := scrape.ParseChapterNumber(match[2])
		if !ok {
			continue
		}
		refs = append(refs, scrape.ChapterRef{Number: number, Title: scrape.CleanText(match[3]), URL: match[1]})
	}
	return scrape.SortChapterRefs(refs)
}

func (a *Adapter) ParseChapterImages(raw string) []string {
	// Prefer images inside the reader container; fall back to the whole page.
	scope := raw
	if match := readerImagePattern.FindStringSubmatch(raw); len(match) > 1 {
		scope = match[1]
	}

	matches := imgSrcPattern.FindAllStringSubmatch(scope, -1)
	urls := make([]string, 0, len(matches))
	for _, match := range matches {
		urls = append(urls, strings.TrimSpace(match[1]))
	}
	return scrape.FilterImageURLs(urls)
}

func mapStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ongoing":
		return "ongoing"
	case "completed":
		return "completed"
	case "hiatus", "paused":
		return "hiatus"
	default:
		return ""
	}
}
