package asurascans

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/radustef/mangapipe/internal/scrape"
)

// Search result cards. The site swaps themes without notice, so each parse
// carries an ordered cascade of patterns and the first one that matches wins.
var (
	searchCardPattern   = regexp.MustCompile(`(?is)<a[^>]+href=["'](?:https?://[^"']+)?(/series/[a-z0-9-]+)["'][^>]*>.*?<img[^>]+src=["']([^"']+)["'][^>]*>.*?(?:<span[^>]*class=["'][^"']*(?:block|font-bold)[^"']*["'][^>]*>|<h3[^>]*>)\s*([^<]+)`)
	searchAnchorPattern = regexp.MustCompile(`(?is)<a[^>]+href=["'](?:https?://[^"']+)?(/series/[a-z0-9-]+)["'][^>]*\btitle=["']([^"']+)["']`)
	searchPlainPattern  = regexp.MustCompile(`(?is)<a[^>]+href=["'](?:https?://[^"']+)?(/series/[a-z0-9-]+)["'][^>]*>\s*([^<][^<]*?)\s*</a>`)

	metaTitlePattern = regexp.MustCompile(`(?is)<meta\s+[^>]*property=["']og:title["'][^>]*content=["']([^"']+)["']`)
	h1TitlePattern   = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	titleTagPattern  = regexp.MustCompile(`(?is)<title>(.*?)</title>`)

	metaImagePattern  = regexp.MustCompile(`(?is)<meta\s+[^>]*(?:property=["']og:image["']|name=["']twitter:image["'])[^>]*content=["']([^"']+)["']`)
	summaryPattern    = regexp.MustCompile(`(?is)<div[^>]+class=["'][^"']*(?:summary|description)[^"']*["'][^>]*>(.*?)</div>`)
	metaDescPattern   = regexp.MustCompile(`(?is)<meta\s+[^>]*(?:property=["']og:description["']|name=["']description["'])[^>]*content=["']([^"']+)["']`)
	genreLinkPattern  = regexp.MustCompile(`(?is)<a[^>]+href=["'][^"']*/genres?/[^"']*["'][^>]*>([^<]+)</a>`)
	statusPattern     = regexp.MustCompile(`(?is)status\s*</[^>]+>\s*<[^>]+>\s*([A-Za-z]+)`)
	authorPattern     = regexp.MustCompile(`(?is)author\s*</[^>]+>\s*<[^>]+>\s*([^<]+)`)
	artistPattern     = regexp.MustCompile(`(?is)artist\s*</[^>]+>\s*<[^>]+>\s*([^<]+)`)
	altNamesPattern   = regexp.MustCompile(`(?is)alternative\s+names?\s*:?\s*</?[^>]*>\s*([^<]+)`)
	yearPattern       = regexp.MustCompile(`(?is)released?\s*</[^>]+>\s*<[^>]+>\s*(\d{4})`)

	chapterLinkPattern  = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']*/chapter/(\d+(?:\.\d+)?)[^"']*)["'][^>]*>(.*?)</a>`)
	chapterPlainPattern = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']*[/-]ch(?:apter)?[/-](\d+(?:\.\d+)?)[^"']*)["'][^>]*>(.*?)</a>`)

	pageImagePattern = regexp.MustCompile(`(?is)<img[^>]+src=["']([^"']+\.(?:jpe?g|png|webp)[^"']*)["'][^>]*(?:class=["'][^"']*(?:page|chapter)[^"']*["'])?`)
)

type Adapter struct {
	baseURL  string
	priority int
}

func NewAdapter() *Adapter {
	return &Adapter{baseURL: "https://asuracomic.net", priority: 2}
}

func NewAdapterWithOptions(baseURL string, priority int) *Adapter {
	if baseURL == "" {
		baseURL = "https://asuracomic.net"
	}
	return &Adapter{baseURL: strings.TrimRight(baseURL, "/"), priority: priority}
}

func (a *Adapter) Key() string       { return "asurascans" }
func (a *Adapter) Name() string      { return "Asura Scans" }
func (a *Adapter) Kind() string      { return scrape.KindContent }
func (a *Adapter) SitePriority() int { return a.priority }

func (a *Adapter) BuildSearchURL(query string) string {
	return a.baseURL + "/series?page=1&name=" + url.QueryEscape(strings.TrimSpace(query))
}

func (a *Adapter) ParseSearchResults(raw string) []scrape.SearchResult {
	results := make([]scrape.SearchResult, 0, 8)
	seen := make(map[string]struct{})

	for _, match := range searchCardPattern.FindAllStringSubmatch(raw, -1) {
		a.appendResult(&results, seen, match[1], match[3], match[2])
	}
	if len(results) == 0 {
		for _, match := range searchAnchorPattern.FindAllStringSubmatch(raw, -1) {
			a.appendResult(&results, seen, match[1], match[2], "")
		}
	}
	if len(results) == 0 {
		for _, match := range searchPlainPattern.FindAllStringSubmatch(raw, -1) {
			a.appendResult(&results, seen, match[1], match[2], "")
		}
	}

	return results
}

func (a *Adapter) appendResult(results *[]scrape.SearchResult, seen map[string]struct{}, href, title, cover string) {
	path := strings.TrimSpace(href)
	cleanTitle := scrape.CleanText(title)
	if path == "" || cleanTitle == "" {
		return
	}
	if _, dup := seen[path]; dup {
		return
	}
	seen[path] = struct{}{}

	*results = append(*results, scrape.SearchResult{
		Title:      cleanTitle,
		URL:        scrape.AbsoluteURL(a.baseURL, path),
		CoverURL:   scrape.AbsoluteURL(a.baseURL, cover),
		ExternalID: strings.TrimPrefix(path, "/series/"),
	})
}

func (a *Adapter) ParseDetail(raw string, _ string) scrape.Detail {
	detail := scrape.Detail{
		Title:    cleanSiteSuffix(scrape.FirstSubmatch(raw, metaTitlePattern, h1TitlePattern, titleTagPattern)),
		Summary:  scrape.CleanText(scrape.FirstSubmatch(raw, summaryPattern, metaDescPattern)),
		Author:   scrape.CleanText(scrape.FirstSubmatch(raw, authorPattern)),
		Artist:   scrape.CleanText(scrape.FirstSubmatch(raw, artistPattern)),
		Status:   mapStatus(scrape.FirstSubmatch(raw, statusPattern)),
		CoverURL: scrape.AbsoluteURL(a.baseURL, scrape.FirstSubmatch(raw, metaImagePattern)),
	}

	if year := scrape.FirstSubmatch(raw, yearPattern); year != "" {
		if parsed, ok := scrape.ParseChapterNumber(year); ok {
			detail.ReleaseYear = int(parsed)
		}
	}

	for _, match := range genreLinkPattern.FindAllStringSubmatch(raw, -1) {
		if genre := scrape.CleanText(match[1]); genre != "" {
			detail.Genres = append(detail.Genres, genre)
		}
	}

	if block := scrape.FirstSubmatch(raw, altNamesPattern); block != "" {
		for _, part := range strings.FieldsFunc(block, func(r rune) bool { return r == '|' || r == ';' || r == ',' }) {
			if name := scrape.CleanText(part); name != "" {
				detail.AlternativeNames = append(detail.AlternativeNames, name)
			}
		}
	}

	return detail
}

func (a *Adapter) ParseChapterList(raw string) []scrape.ChapterRef {
	refs := make([]scrape.ChapterRef, 0, 16)
	matches := scrape.AllSubmatches(raw, chapterLinkPattern, chapterPlainPattern)
	for _, match := range matches {
		number, ok := scrape.ParseChapterNumber(match[2])
		if !ok {
			continue
		}
		refs = append(refs, scrape.ChapterRef{
			Number: number,
			Title:  scrape.CleanText(match[3]),
			URL:    scrape.AbsoluteURL(a.baseURL, match[1]),
		})
	}
	return scrape.SortChapterRefs(refs)
}

func (a *Adapter) ParseChapterImages(raw string) []string {
	matches := pageImagePattern.FindAllStringSubmatch(raw, -1)
	urls := make([]string, 0, len(matches))
	for _, match := range matches {
		urls = append(urls, scrape.AbsoluteURL(a.baseURL, match[1]))
	}
	return scrape.FilterImageURLs(urls)
}

func mapStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ongoing", "season", "publishing":
		return "ongoing"
	case "completed", "finished", "dropped":
		return "completed"
	case "hiatus":
		return "hiatus"
	default:
		return ""
	}
}

// cleanSiteSuffix drops the " - Asura Scans" style suffix the og:title and
// title tag carry.
func cleanSiteSuffix(title string) string {
	clean := scrape.CleanText(title)
	for _, sep := range []string{" - ", " | ", " – "} {
		if idx := strings.Index(clean, sep); idx > 0 {
			clean = clean[:idx]
		}
	}
	return strings.TrimSpace(clean)
}
