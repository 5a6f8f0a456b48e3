package scrape

import (
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	htmlTagPattern    = regexp.MustCompile(`(?is)<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// FirstSubmatch runs patterns in order against body and returns the first
// capture group of the first pattern that matches. Sites change templates
// without notice, so parsers carry an ordered cascade of candidate patterns
// and the first non-empty match wins.
func FirstSubmatch(body string, patterns ...*regexp.Regexp) string {
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(body)
		if len(match) > 1 && strings.TrimSpace(match[1]) != "" {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

// AllSubmatches returns submatches of the first pattern in the cascade that
// yields at least one match.
func AllSubmatches(body string, patterns ...*regexp.Regexp) [][]string {
	for _, pattern := range patterns {
		matches := pattern.FindAllStringSubmatch(body, -1)
		if len(matches) > 0 {
			return matches
		}
	}
	return nil
}

// CleanText strips tags, unescapes entities and collapses whitespace.
func CleanText(raw string) string {
	clean := htmlTagPattern.ReplaceAllString(raw, " ")
	clean = html.UnescapeString(clean)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(clean, " "))
}

// imageURLBlocklist marks URLs that are site chrome, not manga pages.
var imageURLBlocklist = []string{"logo", "avatar", "banner", "icon", "thumb"}

// FilterImageURLs drops non-page assets and de-duplicates while preserving
// encounter order; the order is the page order and must survive.
func FilterImageURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		trimmed := strings.TrimSpace(html.UnescapeString(raw))
		if trimmed == "" {
			continue
		}
		lowered := strings.ToLower(trimmed)
		blocked := false
		for _, marker := range imageURLBlocklist {
			if strings.Contains(lowered, marker) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// SortChapterRefs de-duplicates by chapter number (first occurrence wins)
// and sorts ascending.
func SortChapterRefs(refs []ChapterRef) []ChapterRef {
	out := make([]ChapterRef, 0, len(refs))
	seen := make(map[float64]struct{}, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.Number]; dup {
			continue
		}
		seen[ref.Number] = struct{}{}
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

var chapterNumberPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// ParseChapterNumber pulls a numeric chapter out of a label such as
// "Chapter 10.5" or "ch-12". Returns false when no number is present.
func ParseChapterNumber(label string) (float64, bool) {
	match := chapterNumberPattern.FindStringSubmatch(label)
	if len(match) < 2 {
		return 0, false
	}
	number, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return number, true
}

// AbsoluteURL resolves href against baseURL for relative and
// scheme-relative links.
func AbsoluteURL(baseURL, href string) string {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "//") {
		return "https:" + trimmed
	}
	base := strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(trimmed, "/") {
		return base + trimmed
	}
	return base + "/" + trimmed
}
