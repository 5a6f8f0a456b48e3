package scrape

const (
	KindMetadata = "metadata"
	KindContent  = "content"
)

// UnknownSitePriority is assigned to sources the registry does not know.
// Lower values are preferred when two sources supply the same title.
const UnknownSitePriority = 99

// SearchResult is one entry from a source's search page. Titles are kept
// exactly as the site renders them; normalization happens at resolve time.
type SearchResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	CoverURL   string `json:"coverUrl,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// Detail holds the catalog fields a detail page yielded. A zero value means
// the field was not found; parsers omit rather than guess.
type Detail struct {
	Title            string
	AlternativeNames []string
	Summary          string
	Genres           []string
	Author           string
	Artist           string
	Status           string
	ReleaseYear      int
	CoverURL         string
}

type ChapterRef struct {
	Number float64 `json:"number"`
	Title  string  `json:"title,omitempty"`
	URL    string  `json:"url"`
}

// Adapter is the contract every source implements. Parse methods are pure:
// they take already-fetched text and never perform I/O, and they degrade to
// empty results on unmatched content instead of returning errors.
type Adapter interface {
	Key() string
	Name() string
	Kind() string
	SitePriority() int
	BuildSearchURL(query string) string
	ParseSearchResults(raw string) []SearchResult
	ParseDetail(raw string, pageURL string) Detail
}

// ContentAdapter is implemented by sources that are authoritative for
// chapter lists and page images.
type ContentAdapter interface {
	Adapter
	ParseChapterList(raw string) []ChapterRef
	ParseChapterImages(raw string) []string
}
