package mangadex

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/radustef/mangapipe/internal/scrape"
)

// Adapter reads the MangaDex REST API. It is a metadata source: the API is
// authoritative for titles, summaries, genres and authorship, but serves no
// page images.
type Adapter struct {
	apiBaseURL string
	priority   int
}

func NewAdapter() *Adapter {
	return &Adapter{apiBaseURL: "https://api.mangadex.org", priority: 1}
}

func NewAdapterWithOptions(apiBaseURL string, priority int) *Adapter {
	if apiBaseURL == "" {
		apiBaseURL = "https://api.mangadex.org"
	}
	return &Adapter{apiBaseURL: strings.TrimRight(apiBaseURL, "/"), priority: priority}
}

func (a *Adapter) Key() string       { return "mangadex" }
func (a *Adapter) Name() string      { return "MangaDex" }
func (a *Adapter) Kind() string      { return scrape.KindMetadata }
func (a *Adapter) SitePriority() int { return a.priority }

func (a *Adapter) BuildSearchURL(query string) string {
	values := url.Values{}
	values.Set("title", strings.TrimSpace(query))
	values.Set("limit", "20")
	values.Add("includes[]", "cover_art")
	values.Add("includes[]", "author")
	values.Add("includes[]", "artist")
	return a.apiBaseURL + "/manga?" + values.Encode()
}

func (a *Adapter) ParseSearchResults(raw string) []scrape.SearchResult {
	var payload searchResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}

	results := make([]scrape.SearchResult, 0, len(payload.Data))
	for _, item := range payload.Data {
		title := pickBestTitle(item.Attributes.Title)
		if title == "" {
			continue
		}
		results = append(results, scrape.SearchResult{
			Title:      title,
			URL:        a.apiBaseURL + "/manga/" + item.ID,
			CoverURL:   coverURL(item.ID, item.Relationships),
			ExternalID: item.ID,
		})
	}
	return results
}

func (a *Adapter) ParseDetail(raw string, _ string) scrape.Detail {
	var payload detailResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return scrape.Detail{}
	}

	attrs := payload.Data.Attributes
	detail := scrape.Detail{
		Title:       pickBestTitle(attrs.Title),
		Summary:     pickBestTitle(attrs.Description),
		Status:      mapStatus(attrs.Status),
		ReleaseYear: attrs.Year,
		CoverURL:    coverURL(payload.Data.ID, payload.Data.Relationships),
	}

	for _, alt := range attrs.AltTitles {
		if value := pickBestTitle(alt); value != "" && value != detail.Title {
			detail.AlternativeNames = append(detail.AlternativeNames, value)
		}
	}

	for _, tag := range attrs.Tags {
		if tag.Attributes.Group != "genre" {
			continue
		}
		if name := pickBestTitle(tag.Attributes.Name); name != "" {
			detail.Genres = append(detail.Genres, name)
		}
	}

	for _, rel := range payload.Data.Relationships {
		switch rel.Type {
		case "author":
			if detail.Author == "" {
				detail.Author = strings.TrimSpace(rel.Attributes.Name)
			}
		case "artist":
			if detail.Artist == "" {
				detail.Artist = strings.TrimSpace(rel.Attributes.Name)
			}
		}
	}

	return detail
}

func mapStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ongoing":
		return "ongoing"
	case "completed", "cancelled":
		return "completed"
	case "hiatus":
		return "hiatus"
	default:
		return ""
	}
}

func coverURL(mangaID string, relationships []relationship) string {
	for _, rel := range relationships {
		if rel.Type == "cover_art" && rel.Attributes.FileName != "" {
			return "https://uploads.mangadex.org/covers/" + mangaID + "/" + rel.Attributes.FileName
		}
	}
	return ""
}

func pickBestTitle(titleMap map[string]string) string {
	if titleMap == nil {
		return ""
	}
	for _, key := range []string{"en", "ja-ro", "ja", "pt-br", "es"} {
		if value := strings.TrimSpace(titleMap[key]); value != "" {
			return value
		}
	}
	for _, value := range titleMap {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

type relationship struct {
	Type       string `json:"type"`
	Attributes struct {
		Name     string `json:"name"`
		FileName string `json:"fileName"`
	} `json:"attributes"`
}

type searchResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Title map[string]string `json:"title"`
		} `json:"attributes"`
		Relationships []relationship `json:"relationships"`
	} `json:"data"`
}

type detailResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Title       map[string]string   `json:"title"`
			AltTitles   []map[string]string `json:"altTitles"`
			Description map[string]string   `json:"description"`
			Status      string              `json:"status"`
			Year        int                 `json:"year"`
			Tags        []struct {
				Attributes struct {
					Name  map[string]string `json:"name"`
					Group string            `json:"group"`
				} `json:"attributes"`
			} `json:"tags"`
		} `json:"attributes"`
		Relationships []relationship `json:"relationships"`
	} `json:"data"`
}
