package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/radustef/mangapipe/internal/config"
	apihttp "github.com/radustef/mangapipe/internal/http"
	"github.com/radustef/mangapipe/internal/scrape"
	"github.com/radustef/mangapipe/internal/scrape/native/asurascans"
)

const fakeSeriesPage = `<!DOCTYPE html>
<html>
<head><meta property="og:title" content="Omniscient Reader - Asura Scans"></head>
<body>
<div class="summary">Only I know how this world ends.</div>
<a href="/series/omniscient-reader/chapter/1">Chapter 1</a>
<a href="/series/omniscient-reader/chapter/2">Chapter 2</a>
</body>
</html>`

func postImport(t *testing.T, app *fiber.App, body map[string]any) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/import", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("import request failed: %v", err)
	}
	return res
}

func TestImportEndpointCreatesManga(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fakeSeriesPage))
	}))
	defer site.Close()

	db, app := setupTestApp(t)

	res := postImport(t, app, map[string]any{
		"action": "import",
		"source": "asurascans",
		"url":    site.URL + "/series/omniscient-reader",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}

	var result map[string]any
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["outcome"] != "imported" {
		t.Fatalf("expected outcome imported, got %v", result["outcome"])
	}
	if result["queueRef"] == "" || result["queueRef"] == nil {
		t.Fatal("expected a queue ref in the response")
	}
	if result["chaptersAdded"].(float64) != 2 {
		t.Fatalf("expected 2 chapters added, got %v", result["chaptersAdded"])
	}

	var title string
	err := db.QueryRow(`SELECT title FROM manga WHERE normalized_title = 'omniscientreader'`).Scan(&title)
	if err != nil {
		t.Fatalf("load imported manga: %v", err)
	}
	if title != "Omniscient Reader" {
		t.Fatalf("expected title 'Omniscient Reader', got %q", title)
	}
}

func TestImportEndpointIdempotentOnSameURL(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fakeSeriesPage))
	}))
	defer site.Close()

	_, app := setupTestApp(t)
	body := map[string]any{
		"action": "import",
		"source": "asurascans",
		"url":    site.URL + "/series/omniscient-reader",
	}

	if res := postImport(t, app, body); res.StatusCode != http.StatusCreated {
		t.Fatalf("first import: expected 201, got %d", res.StatusCode)
	}

	res := postImport(t, app, body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second import: expected 200, got %d", res.StatusCode)
	}
	var result map[string]any
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["outcome"] != "already_exists" {
		t.Fatalf("expected outcome already_exists, got %v", result["outcome"])
	}
}

func TestImportEndpointValidation(t *testing.T) {
	_, app := setupTestApp(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing action", map[string]any{"source": "asurascans", "url": "https://example.com"}},
		{"missing source", map[string]any{"action": "import", "url": "https://example.com"}},
		{"missing url", map[string]any{"action": "import", "source": "asurascans"}},
		{"missing query", map[string]any{"action": "search", "source": "asurascans"}},
		{"unknown source", map[string]any{"action": "import", "source": "nosuchsite", "url": "https://example.com"}},
	}
	for _, tc := range cases {
		if res := postImport(t, app, tc.body); res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, res.StatusCode)
		}
	}
}

func TestImportEndpointFailureExposesQueueRef(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>no title here</body></html>`))
	}))
	defer site.Close()

	_, app := setupTestApp(t)

	res := postImport(t, app, map[string]any{
		"action": "import",
		"source": "asurascans",
		"url":    site.URL + "/series/broken",
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	ref, _ := payload["queueRef"].(string)
	if ref == "" {
		t.Fatal("expected the failed queue ref in the response")
	}

	getRes, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/queue/"+ref, nil))
	if err != nil {
		t.Fatalf("queue request failed: %v", err)
	}
	if getRes.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRes.StatusCode)
	}
	var item map[string]any
	if err := json.NewDecoder(getRes.Body).Decode(&item); err != nil {
		t.Fatalf("decode queue item: %v", err)
	}
	if item["status"] != "failed" {
		t.Fatalf("expected failed queue item, got %v", item["status"])
	}

	retryRes, err := app.Test(httptest.NewRequest(http.MethodPost, "/v1/queue/"+ref+"/retry", nil))
	if err != nil {
		t.Fatalf("retry request failed: %v", err)
	}
	if retryRes.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on retry, got %d", retryRes.StatusCode)
	}
	if err := json.NewDecoder(retryRes.Body).Decode(&item); err != nil {
		t.Fatalf("decode retried item: %v", err)
	}
	if item["status"] != "pending" {
		t.Fatalf("retried item should be pending, got %v", item["status"])
	}
}

func TestImportEndpointSearchAction(t *testing.T) {
	const searchPage = `<html><body>
	<a href="/series/tower-of-god" title="Tower of God"></a>
	<a href="/series/omniscient-reader" title="Omniscient Reader"></a>
	</body></html>`

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchPage))
	}))
	defer site.Close()

	// The adapter must point at the fake site, so build the app by hand
	// instead of through setupTestApp.
	db, defaultApp := setupTestApp(t)
	_ = defaultApp.Shutdown()

	registry := scrape.NewRegistry()
	if err := registry.Register(asurascans.NewAdapterWithOptions(site.URL, 2)); err != nil {
		t.Fatalf("register adapter: %v", err)
	}
	app := apihttp.NewServerWithDeps(config.Config{AppName: "test-app"}, db, registry, newTestImporter(t, db, registry))
	defer func() { _ = app.Shutdown() }()

	res := postImport(t, app, map[string]any{
		"action": "search",
		"source": "asurascans",
		"query":  "omniscient reader",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	var payload struct {
		Items []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("expected 2 results, got %d", len(payload.Items))
	}
	if payload.Items[0].Title != "Omniscient Reader" {
		t.Fatalf("expected closest match first, got %q", payload.Items[0].Title)
	}
}
