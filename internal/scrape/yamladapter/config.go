package yamladapter

import (
	"fmt"
	"strings"

	"github.com/radustef/mangapipe/internal/scrape"
)

// Config describes a regex-driven adapter for a simple HTML site. Operators
// can add a new source by dropping a YAML file into the adapters directory,
// no code change needed. All pattern lists are cascades: patterns run in
// order and the first one that matches wins.
type Config struct {
	Key          string `yaml:"key"`
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"`
	Enabled      *bool  `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	SitePriority int    `yaml:"site_priority"`

	Search struct {
		// URLTemplate is appended to base_url; {query} is replaced with the
		// escaped search term.
		URLTemplate string `yaml:"url_template"`
	} `yaml:"search"`

	Patterns struct {
		// Two capture groups: 1=href, 2=title. An optional third group is
		// read as the cover image URL.
		SearchResults []string `yaml:"search_results"`

		Title   []string `yaml:"title"`
		Summary []string `yaml:"summary"`
		Cover   []string `yaml:"cover"`
		Author  []string `yaml:"author"`
		Status  []string `yaml:"status"`
		Genres  []string `yaml:"genres"`

		// Capture groups: 1=href, 2=number label, optional 3=title.
		ChapterList []string `yaml:"chapter_list"`
		// One capture group: the image URL.
		ChapterImages []string `yaml:"chapter_images"`
	} `yaml:"patterns"`
}

func (c *Config) normalizeAndValidate() error {
	c.Key = strings.TrimSpace(c.Key)
	c.Name = strings.TrimSpace(c.Name)
	c.Kind = strings.TrimSpace(strings.ToLower(c.Kind))
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.Key == "" {
		return fmt.Errorf("key is required")
	}
	if c.Name == "" {
		c.Name = c.Key
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	switch c.Kind {
	case "":
		c.Kind = scrape.KindContent
	case scrape.KindMetadata, scrape.KindContent:
	default:
		return fmt.Errorf("kind must be %q or %q", scrape.KindMetadata, scrape.KindContent)
	}

	if c.SitePriority <= 0 {
		c.SitePriority = 50
	}

	if strings.TrimSpace(c.Search.URLTemplate) == "" {
		return fmt.Errorf("search.url_template is required")
	}
	if !strings.Contains(c.Search.URLTemplate, "{query}") {
		return fmt.Errorf("search.url_template must contain {query}")
	}

	if len(c.Patterns.SearchResults) == 0 {
		return fmt.Errorf("patterns.search_results needs at least one pattern")
	}
	if len(c.Patterns.Title) == 0 {
		return fmt.Errorf("patterns.title needs at least one pattern")
	}
	if c.Kind == scrape.KindContent {
		if len(c.Patterns.ChapterList) == 0 {
			return fmt.Errorf("content adapters need patterns.chapter_list")
		}
		if len(c.Patterns.ChapterImages) == 0 {
			return fmt.Errorf("content adapters need patterns.chapter_images")
		}
	}

	return nil
}

func (c *Config) isEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}
