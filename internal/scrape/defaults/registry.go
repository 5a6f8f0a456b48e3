package defaults

import (
	"errors"
	"fmt"

	"github.com/radustef/mangapipe/internal/scrape"
	"github.com/radustef/mangapipe/internal/scrape/native/asurascans"
	"github.com/radustef/mangapipe/internal/scrape/native/mangadex"
	"github.com/radustef/mangapipe/internal/scrape/native/manganelo"
	"github.com/radustef/mangapipe/internal/scrape/yamladapter"
)

// NewRegistry builds the adapter set used at startup: the built-in native
// adapters plus any YAML-configured ones found in yamlAdaptersPath. The
// registry is usable even when the error is non-nil; callers log it and
// keep whatever did register.
func NewRegistry(yamlAdaptersPath string) (*scrape.Registry, error) {
	registry := scrape.NewRegistry()

	var errs []error
	for _, adapter := range []scrape.Adapter{
		mangadex.NewAdapter(),
		asurascans.NewAdapter(),
		manganelo.NewAdapter(),
	} {
		if err := registry.Register(adapter); err != nil {
			errs = append(errs, fmt.Errorf("register adapter %q: %w", adapter.Key(), err))
		}
	}

	loaded, loadErr := yamladapter.LoadFromDir(yamlAdaptersPath)
	if loadErr != nil {
		errs = append(errs, loadErr)
	}
	for _, adapter := range loaded {
		if err := registry.Register(adapter); err != nil {
			errs = append(errs, fmt.Errorf("register yaml adapter %q: %w", adapter.Key(), err))
		}
	}

	return registry, errors.Join(errs...)
}
