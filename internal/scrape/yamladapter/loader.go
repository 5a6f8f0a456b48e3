package yamladapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromDir reads every .yaml/.yml file in dirPath into an adapter. A
// missing directory is not an error. Broken files do not stop the rest from
// loading; their errors are joined into the returned error.
func LoadFromDir(dirPath string) ([]*Adapter, error) {
	trimmed := strings.TrimSpace(dirPath)
	if trimmed == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read yaml adapters dir: %w", err)
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lower := strings.ToLower(entry.Name())
		if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
			files = append(files, filepath.Join(trimmed, entry.Name()))
		}
	}
	sort.Strings(files)

	loaded := make([]*Adapter, 0, len(files))
	var errs []error

	for _, filePath := range files {
		adapter, err := loadFile(filePath)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(filePath), err))
			continue
		}
		if adapter != nil {
			loaded = append(loaded, adapter)
		}
	}

	return loaded, errors.Join(errs...)
}

// loadFile returns (nil, nil) for configs that parse fine but are switched
// off.
func loadFile(filePath string) (*Adapter, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, err
	}
	if !cfg.isEnabled() {
		return nil, nil
	}

	return NewAdapter(cfg)
}
