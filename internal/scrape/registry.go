package scrape

import (
	"fmt"
	"sort"
	"sync"
)

type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

type Descriptor struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	SitePriority int    `json:"sitePriority"`
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter is nil")
	}

	key := adapter.Key()
	if key == "" {
		return fmt.Errorf("adapter key is required")
	}
	switch adapter.Kind() {
	case KindMetadata, KindContent:
	default:
		return fmt.Errorf("adapter %q has unknown kind %q", key, adapter.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[key]; exists {
		return fmt.Errorf("adapter %q already registered", key)
	}

	r.adapters[key] = adapter
	return nil
}

func (r *Registry) Get(key string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[key]
	return adapter, ok
}

// GetContent returns the adapter for key only if it can supply chapter
// lists and page images.
func (r *Registry) GetContent(key string) (ContentAdapter, bool) {
	adapter, ok := r.Get(key)
	if !ok {
		return nil, false
	}
	content, ok := adapter.(ContentAdapter)
	return content, ok
}

// List returns descriptors for registered adapters, optionally filtered by
// kind. Pass an empty kind for all.
func (r *Registry) List(kind string) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Descriptor, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		if kind != "" && adapter.Kind() != kind {
			continue
		}
		items = append(items, Descriptor{
			Key:          adapter.Key(),
			Name:         adapter.Name(),
			Kind:         adapter.Kind(),
			SitePriority: adapter.SitePriority(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})

	return items
}

// Priority returns the site priority for key, or UnknownSitePriority when
// the source is not registered (e.g. records imported manually or by a
// since-removed adapter).
func (r *Registry) Priority(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[key]
	if !ok {
		return UnknownSitePriority
	}
	return adapter.SitePriority()
}
