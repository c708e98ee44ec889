package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the adapters available to the lookup workflow, keyed by the
// adapter name stored on capability rows.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	fallback Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces an adapter under its name.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// SetFallback installs an adapter used when a capability names an unknown one.
func (r *Registry) SetFallback(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = a
}

// ForName returns the adapter registered under name, or the fallback.
func (r *Registry) ForName(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[name]; ok {
		return a, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no adapter registered for %q", name)
}

// Names lists registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
