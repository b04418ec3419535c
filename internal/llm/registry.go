package llm

import (
	"fmt"
	"sync"
)

// Registry maps provider names to constructed Provider instances. Agent
// nodes resolve their configured provider through it at execution time.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	fallback  string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Add registers a provider under its name. The first provider added becomes
// the fallback used when a node names no provider.
func (r *Registry) Add(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.providers) == 0 {
		r.fallback = p.Name()
	}
	r.providers[p.Name()] = p
}

// Get resolves a provider by name. An empty name resolves to the fallback.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.fallback
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("llm provider not configured: %q", name)
	}
	return p, nil
}

// Names returns the configured provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
