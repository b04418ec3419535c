package node

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// UnknownNodeTypeError reports a registry lookup for a type name that was
// never registered. Lookups never return a partial or default description.
type UnknownNodeTypeError struct {
	Type string
}

// Error implements the error interface.
func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("unknown node type: %s", e.Type)
}

// Factory produces a fresh executor instance for a node type.
type Factory func() Executor

type entry struct {
	desc    *Description
	factory Factory
}

// Registry is the process-wide node type catalog. It maps a type name to its
// immutable description and to the factory that produces executor instances.
// Registration happens at process start; afterwards the registry is
// read-only and safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

// NewRegistry creates an empty node type registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a node type to the catalog. The description's port slices
// are normalized to non-nil. Registering a duplicate or incomplete type is
// an error.
func (r *Registry) Register(desc *Description, factory Factory) error {
	if desc == nil || desc.Type == "" {
		return fmt.Errorf("node type description must have a type name")
	}
	if factory == nil {
		return fmt.Errorf("node type %s must have a factory", desc.Type)
	}

	if desc.Inputs == nil {
		desc.Inputs = []PortSpec{}
	}
	if desc.Outputs == nil {
		desc.Outputs = []PortSpec{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Type]; exists {
		return fmt.Errorf("node type %s is already registered", desc.Type)
	}

	r.entries[desc.Type] = entry{desc: desc, factory: factory}
	r.order = append(r.order, desc.Type)
	return nil
}

// MustRegister registers a node type and panics on failure. Intended for the
// built-in catalog populated at process start.
func (r *Registry) MustRegister(desc *Description, factory Factory) {
	if err := r.Register(desc, factory); err != nil {
		panic(err)
	}
}

// Describe returns the shared, immutable description of a node type.
func (r *Registry) Describe(typeName string) (*Description, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[typeName]
	if !ok {
		return nil, &UnknownNodeTypeError{Type: typeName}
	}
	return e.desc, nil
}

// Create produces a fresh executor instance for a node type.
func (r *Registry) Create(typeName string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[typeName]
	if !ok {
		return nil, &UnknownNodeTypeError{Type: typeName}
	}
	return e.factory(), nil
}

// Search returns the type names whose display name, description, or
// parameter display names contain the term, case-insensitively. Results are
// in registration order.
func (r *Registry) Search(term string) []string {
	needle := strings.ToLower(strings.TrimSpace(term))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []string
	for _, typeName := range r.order {
		d := r.entries[typeName].desc
		if needle == "" || descriptionMatches(d, needle) {
			matches = append(matches, typeName)
		}
	}
	return matches
}

func descriptionMatches(d *Description, needle string) bool {
	if strings.Contains(strings.ToLower(d.DisplayName), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(d.Description), needle) {
		return true
	}
	for _, p := range d.Parameters {
		if strings.Contains(strings.ToLower(p.DisplayName), needle) {
			return true
		}
	}
	return false
}

// ListByGroup returns the type names registered under a catalog group, in
// registration order.
func (r *Registry) ListByGroup(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []string
	for _, typeName := range r.order {
		for _, g := range r.entries[typeName].desc.Groups {
			if g == group {
				matches = append(matches, typeName)
				break
			}
		}
	}
	return matches
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
