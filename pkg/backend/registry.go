package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// Registry manages available extractors.
type Registry struct {
	extractors map[string]Extractor
	mu         sync.RWMutex
}

// NewRegistry creates a new extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
	}
}

// Register adds an extractor to the registry.
func (r *Registry) Register(name string, ex Extractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extractors[name]; exists {
		return ierrors.Codef(ierrors.ErrExtractorAlreadyRegistered,
			"extractor %q already registered", name).
			WithContext("extractor", name)
	}
	r.extractors[name] = ex
	return nil
}

// Get retrieves an extractor by name.
func (r *Registry) Get(name string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.extractors[name]
	return ex, ok
}

// GetWithError is Get with a structured error naming the registered
// extractors and any near-miss spellings.
func (r *Registry) GetWithError(name string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ex, ok := r.extractors[name]; ok {
		return ex, nil
	}

	names := r.listNamesLocked()
	available := strings.Join(names, ", ")
	if available == "" {
		available = "(none)"
	}

	err := ierrors.New(ierrors.ErrExtractorNotFound, ierrors.CategoryExtractor,
		fmt.Sprintf("extractor %q is not registered", name)).
		WithContext("extractor", name).
		WithContext("available_extractors", available)

	if len(names) == 0 {
		return nil, err.WithSuggestion("Register an extractor before analyzing text")
	}
	if similar := suggestSimilarExtractors(name, names); len(similar) > 0 {
		return nil, err.WithSuggestions(similar...)
	}
	return nil, err.WithSuggestion("Choose one of: " + available)
}

// listNamesLocked returns sorted names. Callers hold r.mu.
func (r *Registry) listNamesLocked() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// suggestSimilarExtractors proposes corrections for case mismatches and
// partial names.
func suggestSimilarExtractors(name string, available []string) []string {
	var out []string
	lower := strings.ToLower(name)
	for _, cand := range available {
		if cand == name {
			return nil
		}
		lc := strings.ToLower(cand)
		switch {
		case lc == lower:
			out = append(out, fmt.Sprintf("Names are case-sensitive: use %q", cand))
		case lower != "" && (strings.Contains(lc, lower) || strings.Contains(lower, lc)):
			out = append(out, fmt.Sprintf("Did you mean %q?", cand))
		}
	}
	return out
}

// List returns all registered extractor names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listNamesLocked()
}

// Available returns all extractors that are currently available.
func (r *Registry) Available(ctx context.Context) []Extractor {
	r.mu.RLock()
	extractors := make([]Extractor, 0, len(r.extractors))
	for _, name := range r.listNamesLocked() {
		extractors = append(extractors, r.extractors[name])
	}
	r.mu.RUnlock()

	var result []Extractor
	for _, ex := range extractors {
		if ex.IsAvailable(ctx) {
			result = append(result, ex)
		}
	}
	return result
}

// Status returns availability status for all extractors.
func (r *Registry) Status(ctx context.Context) map[string]Status {
	// IsAvailable may hit the network, so probe outside the lock.
	r.mu.RLock()
	extractors := make(map[string]Extractor, len(r.extractors))
	for name, ex := range r.extractors {
		extractors[name] = ex
	}
	r.mu.RUnlock()

	result := make(map[string]Status)
	for name, ex := range extractors {
		result[name] = Status{
			Name:         name,
			Type:         ex.Type(),
			Available:    ex.IsAvailable(ctx),
			Capabilities: ex.Capabilities(),
		}
	}
	return result
}

// Status represents extractor status.
type Status struct {
	Name         string       `json:"name"`
	Type         Type         `json:"type"`
	Available    bool         `json:"available"`
	Capabilities Capabilities `json:"capabilities"`
}
