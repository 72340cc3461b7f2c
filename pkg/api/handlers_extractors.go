package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/r3d91ll/insight/pkg/backend"
)

// ExtractorRegistry is the interface for accessing extractor status.
// This interface allows for dependency injection and testing.
type ExtractorRegistry interface {
	// Status returns availability status for all extractors.
	Status(ctx context.Context) map[string]backend.Status
	// List returns all registered extractor names.
	List() []string
}

// ExtractorsHandler handles extractor-related API requests.
type ExtractorsHandler struct {
	registry ExtractorRegistry
}

// NewExtractorsHandler creates a new ExtractorsHandler with the given registry.
func NewExtractorsHandler(registry ExtractorRegistry) *ExtractorsHandler {
	return &ExtractorsHandler{registry: registry}
}

// NewExtractorsHandlerWithRegistry creates a new ExtractorsHandler with a
// backend.Registry, which already satisfies ExtractorRegistry.
func NewExtractorsHandlerWithRegistry(registry *backend.Registry) *ExtractorsHandler {
	if registry == nil {
		return &ExtractorsHandler{}
	}
	return &ExtractorsHandler{registry: registry}
}

// RegisterRoutes registers the extractor API routes on the router.
func (h *ExtractorsHandler) RegisterRoutes(router *Router) {
	router.GET("/api/extractors", h.ListExtractors)
	router.GET("/api/extractors/:name", h.GetExtractor)
}

// ExtractorListResponse is the JSON response for GET /api/extractors.
type ExtractorListResponse struct {
	Extractors []backend.Status `json:"extractors"`
}

// ListExtractors handles GET /api/extractors.
// Extractors are sorted by name.
func (h *ExtractorsHandler) ListExtractors(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		WriteError(w, http.StatusServiceUnavailable, "no_registry",
			"Extractor registry is not available")
		return
	}

	statusMap := h.registry.Status(r.Context())
	extractors := make([]backend.Status, 0, len(statusMap))
	for _, status := range statusMap {
		extractors = append(extractors, status)
	}
	sort.Slice(extractors, func(i, j int) bool {
		return extractors[i].Name < extractors[j].Name
	})

	WriteJSON(w, http.StatusOK, ExtractorListResponse{Extractors: extractors})
}

// GetExtractor handles GET /api/extractors/:name.
func (h *ExtractorsHandler) GetExtractor(w http.ResponseWriter, r *http.Request) {
	name := PathParam(r, "name")
	if h.registry == nil {
		WriteError(w, http.StatusServiceUnavailable, "no_registry",
			"Extractor registry is not available")
		return
	}

	status, found := h.registry.Status(r.Context())[name]
	if !found {
		WriteError(w, http.StatusNotFound, "extractor_not_found",
			"Extractor '"+name+"' not found. Available extractors: "+joinNames(h.registry.List()))
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// joinNames joins names into a sorted, comma-separated string.
func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// -----------------------------------------------------------------------------
// Mock Registry for Testing
// -----------------------------------------------------------------------------

// MockExtractorRegistry is a mock implementation of ExtractorRegistry.
type MockExtractorRegistry struct {
	extractors map[string]backend.Status
	mu         sync.RWMutex
}

// Ensure MockExtractorRegistry implements ExtractorRegistry.
var _ ExtractorRegistry = (*MockExtractorRegistry)(nil)

// NewMockExtractorRegistry creates a new mock extractor registry.
func NewMockExtractorRegistry() *MockExtractorRegistry {
	return &MockExtractorRegistry{
		extractors: make(map[string]backend.Status),
	}
}

// AddMockExtractor adds a mock extractor to the registry.
func (m *MockExtractorRegistry) AddMockExtractor(status backend.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractors[status.Name] = status
}

// Status returns status for all mock extractors.
func (m *MockExtractorRegistry) Status(ctx context.Context) map[string]backend.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]backend.Status, len(m.extractors))
	for name, status := range m.extractors {
		result[name] = status
	}
	return result
}

// List returns all mock extractor names.
func (m *MockExtractorRegistry) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.extractors))
	for name := range m.extractors {
		names = append(names, name)
	}
	return names
}
