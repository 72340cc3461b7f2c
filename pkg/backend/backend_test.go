// Package backend tests for extractor registry and structured error handling.
package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// mockExtractor is a simple extractor implementation for testing.
type mockExtractor struct {
	name         string
	available    bool
	exType       Type
	capabilities Capabilities
}

func (m *mockExtractor) Name() string                         { return m.name }
func (m *mockExtractor) Type() Type                           { return m.exType }
func (m *mockExtractor) IsAvailable(ctx context.Context) bool { return m.available }
func (m *mockExtractor) Capabilities() Capabilities           { return m.capabilities }
func (m *mockExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	return &Extraction{Text: text, Tokens: []string{text}, Embeddings: [][]float64{{1}}, Attention: [][]float64{{1}}}, nil
}

// -----------------------------------------------------------------------------
// Registry Basic Tests
// -----------------------------------------------------------------------------

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
	if r.extractors == nil {
		t.Error("expected extractors map to be initialized")
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	mock := &mockExtractor{name: "test", available: true}

	if err := r.Register("test", mock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ex, ok := r.Get("test")
	if !ok {
		t.Fatal("expected extractor to be registered")
	}
	if ex.Name() != "test" {
		t.Errorf("expected name 'test', got %q", ex.Name())
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("test", &mockExtractor{name: "a"}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := r.Register("test", &mockExtractor{name: "b"})
	if !ierrors.IsCode(err, ierrors.ErrExtractorAlreadyRegistered) {
		t.Fatalf("expected EXTRACTOR_ALREADY_REGISTERED, got %v", err)
	}

	ex, _ := r.Get("test")
	if ex.Name() != "a" {
		t.Error("original extractor should be kept")
	}
}

func TestRegistry_Get_NotExists(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing extractor to be absent")
	}
}

// -----------------------------------------------------------------------------
// GetWithError Tests
// -----------------------------------------------------------------------------

func TestRegistry_GetWithError_Exists(t *testing.T) {
	r := NewRegistry()
	mock := &mockExtractor{name: "test"}
	_ = r.Register("test", mock)

	ex, err := r.GetWithError("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex != mock {
		t.Error("expected same extractor instance")
	}
}

func TestRegistry_GetWithError_NotExists(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("test", &mockExtractor{name: "test"})

	_, err := r.GetWithError("nonexistent")
	if err == nil {
		t.Fatal("expected error for nonexistent extractor")
	}

	ie, ok := err.(*ierrors.InsightError)
	if !ok {
		t.Fatalf("expected *ierrors.InsightError, got %T", err)
	}
	if ie.Code != ierrors.ErrExtractorNotFound {
		t.Errorf("expected code %q, got %q", ierrors.ErrExtractorNotFound, ie.Code)
	}
	if ie.Category != ierrors.CategoryExtractor {
		t.Errorf("expected category %v, got %v", ierrors.CategoryExtractor, ie.Category)
	}
	if ie.Context["extractor"] != "nonexistent" {
		t.Errorf("expected extractor context 'nonexistent', got %q", ie.Context["extractor"])
	}
	if !strings.Contains(ie.Context["available_extractors"], "test") {
		t.Error("expected available_extractors to include 'test'")
	}
	if len(ie.Suggestions) == 0 {
		t.Error("expected suggestions to be attached")
	}
}

func TestRegistry_GetWithError_SuggestsCaseFix(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("lexical", &mockExtractor{name: "lexical"})
	_ = r.Register("loom", &mockExtractor{name: "loom"})

	_, err := r.GetWithError("Lexical")
	ie := err.(*ierrors.InsightError)

	found := false
	for _, s := range ie.Suggestions {
		if strings.Contains(s, "lexical") && strings.Contains(strings.ToLower(s), "case") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected case suggestion, got %v", ie.Suggestions)
	}
}

func TestRegistry_GetWithError_SuggestsPartialMatch(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("lexical", &mockExtractor{name: "lexical"})
	_ = r.Register("loom", &mockExtractor{name: "loom"})

	_, err := r.GetWithError("lex")
	ie := err.(*ierrors.InsightError)

	found := false
	for _, s := range ie.Suggestions {
		if strings.Contains(s, "lexical") && strings.Contains(strings.ToLower(s), "mean") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 'Did you mean' suggestion, got %v", ie.Suggestions)
	}
}

func TestRegistry_GetWithError_EmptyRegistry(t *testing.T) {
	_, err := NewRegistry().GetWithError("any")
	ie := err.(*ierrors.InsightError)

	if ie.Context["available_extractors"] != "(none)" {
		t.Errorf("expected '(none)', got %q", ie.Context["available_extractors"])
	}
	found := false
	for _, s := range ie.Suggestions {
		if strings.Contains(s, "Register") {
			found = true
		}
	}
	if !found {
		t.Error("expected suggestion about registering an extractor")
	}
}

func TestRegistry_GetWithError_SortedNames(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("zebra", &mockExtractor{name: "zebra"})
	_ = r.Register("alpha", &mockExtractor{name: "alpha"})
	_ = r.Register("middle", &mockExtractor{name: "middle"})

	_, err := r.GetWithError("nonexistent")
	ie := err.(*ierrors.InsightError)
	if want := "alpha, middle, zebra"; ie.Context["available_extractors"] != want {
		t.Errorf("expected %q, got %q", want, ie.Context["available_extractors"])
	}
}

func TestSuggestSimilarExtractors(t *testing.T) {
	available := []string{"lexical", "loom"}

	if s := suggestSimilarExtractors("xyz", available); len(s) != 0 {
		t.Errorf("expected no suggestions, got %v", s)
	}
	if s := suggestSimilarExtractors("loom", available); len(s) != 0 {
		t.Errorf("exact match needs no suggestion, got %v", s)
	}
	if s := suggestSimilarExtractors("LOOM", available); len(s) != 1 {
		t.Errorf("expected one case suggestion, got %v", s)
	}
}

// -----------------------------------------------------------------------------
// Listing and Status
// -----------------------------------------------------------------------------

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("b", &mockExtractor{name: "b"})
	_ = r.Register("a", &mockExtractor{name: "a"})

	list := r.List()
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("expected [a b], got %v", list)
	}
	if len(NewRegistry().List()) != 0 {
		t.Error("expected empty list")
	}
}

func TestRegistry_Available(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("up", &mockExtractor{name: "up", available: true})
	_ = r.Register("down", &mockExtractor{name: "down", available: false})

	avail := r.Available(context.Background())
	if len(avail) != 1 || avail[0].Name() != "up" {
		t.Errorf("expected only 'up', got %v", avail)
	}
}

func TestRegistry_Status(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("up", &mockExtractor{
		name:         "up",
		available:    true,
		exType:       TypeLexical,
		capabilities: Capabilities{EmbeddingDim: 8, Offline: true},
	})
	_ = r.Register("down", &mockExtractor{name: "down", exType: TypeLoom})

	status := r.Status(context.Background())
	if len(status) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(status))
	}
	up := status["up"]
	if !up.Available || up.Type != TypeLexical || up.Capabilities.EmbeddingDim != 8 {
		t.Errorf("unexpected status for up: %+v", up)
	}
	if status["down"].Available {
		t.Error("expected down to be unavailable")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("ex%d", i)
			_ = r.Register(name, &mockExtractor{name: name, available: true})
		}(i)
		go func() {
			defer wg.Done()
			_ = r.List()
			_ = r.Available(context.Background())
		}()
	}
	wg.Wait()
	if len(r.List()) != 20 {
		t.Errorf("expected 20 extractors, got %d", len(r.List()))
	}
}

// -----------------------------------------------------------------------------
// Extraction Validation
// -----------------------------------------------------------------------------

func TestExtraction_Validate(t *testing.T) {
	valid := func() *Extraction {
		return &Extraction{
			Tokens:     []string{"a", "b"},
			Embeddings: [][]float64{{1, 0}, {0, 1}},
			Attention:  [][]float64{{0.5, 0.5}, {0.5, 0.5}},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid extraction, got %v", err)
	}
	if err := (&Extraction{}).Validate(); err != nil {
		t.Errorf("empty extraction is valid, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Extraction)
	}{
		{"missing embedding", func(e *Extraction) { e.Embeddings = e.Embeddings[:1] }},
		{"short attention", func(e *Extraction) { e.Attention = e.Attention[:1] }},
		{"ragged attention", func(e *Extraction) { e.Attention[1] = []float64{1} }},
		{"ragged embedding", func(e *Extraction) { e.Embeddings[1] = []float64{1, 2, 3} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			if err := e.Validate(); !ierrors.IsCode(err, ierrors.ErrInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}
