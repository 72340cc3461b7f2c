package insight

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/r3d91ll/insight/pkg/backend"
	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// stubExtractor returns a fixed extraction.
type stubExtractor struct {
	ext *backend.Extraction
	err error
}

func (s *stubExtractor) Name() string                         { return "stub" }
func (s *stubExtractor) Type() backend.Type                   { return backend.TypeFixture }
func (s *stubExtractor) IsAvailable(ctx context.Context) bool { return true }
func (s *stubExtractor) Capabilities() backend.Capabilities   { return backend.Capabilities{Offline: true} }
func (s *stubExtractor) Extract(ctx context.Context, text string) (*backend.Extraction, error) {
	if s.err != nil {
		return nil, s.err
	}
	cpy := *s.ext
	return &cpy, nil
}

func threeTokens() *backend.Extraction {
	return &backend.Extraction{
		Text:       "cats chase mice",
		Tokens:     []string{"cats", "chase", "mice"},
		Embeddings: [][]float64{{1, 0.1}, {0.5, 0.5}, {0.9, 0.2}},
		Attention:  [][]float64{{0.1, 0.6, 0.3}, {0.5, 0.2, 0.3}, {0.2, 0.3, 0.5}},
		Model:      "stub-model",
	}
}

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer(&stubExtractor{ext: threeTokens()}, WithSeed(11))

	iters := 30
	an, err := a.Analyze(context.Background(), "cats chase mice", simulation.Overrides{Iterations: &iters})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if an.ID == "" {
		t.Error("expected an ID")
	}
	if len(an.Positions) != 3 || len(an.Initial) != 3 {
		t.Fatalf("expected 3 positions, got %d/%d", len(an.Positions), len(an.Initial))
	}
	if an.Params.Iterations != 30 || an.Iterations != 30 {
		t.Errorf("override not applied: %+v", an.Params)
	}
	if an.Params.Drag != 0.95 {
		t.Errorf("unset params should keep defaults, got drag %v", an.Params.Drag)
	}
	if an.Seed != 11 || an.Extractor != "stub" || an.Model != "stub-model" {
		t.Errorf("unexpected metadata: seed=%d extractor=%q model=%q", an.Seed, an.Extractor, an.Model)
	}
	if an.Embeddings != nil {
		t.Error("embeddings should be dropped by default")
	}
	if len(an.Hash) != 64 {
		t.Errorf("expected SHA-256 hex hash, got %q", an.Hash)
	}
	if an.CreatedAt.IsZero() {
		t.Error("expected creation time")
	}
}

func TestAnalyze_Reproducible(t *testing.T) {
	run := func() *Analysis {
		a := NewAnalyzer(&stubExtractor{ext: threeTokens()}, WithSeed(5), WithWorkers(2))
		an, err := a.Analyze(context.Background(), "", simulation.Overrides{})
		if err != nil {
			t.Fatal(err)
		}
		return an
	}
	x, y := run(), run()
	if x.ID == y.ID {
		t.Error("every analysis needs its own ID")
	}
	if x.Hash != y.Hash {
		t.Error("same inputs and seed should hash the same")
	}
	for i := range x.Positions {
		if x.Positions[i] != y.Positions[i] {
			t.Errorf("position %d differs: %v vs %v", i, x.Positions[i], y.Positions[i])
		}
	}
}

func TestAnalyze_BaseParamsAndKeepEmbeddings(t *testing.T) {
	base := simulation.DefaultParams()
	base.Iterations = 3
	a := NewAnalyzer(&stubExtractor{ext: threeTokens()}, WithBaseParams(base), WithEmbeddings(true))

	an, err := a.Analyze(context.Background(), "x", simulation.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if an.Iterations != 3 {
		t.Errorf("expected base iterations 3, got %d", an.Iterations)
	}
	if len(an.Embeddings) != 3 {
		t.Error("expected embeddings to be kept")
	}
	if a.BaseParams().Iterations != 3 {
		t.Error("BaseParams should report the configured base")
	}
}

func TestAnalyze_ExtractorError(t *testing.T) {
	want := errors.New("boom")
	a := NewAnalyzer(&stubExtractor{err: want})
	if _, err := a.Analyze(context.Background(), "x", simulation.Overrides{}); !errors.Is(err, want) {
		t.Fatalf("expected extractor error, got %v", err)
	}
}

func TestAnalyze_MisalignedExtraction(t *testing.T) {
	ext := threeTokens()
	ext.Attention = ext.Attention[:2]
	a := NewAnalyzer(&stubExtractor{ext: ext})
	if _, err := a.Analyze(context.Background(), "x", simulation.Overrides{}); !ierrors.IsCode(err, ierrors.ErrInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestAnalyze_NoExtractor(t *testing.T) {
	if _, err := NewAnalyzer(nil).Analyze(context.Background(), "x", simulation.Overrides{}); !ierrors.IsCode(err, ierrors.ErrExtractorNotFound) {
		t.Fatalf("expected EXTRACTOR_NOT_FOUND, got %v", err)
	}
}

func TestAnalyzeObserved(t *testing.T) {
	a := NewAnalyzer(&stubExtractor{ext: threeTokens()}, WithSeed(1))
	iters := 10
	var steps []int
	_, err := a.AnalyzeObserved(context.Background(), "x", simulation.Overrides{Iterations: &iters},
		func(s simulation.Step) { steps = append(steps, s.Iteration) }, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0] != 5 || steps[1] != 10 {
		t.Errorf("expected steps [5 10], got %v", steps)
	}
}

func TestAnalyze_WithLexicalBackend(t *testing.T) {
	a := NewAnalyzer(backend.NewLexical(backend.LexicalConfig{}), WithSeed(2))
	an, err := a.Analyze(context.Background(), "the quick brown fox jumps", simulation.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if len(an.Tokens) != 5 || an.Extractor != "lexical" {
		t.Errorf("unexpected analysis: %d tokens from %q", len(an.Tokens), an.Extractor)
	}
}

func TestPoint_JSON(t *testing.T) {
	data, err := json.Marshal([]Point{{1.5, -2}, {math.NaN(), math.Inf(1)}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[[1.5,-2],[null,null]]" {
		t.Errorf("unexpected encoding %s", data)
	}

	var back []Point
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[0] != (Point{1.5, -2}) || !math.IsNaN(back[1][0]) {
		t.Errorf("unexpected decoding %v", back)
	}
}

func TestAnalysis_ReasoningMap(t *testing.T) {
	an := &Analysis{
		Tokens:    []string{"a", "b"},
		Positions: []Point{{1, 2}, {3, 4}},
		Attention: [][]float64{{0, 1}, {1, 0}},
	}
	m := an.ReasoningMap()
	if m.Positions[1] != [2]float64{3, 4} || len(m.Tokens) != 2 {
		t.Errorf("unexpected map %+v", m)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("map should validate: %v", err)
	}
}
