// Package insight tests for analysis store operations.
package insight

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

func makeAnalysis(id string, created time.Time) *Analysis {
	return &Analysis{
		ID:        id,
		Text:      "text " + id,
		Tokens:    []string{"a", "b"},
		Attention: [][]float64{{0.5, 0.5}, {0.5, 0.5}},
		Positions: []Point{{1, 2}, {3, 4}},
		Seed:      7,
		Extractor: "lexical",
		CreatedAt: created,
	}
}

func TestStore_AddGet(t *testing.T) {
	s := NewStore()
	if err := s.Add(makeAnalysis("a1", time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := s.Get("a1")
	if !ok {
		t.Fatal("expected analysis")
	}
	got.Text = "changed"
	again, _ := s.Get("a1")
	if again.Text != "text a1" {
		t.Error("Get should return a copy")
	}
	if s.Count() != 1 {
		t.Errorf("expected count 1, got %d", s.Count())
	}
}

func TestStore_AddInvalid(t *testing.T) {
	s := NewStore()
	if err := s.Add(nil); !ierrors.IsCode(err, ierrors.ErrInvalidInput) {
		t.Errorf("expected INVALID_INPUT for nil, got %v", err)
	}
	if err := s.Add(&Analysis{}); !ierrors.IsCode(err, ierrors.ErrInvalidInput) {
		t.Errorf("expected INVALID_INPUT for empty id, got %v", err)
	}
}

func TestStore_GetWithError(t *testing.T) {
	s := NewStore()
	_, err := s.GetWithError("missing")
	ie, ok := ierrors.AsInsightError(err)
	if !ok || ie.Code != ierrors.ErrAnalysisNotFound {
		t.Fatalf("expected ANALYSIS_NOT_FOUND, got %v", err)
	}
	if ie.Context["id"] != "missing" {
		t.Errorf("expected id context, got %q", ie.Context["id"])
	}
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.Add(makeAnalysis("late", base.Add(2*time.Hour)))
	_ = s.Add(makeAnalysis("early", base))
	_ = s.Add(makeAnalysis("middle", base.Add(time.Hour)))

	list := s.List()
	want := []string{"early", "middle", "late"}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
	if list[0].Tokens != 2 || list[0].Extractor != "lexical" {
		t.Errorf("unexpected summary %+v", list[0])
	}

	latest, ok := s.Latest()
	if !ok || latest.ID != "late" {
		t.Errorf("expected latest 'late', got %v", latest)
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := NewStore()
	_ = s.Add(makeAnalysis("a", time.Now()))
	_ = s.Add(makeAnalysis("b", time.Now()))

	if !s.Delete("a") {
		t.Error("expected delete to succeed")
	}
	if s.Delete("a") {
		t.Error("second delete should report false")
	}
	if n := s.Clear(); n != 1 {
		t.Errorf("expected to clear 1, got %d", n)
	}
	if _, ok := s.Latest(); ok {
		t.Error("empty store has no latest")
	}
}

func TestStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_ = s.Add(makeAnalysis("x1", created))
	_ = s.Add(makeAnalysis("x2", created.Add(time.Minute)))

	if err := s.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x1.json")); err != nil {
		t.Errorf("expected x1.json: %v", err)
	}
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	loaded := NewStore()
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Count() != 2 {
		t.Fatalf("expected 2 analyses, got %d", loaded.Count())
	}
	a, _ := loaded.Get("x1")
	if a.Positions[1] != (Point{3, 4}) || !a.CreatedAt.Equal(created) {
		t.Errorf("round trip lost data: %+v", a)
	}
}

func TestStore_LoadMissingDir(t *testing.T) {
	if err := NewStore().Load(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing directory should not be an error: %v", err)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644)
	if err := NewStore().Load(dir); !ierrors.IsCode(err, ierrors.ErrIOReadFailed) {
		t.Errorf("expected IO_READ_FAILED, got %v", err)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Add(makeAnalysis(fmt.Sprintf("id-%d", i), time.Now()))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.List()
		}()
	}
	wg.Wait()
	if s.Count() != 50 {
		t.Errorf("expected 50, got %d", s.Count())
	}
}
