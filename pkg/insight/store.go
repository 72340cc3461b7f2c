package insight

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// Store manages analyses in memory with optional persistence.
type Store struct {
	mu       sync.RWMutex
	analyses map[string]*Analysis
}

// NewStore creates a new analysis store.
func NewStore() *Store {
	return &Store{
		analyses: make(map[string]*Analysis),
	}
}

// Add stores an analysis, replacing any with the same ID.
func (s *Store) Add(a *Analysis) error {
	if a == nil || a.ID == "" {
		return ierrors.InvalidInput("analysis must have an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[a.ID] = a
	return nil
}

// Get retrieves an analysis by ID.
// The returned Analysis is a shallow copy; slices are shared and must not
// be modified.
func (s *Store) Get(id string) (*Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok {
		return nil, false
	}
	cpy := *a
	return &cpy, true
}

// GetWithError is Get returning ANALYSIS_NOT_FOUND when id is unknown.
func (s *Store) GetWithError(id string) (*Analysis, error) {
	if a, ok := s.Get(id); ok {
		return a, nil
	}
	return nil, ierrors.NotFound(id)
}

// List returns summaries ordered by creation time, oldest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.analyses))
	for _, a := range s.analyses {
		out = append(out, a.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Latest returns the most recently created analysis.
func (s *Store) Latest() (*Analysis, bool) {
	list := s.List()
	if len(list) == 0 {
		return nil, false
	}
	return s.Get(list[len(list)-1].ID)
}

// Delete removes an analysis by ID.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[id]; ok {
		delete(s.analyses, id)
		return true
	}
	return false
}

// Clear removes all analyses.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.analyses)
	s.analyses = make(map[string]*Analysis)
	return count
}

// Count returns the number of analyses.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.analyses)
}

// Save persists all analyses to a directory, one JSON file each.
func (s *Store) Save(dir string) error {
	// Copy data under lock, then release before I/O
	s.mu.RLock()
	toSave := make(map[string][]byte)
	for id, a := range s.analyses {
		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			s.mu.RUnlock()
			return ierrors.CodeWrap(err, ierrors.ErrIOWriteFailed, fmt.Sprintf("marshal %s", id)).
				WithContext("id", id)
		}
		toSave[id] = data
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrIOWriteFailed, "could not create store directory").
			WithContext("path", dir)
	}

	for id, data := range toSave {
		path := filepath.Join(dir, id+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return ierrors.CodeWrap(err, ierrors.ErrIOWriteFailed, fmt.Sprintf("write %s", id)).
				WithContext("path", path)
		}
	}
	return nil
}

// Load reads analyses from a directory. A missing directory is not an error.
func (s *Store) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ierrors.CodeWrap(err, ierrors.ErrIOReadFailed, "could not read store directory").
			WithContext("path", dir)
	}

	loaded := make(map[string]*Analysis)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return ierrors.CodeWrap(err, ierrors.ErrIOReadFailed, fmt.Sprintf("read %s", entry.Name())).
				WithContext("path", path)
		}

		var a Analysis
		if err := json.Unmarshal(data, &a); err != nil {
			return ierrors.CodeWrap(err, ierrors.ErrIOReadFailed, fmt.Sprintf("unmarshal %s", entry.Name())).
				WithContext("path", path)
		}
		if a.ID == "" {
			continue
		}
		loaded[a.ID] = &a
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range loaded {
		s.analyses[id] = a
	}
	return nil
}
