// Package runtime wires configuration into live extractors, analyzers and
// the analysis store shared by the CLI, the shell and the API server.
package runtime

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/r3d91ll/insight/pkg/backend"
	"github.com/r3d91ll/insight/pkg/config"
	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/insight"
	"github.com/r3d91ll/insight/pkg/loom"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// Version is the insight release embedded in exports and reported by the CLI.
const Version = "0.1.0"

// Request selects how one analysis runs. Zero fields fall back to the
// configuration.
type Request struct {
	Extractor string
	// Model selects the model for this run. Only the loom extractor takes one.
	Model     string
	Seed      *int64
	Overrides simulation.Overrides
}

// Manager owns the extractor registry and the analysis store.
type Manager struct {
	cfg      *config.Config
	registry *backend.Registry
	store    *insight.Store
	loom     *loom.Manager
	mu       sync.RWMutex
}

// New builds a Manager from cfg. When cfg.Server.DataDir is set, analyses
// saved there are loaded.
func New(cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	registry, err := BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	l := cfg.Extractor.Loom
	m := &Manager{
		cfg:      cfg,
		registry: registry,
		store:    insight.NewStore(),
		loom: loom.NewManager(loom.Config{
			URL:            l.URL,
			Command:        l.Server.Command,
			Dir:            l.Server.Dir,
			PreloadModel:   l.Server.PreloadModel,
			AutoStart:      l.Server.AutoStart,
			StartupTimeout: l.Server.StartupTimeout,
		}),
	}

	if dir := cfg.Server.DataDir; dir != "" {
		if err := m.store.Load(dir); err != nil {
			return nil, err
		}
		log.Printf("[runtime] Loaded %d analyses from %s", m.store.Count(), dir)
	}
	return m, nil
}

// BuildRegistry registers the lexical and loom extractors, plus the
// fixture extractor when a fixture path is configured.
func BuildRegistry(cfg *config.Config) (*backend.Registry, error) {
	registry := backend.NewRegistry()
	e := cfg.Extractor

	if err := registry.Register("lexical", backend.NewLexical(backend.LexicalConfig{
		Name:        "lexical",
		Dim:         e.Lexical.Dim,
		Temperature: e.Lexical.Temperature,
		Locality:    e.Lexical.Locality,
	})); err != nil {
		return nil, err
	}
	if err := registry.Register("loom", backend.NewLoom(backend.LoomConfig{
		Name:    "loom",
		URL:     e.Loom.URL,
		Model:   e.Loom.Model,
		Layer:   e.Loom.Layer,
		Timeout: e.Loom.Timeout,
	})); err != nil {
		return nil, err
	}
	if e.Fixture.Path != "" {
		fx, err := backend.NewFixture("fixture", e.Fixture.Path)
		if err != nil {
			return nil, err
		}
		if err := registry.Register("fixture", fx); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Config returns the configuration in use.
func (m *Manager) Config() *config.Config { return m.cfg }

// Registry returns the extractor registry.
func (m *Manager) Registry() *backend.Registry { return m.registry }

// Store returns the analysis store.
func (m *Manager) Store() *insight.Store { return m.store }

// Loom returns the model server supervisor.
func (m *Manager) Loom() *loom.Manager { return m.loom }

// DefaultExtractor returns the configured extractor name.
func (m *Manager) DefaultExtractor() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Extractor.Backend
}

// SetDefaultExtractor switches the extractor used when a request names none.
func (m *Manager) SetDefaultExtractor(name string) error {
	if _, err := m.registry.GetWithError(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Extractor.Backend = name
	return nil
}

// Analyzer returns an analyzer for req.Extractor configured from the
// simulation section. req.Seed overrides the configured seed.
func (m *Manager) Analyzer(req Request) (*insight.Analyzer, error) {
	name := req.Extractor
	if name == "" {
		name = m.DefaultExtractor()
	}
	ex, err := m.registry.GetWithError(name)
	if err != nil {
		return nil, err
	}
	if req.Model != "" {
		lx, ok := ex.(*backend.Loom)
		if !ok {
			return nil, ierrors.Codef(ierrors.ErrInvalidInput, "extractor %s does not take a model", name).
				WithContext("model", req.Model).
				WithSuggestion("Switch to the loom extractor to choose a model")
		}
		ex = lx.WithModel(req.Model)
	}

	s := m.cfg.Simulation
	placement, ok := simulation.PlacementByName(s.Placement)
	if !ok {
		return nil, ierrors.ConfigInvalid("simulation.placement", s.Placement, "unknown placement")
	}
	opts := []insight.Option{
		insight.WithBaseParams(m.cfg.BaseParams()),
		insight.WithWorkers(s.WorkerCount()),
		insight.WithPlacement(placement),
		insight.WithInstabilityPolicy(simulation.InstabilityPolicy(s.InstabilityPolicy)),
		insight.WithEmbeddings(s.KeepEmbeddings),
	}
	switch {
	case req.Seed != nil:
		opts = append(opts, insight.WithSeed(*req.Seed))
	case s.Seed != nil:
		opts = append(opts, insight.WithSeed(*s.Seed))
	}
	return insight.NewAnalyzer(ex, opts...), nil
}

// Prepare makes sure the extractor can serve requests, starting the model
// server for loom when configured to.
func (m *Manager) Prepare(ctx context.Context, extractor string) error {
	if extractor == "" {
		extractor = m.DefaultExtractor()
	}
	ex, err := m.registry.GetWithError(extractor)
	if err != nil {
		return err
	}
	if ex.Type() != backend.TypeLoom || !m.cfg.Extractor.Loom.Server.AutoStart {
		return nil
	}
	return m.loom.EnsureRunning(ctx)
}

// Run analyzes text and stores the result. obs, when set, receives every
// StepEvery-th simulation step.
func (m *Manager) Run(ctx context.Context, text string, req Request, obs simulation.Observer) (*insight.Analysis, error) {
	analyzer, err := m.Analyzer(req)
	if err != nil {
		return nil, err
	}

	an, err := analyzer.AnalyzeObserved(ctx, text, req.Overrides, obs, m.cfg.Simulation.StepEvery)
	if err != nil {
		return nil, err
	}
	if err := m.store.Add(an); err != nil {
		return nil, err
	}
	log.Printf("[runtime] Analysis %s: %d tokens with %s in %.1fms",
		an.ID, len(an.Tokens), an.Extractor, an.DurationMS)
	for _, w := range an.Warnings {
		log.Printf("[runtime] Warning: %s", w)
	}

	if dir := m.cfg.Server.DataDir; dir != "" {
		if err := m.store.Save(dir); err != nil {
			log.Printf("[runtime] Failed to persist analyses: %v", err)
		}
	}
	return an, nil
}

// Delete removes an analysis and its persisted file.
func (m *Manager) Delete(id string) error {
	if !m.store.Delete(id) {
		return ierrors.NotFound(id)
	}
	if dir := m.cfg.Server.DataDir; dir != "" {
		path := filepath.Join(dir, id+".json")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return ierrors.CodeWrap(err, ierrors.ErrIOWriteFailed, "could not remove analysis file").
				WithContext("path", path)
		}
	}
	return nil
}

// Status returns availability status for all extractors.
func (m *Manager) Status(ctx context.Context) map[string]backend.Status {
	return m.registry.Status(ctx)
}

// Close stops a model server this manager started.
func (m *Manager) Close() error {
	return m.loom.Stop()
}

// SVGConfig returns renderer settings for the export section.
func SVGConfig(x config.ExportConfig) *export.SVGConfig {
	cfg := export.DefaultSVGConfig()
	if x.Width > 0 {
		cfg.Width = x.Width
	}
	if x.Height > 0 {
		cfg.Height = x.Height
	}
	if x.Title != "" {
		cfg.Title = x.Title
	}
	cfg.EdgeThreshold = x.EdgeThreshold
	cfg.ToolVersion = Version
	return cfg
}
