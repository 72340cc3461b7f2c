package insight

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/r3d91ll/insight/pkg/backend"
	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// Analyzer runs the extract, resolve, simulate pipeline for one extractor.
type Analyzer struct {
	extractor backend.Extractor
	base      simulation.Params
	seed      *int64
	workers   int
	placement simulation.Placement
	policy    simulation.InstabilityPolicy
	keepEmb   bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBaseParams sets the parameters that per-call overrides apply to.
func WithBaseParams(p simulation.Params) Option {
	return func(a *Analyzer) { a.base = p }
}

// WithSeed fixes the placement seed of every analysis.
func WithSeed(seed int64) Option {
	return func(a *Analyzer) { a.seed = &seed }
}

// WithWorkers sets the engine's accumulation workers.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// WithPlacement sets the initial placement strategy.
func WithPlacement(p simulation.Placement) Option {
	return func(a *Analyzer) { a.placement = p }
}

// WithInstabilityPolicy sets how non-finite particles are handled.
func WithInstabilityPolicy(p simulation.InstabilityPolicy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// WithEmbeddings keeps the raw embeddings on each Analysis. They are
// dropped by default because they dominate the stored size.
func WithEmbeddings(keep bool) Option {
	return func(a *Analyzer) { a.keepEmb = keep }
}

// NewAnalyzer creates an Analyzer that extracts with ex.
func NewAnalyzer(ex backend.Extractor, opts ...Option) *Analyzer {
	a := &Analyzer{
		extractor: ex,
		base:      simulation.DefaultParams(),
		placement: simulation.UniformPlacement{Side: simulation.DefaultSide},
		policy:    simulation.PolicyWarn,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Extractor returns the extractor in use.
func (a *Analyzer) Extractor() backend.Extractor { return a.extractor }

// BaseParams returns the parameters overrides are applied to.
func (a *Analyzer) BaseParams() simulation.Params { return a.base }

// Analyze builds a reasoning map for text.
func (a *Analyzer) Analyze(ctx context.Context, text string, o simulation.Overrides) (*Analysis, error) {
	return a.AnalyzeObserved(ctx, text, o, nil, 0)
}

// AnalyzeObserved is Analyze with obs receiving every n-th simulation step.
func (a *Analyzer) AnalyzeObserved(ctx context.Context, text string, o simulation.Overrides, obs simulation.Observer, every int) (*Analysis, error) {
	if a.extractor == nil {
		return nil, ierrors.Code(ierrors.ErrExtractorNotFound, "no extractor configured")
	}
	start := time.Now()

	ext, err := a.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := ext.Validate(); err != nil {
		return nil, err
	}

	params := a.base.With(o)
	engine := simulation.New(a.engineOptions(obs, every)...)
	res, err := engine.Run(ctx, ext.Embeddings, ext.Attention, params)
	if err != nil {
		return nil, err
	}

	an := &Analysis{
		ID:         uuid.New().String(),
		Text:       ext.Text,
		Tokens:     ext.Tokens,
		Attention:  ext.Attention,
		Initial:    points(res, true),
		Positions:  points(res, false),
		Params:     res.Params,
		Seed:       res.Seed,
		Placement:  res.Placement,
		Iterations: res.Iterations,
		Model:      ext.Model,
		Extractor:  a.extractor.Name(),
		CreatedAt:  start,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if an.Text == "" {
		an.Text = text
	}
	an.Embeddings = ext.Embeddings
	fp := an.Fingerprint()
	an.Hash = export.HashFromFingerprint(&fp).Hash
	if !a.keepEmb {
		an.Embeddings = nil
	}
	for _, w := range res.Warnings {
		an.Warnings = append(an.Warnings, w.Error())
	}
	return an, nil
}

func (a *Analyzer) engineOptions(obs simulation.Observer, every int) []simulation.Option {
	opts := []simulation.Option{
		simulation.WithWorkers(a.workers),
		simulation.WithPlacement(a.placement),
		simulation.WithInstabilityPolicy(a.policy),
	}
	if a.seed != nil {
		opts = append(opts, simulation.WithSeed(*a.seed))
	}
	if obs != nil {
		opts = append(opts, simulation.WithObserver(obs, every))
	}
	return opts
}
