// Package simulation lays tokens out in 2D by treating each one as a particle
// pushed around by two force fields: semantic similarity, which attracts or
// repels around a pair of thresholds, and model attention, which only attracts.
//
// A run is a fixed number of sweeps. Each sweep first accumulates the net
// force on every particle from the positions at the start of the sweep, then
// integrates velocity and position for all particles. There is no
// convergence test.
package simulation

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/similarity"
)

// InstabilityPolicy selects what happens when a particle leaves the finite domain.
type InstabilityPolicy string

const (
	// PolicyWarn keeps integrating and reports a warning per affected particle.
	PolicyWarn InstabilityPolicy = "warn"
	// PolicyClamp keeps the particle's last finite position and zeroes its velocity.
	PolicyClamp InstabilityPolicy = "clamp"
	// PolicyFail aborts the run with NUMERIC_INSTABILITY.
	PolicyFail InstabilityPolicy = "fail"
)

// Valid reports whether the policy is known.
func (p InstabilityPolicy) Valid() bool {
	switch p {
	case PolicyWarn, PolicyClamp, PolicyFail:
		return true
	}
	return false
}

// Step describes the system after one sweep.
type Step struct {
	Iteration     int      // 1-based count of completed sweeps
	Total         int      // sweeps requested
	Positions     []r2.Vec // copy, safe to retain
	KineticEnergy float64
}

// Observer receives steps synchronously on the run's goroutine.
type Observer func(Step)

// Result is the outcome of one run.
type Result struct {
	Positions  []r2.Vec
	Initial    []r2.Vec
	Velocities []r2.Vec
	Iterations int
	Params     Params
	Seed       int64
	Placement  string
	Warnings   []error
}

// Engine runs simulations. It holds no per-run state and is safe for
// concurrent use as long as the observer is.
type Engine struct {
	seed         int64
	placement    Placement
	workers      int
	policy       InstabilityPolicy
	observer     Observer
	observeEvery int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed fixes the seed of the placement generator.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithPlacement sets the initial placement strategy.
func WithPlacement(p Placement) Option {
	return func(e *Engine) {
		if p != nil {
			e.placement = p
		}
	}
}

// WithWorkers splits the accumulation pass across n goroutines.
// n <= 1 runs it on the calling goroutine.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithInstabilityPolicy sets how non-finite particles are handled.
func WithInstabilityPolicy(p InstabilityPolicy) Option {
	return func(e *Engine) {
		if p.Valid() {
			e.policy = p
		}
	}
}

// WithObserver reports every n-th sweep and the last one to fn.
func WithObserver(fn Observer, every int) Option {
	return func(e *Engine) {
		e.observer = fn
		if every < 1 {
			every = 1
		}
		e.observeEvery = every
	}
}

// New creates an Engine. Without WithSeed the seed is taken from the clock
// and reported in every Result.
func New(opts ...Option) *Engine {
	e := &Engine{
		seed:         time.Now().UnixNano(),
		placement:    UniformPlacement{Side: DefaultSide},
		policy:       PolicyWarn,
		observeEvery: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run builds the similarity matrix from embeddings and simulates.
// attention must be N×N where N = len(embeddings).
func (e *Engine) Run(ctx context.Context, embeddings [][]float64, attention [][]float64, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkSquare(attention, len(embeddings)); err != nil {
		return nil, err
	}
	sim, err := similarity.Build(embeddings)
	if err != nil {
		return nil, err
	}
	return e.simulate(ctx, sim, attention, p)
}

// Simulate runs on a precomputed similarity matrix. Both matrices must be N×N.
func (e *Engine) Simulate(ctx context.Context, sim [][]float64, attention [][]float64, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkSquare(sim, len(sim)); err != nil {
		return nil, err.WithContext("matrix", "similarity")
	}
	if err := checkSquare(attention, len(sim)); err != nil {
		return nil, err
	}
	return e.simulate(ctx, sim, attention, p)
}

func (e *Engine) simulate(ctx context.Context, sim, attention [][]float64, p Params) (*Result, error) {
	n := len(sim)
	rng := rand.New(rand.NewSource(e.seed))
	pos, err := e.placement.Place(n, rng)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Initial:   append([]r2.Vec(nil), pos...),
		Params:    p,
		Seed:      e.seed,
		Placement: e.placement.Name(),
		Warnings:  p.Warnings(),
	}

	vel := make([]r2.Vec, n)
	net := make([]r2.Vec, n)
	f := &field{pos: pos, sim: sim, attention: attention, params: p}
	unstable := make(map[int]bool)

	for it := 0; it < p.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, ierrors.Canceled(it, err)
		}

		e.accumulate(f, net)

		for i := range pos {
			nv := r2.Scale(p.Drag, r2.Add(vel[i], net[i]))
			np := r2.Add(pos[i], nv)
			if finite(np) && finite(nv) {
				vel[i], pos[i] = nv, np
				continue
			}
			switch e.policy {
			case PolicyFail:
				return nil, ierrors.NumericInstability(it+1, i)
			case PolicyClamp:
				vel[i] = r2.Vec{}
			default:
				vel[i], pos[i] = nv, np
			}
			if !unstable[i] {
				unstable[i] = true
				res.Warnings = append(res.Warnings, ierrors.NumericInstability(it+1, i))
			}
		}

		if e.observer != nil && ((it+1)%e.observeEvery == 0 || it+1 == p.Iterations) {
			e.observer(Step{
				Iteration:     it + 1,
				Total:         p.Iterations,
				Positions:     append([]r2.Vec(nil), pos...),
				KineticEnergy: kineticEnergy(vel),
			})
		}
		res.Iterations = it + 1
	}

	res.Positions = pos
	res.Velocities = vel
	return res, nil
}

// accumulate fills net from the current positions. Workers own disjoint
// index ranges, and the pass returns only after every worker is done.
func (e *Engine) accumulate(f *field, net []r2.Vec) {
	n := len(net)
	workers := e.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		f.accumulateRange(net, 0, n)
		return
	}

	var g errgroup.Group
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			f.accumulateRange(net, lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

func checkSquare(m [][]float64, n int) *ierrors.InsightError {
	if len(m) != n {
		return ierrors.ShapeMismatch(n, -1, len(m))
	}
	for i, row := range m {
		if len(row) != n {
			return ierrors.ShapeMismatch(n, i, len(row))
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ierrors.InvalidInput("matrix contains non-finite values").
					WithContextf("row", "%d", i)
			}
		}
	}
	return nil
}

func kineticEnergy(vel []r2.Vec) float64 {
	var sum float64
	for _, v := range vel {
		sum += r2.Norm2(v)
	}
	return sum / 2
}
