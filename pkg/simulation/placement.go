package simulation

import (
	"math/rand"

	"github.com/aquilax/go-perlin"
	"gonum.org/v1/gonum/spatial/r2"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// DefaultSide is the edge length of the square particles start in.
// Output is normalized downstream, so the scale is arbitrary.
const DefaultSide = 100.0

// Placement assigns initial particle positions.
// Implementations must draw randomness only from rng.
type Placement interface {
	Name() string
	Place(n int, rng *rand.Rand) ([]r2.Vec, error)
}

// UniformPlacement draws every coordinate uniformly from [0, Side).
type UniformPlacement struct {
	Side float64
}

func (UniformPlacement) Name() string { return "uniform" }

// Place draws x then y for each particle in index order.
func (u UniformPlacement) Place(n int, rng *rand.Rand) ([]r2.Vec, error) {
	side := u.Side
	if side <= 0 {
		side = DefaultSide
	}
	out := make([]r2.Vec, n)
	for i := range out {
		out[i] = r2.Vec{X: rng.Float64() * side, Y: rng.Float64() * side}
	}
	return out, nil
}

// NoisePlacement samples coherent Perlin noise along the token sequence, so
// neighbouring tokens start near each other. Jitter adds uniform noise to
// separate tokens that land on the same point.
type NoisePlacement struct {
	Side    float64
	Alpha   float64
	Beta    float64
	Octaves int32
	Step    float64
	Jitter  float64
}

// DefaultNoisePlacement returns a NoisePlacement with working defaults.
func DefaultNoisePlacement() NoisePlacement {
	return NoisePlacement{
		Side:    DefaultSide,
		Alpha:   2,
		Beta:    2,
		Octaves: 3,
		Step:    0.37,
		Jitter:  1,
	}
}

func (NoisePlacement) Name() string { return "noise" }

// Place seeds the noise generator from rng, so equal seeds give equal layouts.
func (np NoisePlacement) Place(n int, rng *rand.Rand) ([]r2.Vec, error) {
	d := DefaultNoisePlacement()
	if np.Side <= 0 {
		np.Side = d.Side
	}
	if np.Alpha <= 0 {
		np.Alpha = d.Alpha
	}
	if np.Beta <= 0 {
		np.Beta = d.Beta
	}
	if np.Octaves <= 0 {
		np.Octaves = d.Octaves
	}
	if np.Step <= 0 {
		np.Step = d.Step
	}

	p := perlin.NewPerlin(np.Alpha, np.Beta, np.Octaves, rng.Int63())
	out := make([]r2.Vec, n)
	for i := range out {
		t := float64(i)*np.Step + 0.5
		x := unitInterval(p.Noise2D(t, 0.25))
		y := unitInterval(p.Noise2D(0.75, t))
		out[i] = r2.Vec{
			X: x*np.Side + (rng.Float64()-0.5)*np.Jitter,
			Y: y*np.Side + (rng.Float64()-0.5)*np.Jitter,
		}
	}
	return out, nil
}

// unitInterval maps noise in roughly [-1, 1] into [0, 1].
func unitInterval(v float64) float64 {
	v = 0.5 + 0.5*v
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FixedPlacement returns the given positions verbatim.
type FixedPlacement []r2.Vec

func (FixedPlacement) Name() string { return "fixed" }

// Place returns a copy of the fixed positions; n must match.
func (f FixedPlacement) Place(n int, _ *rand.Rand) ([]r2.Vec, error) {
	if len(f) != n {
		return nil, ierrors.Codef(ierrors.ErrInvalidInput,
			"fixed placement has %d positions for %d particles", len(f), n)
	}
	out := make([]r2.Vec, n)
	copy(out, f)
	return out, nil
}

// PlacementByName returns the placement registered under name.
func PlacementByName(name string) (Placement, bool) {
	switch name {
	case "", "uniform":
		return UniformPlacement{Side: DefaultSide}, true
	case "noise", "perlin":
		return DefaultNoisePlacement(), true
	}
	return nil, false
}
