package simulation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// MinDistance is the separation below which a pair contributes no force.
const MinDistance = 1e-6

// SemanticMagnitude returns the signed semantic force magnitude for a pair
// with similarity s. Positive attracts, negative repels. Values equal to a
// threshold fall in the neutral zone.
func SemanticMagnitude(s float64, p Params) float64 {
	if s > p.SemanticAttractionThreshold {
		return p.SemanticForceStrength * (s - p.SemanticAttractionThreshold)
	} else if s < p.SemanticRepulsionThreshold {
		return -p.SemanticForceStrength * (p.SemanticRepulsionThreshold - s)
	}
	return 0
}

// field is the read-only state of one accumulation pass.
type field struct {
	pos       []r2.Vec
	sim       [][]float64
	attention [][]float64
	params    Params
}

// forceOn sums the force every other particle exerts on p1, visiting p2 in
// index order.
func (f *field) forceOn(p1 int) r2.Vec {
	var net r2.Vec
	origin := f.pos[p1]
	for p2, target := range f.pos {
		if p2 == p1 {
			continue
		}
		dir := r2.Sub(target, origin)
		dist := r2.Norm(dir)
		if dist < MinDistance {
			continue
		}
		unit := r2.Vec{X: dir.X / dist, Y: dir.Y / dist}

		mag := SemanticMagnitude(f.sim[p1][p2], f.params) +
			f.params.AttentionForceStrength*f.attention[p1][p2]
		net = r2.Add(net, r2.Scale(mag, unit))
	}
	return net
}

// accumulateRange writes net[p1] for p1 in [lo, hi).
func (f *field) accumulateRange(net []r2.Vec, lo, hi int) {
	for p1 := lo; p1 < hi; p1++ {
		net[p1] = f.forceOn(p1)
	}
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
