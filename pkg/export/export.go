// Package export renders reasoning maps to files: SVG figures, CSV tables
// of positions and attention edges, and reproducibility hashes.
package export

import (
	"math"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// NormalizeEpsilon keeps normalization finite when every particle shares a
// coordinate.
const NormalizeEpsilon = 1e-6

// ReasoningMap is the renderer input: tokens, their final positions and the
// attention between them, all index aligned.
type ReasoningMap struct {
	Title     string
	Tokens    []string
	Positions [][2]float64
	Attention [][]float64
}

// Validate checks index alignment.
func (m ReasoningMap) Validate() error {
	n := len(m.Tokens)
	if n == 0 {
		return ierrors.Code(ierrors.ErrExportEmpty, "reasoning map has no tokens")
	}
	if len(m.Positions) != n {
		return ierrors.Codef(ierrors.ErrInvalidInput, "%d positions for %d tokens", len(m.Positions), n)
	}
	if m.Attention != nil {
		if len(m.Attention) != n {
			return ierrors.ShapeMismatch(n, -1, len(m.Attention))
		}
		for i, row := range m.Attention {
			if len(row) != n {
				return ierrors.ShapeMismatch(n, i, len(row))
			}
		}
	}
	return nil
}

// Normalize maps positions into [0, 1) per axis:
// (p - min) / (max - min + NormalizeEpsilon). Non-finite points are left
// out of the bounds and come back as NaN.
func Normalize(positions [][2]float64) [][2]float64 {
	out := make([][2]float64, len(positions))
	lo := [2]float64{math.Inf(1), math.Inf(1)}
	hi := [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, p := range positions {
		if !finitePoint(p) {
			continue
		}
		for k := 0; k < 2; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	for i, p := range positions {
		if !finitePoint(p) {
			out[i] = [2]float64{math.NaN(), math.NaN()}
			continue
		}
		for k := 0; k < 2; k++ {
			out[i][k] = (p[k] - lo[k]) / (hi[k] - lo[k] + NormalizeEpsilon)
		}
	}
	return out
}

func finitePoint(p [2]float64) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) &&
		!math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}

// EdgeAlpha returns the display opacity of an attention weight.
func EdgeAlpha(weight float64) float64 {
	return math.Min(1, 2*weight)
}

// Edge is one directed attention link.
type Edge struct {
	Source int
	Target int
	Weight float64
}

// Edges lists attention links i→j with i≠j whose display opacity exceeds
// minAlpha, in row-major order.
func Edges(attention [][]float64, minAlpha float64) []Edge {
	var out []Edge
	for i, row := range attention {
		for j, w := range row {
			if i == j {
				continue
			}
			if EdgeAlpha(w) > minAlpha {
				out = append(out, Edge{Source: i, Target: j, Weight: w})
			}
		}
	}
	return out
}
