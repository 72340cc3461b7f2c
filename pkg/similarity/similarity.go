// Package similarity builds pairwise cosine similarity matrices from token embeddings.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/mat"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// Build returns the N×N cosine similarity matrix of embeddings.
//
// A zero vector has similarity 0 with everything, itself included, so it
// lands in the neutral zone of the force field. The diagonal is 1 for
// non-zero vectors; the simulation never reads it. Zero embeddings yield an
// empty matrix. Ragged or non-finite embeddings are INVALID_INPUT.
func Build(embeddings [][]float64) ([][]float64, error) {
	n := len(embeddings)
	out := make([][]float64, n)
	if n == 0 {
		return out, nil
	}

	dim := len(embeddings[0])
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, ierrors.DimensionMismatch(i, dim, len(e))
		}
		for _, v := range e {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ierrors.InvalidInput("embeddings contain non-finite values").
					WithContextf("index", "%d", i)
			}
		}
	}

	for i := range out {
		out[i] = make([]float64, n)
	}
	if dim == 0 {
		return out, nil
	}

	// Rows of unit vectors; the Gram matrix of x is then the cosine matrix.
	x := mat.NewDense(n, dim, nil)
	zero := make([]bool, n)
	row := make([]float64, dim)
	for i, e := range embeddings {
		norm := mat.Norm(mat.NewVecDense(dim, e), 2)
		if norm == 0 {
			zero[i] = true
			continue
		}
		for k, v := range e {
			row[k] = v / norm
		}
		x.SetRow(i, row)
	}

	var gram mat.Dense
	gram.Mul(x, x.T())

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				if !zero[i] {
					out[i][j] = 1
				}
				continue
			}
			out[i][j] = clamp(gram.At(i, j))
		}
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	va := mat.NewVecDense(len(a), a)
	vb := mat.NewVecDense(len(b), b)
	norms := mat.Norm(va, 2) * mat.Norm(vb, 2)
	if norms == 0 {
		return 0
	}
	return clamp(mat.Dot(va, vb) / norms)
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
