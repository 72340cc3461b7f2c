// Package insight turns text into a reasoning map: it extracts token
// features with a backend, runs the force simulation over them and keeps
// the results.
package insight

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// Analysis is one finished reasoning map together with everything needed
// to render or reproduce it.
type Analysis struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Tokens     []string          `json:"tokens"`
	Embeddings [][]float64       `json:"embeddings,omitempty"`
	Attention  [][]float64       `json:"attention"`
	Initial    []Point           `json:"initial"`
	Positions  []Point           `json:"positions"`
	Params     simulation.Params `json:"params"`
	Seed       int64             `json:"seed"`
	Placement  string            `json:"placement"`
	Iterations int               `json:"iterations"`
	Model      string            `json:"model,omitempty"`
	Extractor  string            `json:"extractor"`
	Warnings   []string          `json:"warnings,omitempty"`
	Hash       string            `json:"hash"`
	CreatedAt  time.Time         `json:"created_at"`
	DurationMS float64           `json:"duration_ms"`
}

// Summary is the short form used in listings.
type Summary struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Tokens    int       `json:"tokens"`
	Extractor string    `json:"extractor"`
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the listing form of a.
func (a *Analysis) Summary() Summary {
	return Summary{
		ID:        a.ID,
		Text:      a.Text,
		Tokens:    len(a.Tokens),
		Extractor: a.Extractor,
		Seed:      a.Seed,
		CreatedAt: a.CreatedAt,
	}
}

// ReasoningMap returns the renderer input for a.
func (a *Analysis) ReasoningMap() export.ReasoningMap {
	return export.ReasoningMap{
		Tokens:    a.Tokens,
		Positions: pairs(a.Positions),
		Attention: a.Attention,
	}
}

// Fingerprint describes the inputs that determine a's layout. Embeddings
// are present only when the analysis kept them; Hash was computed with them.
func (a *Analysis) Fingerprint() export.Fingerprint {
	return export.Fingerprint{
		Params:     a.Params.Map(),
		Seed:       a.Seed,
		Placement:  a.Placement,
		Tokens:     a.Tokens,
		Embeddings: a.Embeddings,
		Attention:  a.Attention,
	}
}

// Point is an (x, y) position. Non-finite coordinates, which the engine
// produces under the warn instability policy, encode as JSON null.
type Point [2]float64

// MarshalJSON implements json.Marshaler.
func (p Point) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, v := range p {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes as NaN.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw [2]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, v := range raw {
		if v == nil {
			p[i] = math.NaN()
		} else {
			p[i] = *v
		}
	}
	return nil
}

func points(r *simulation.Result, initial bool) []Point {
	src := r.Positions
	if initial {
		src = r.Initial
	}
	out := make([]Point, len(src))
	for i, v := range src {
		out[i] = Point{v.X, v.Y}
	}
	return out
}

func pairs(ps []Point) [][2]float64 {
	out := make([][2]float64, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}
