package backend

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/similarity"
)

// Lexical is an offline extractor. Tokens are whitespace-separated words,
// embeddings are signed feature hashes of character n-grams, and attention
// is a row softmax over positive similarity plus a bonus for nearby tokens.
// It has no model behind it, so maps built from it reflect spelling rather
// than meaning.
type Lexical struct {
	name        string
	dim         int
	temperature float64
	locality    float64
}

// LexicalConfig holds configuration for the Lexical extractor.
type LexicalConfig struct {
	Name        string  `yaml:"name"`
	Dim         int     `yaml:"dim"`
	Temperature float64 `yaml:"temperature"`
	Locality    float64 `yaml:"locality"`
}

// NewLexical creates a Lexical extractor, filling zero fields with defaults.
func NewLexical(cfg LexicalConfig) *Lexical {
	l := &Lexical{
		name:        cfg.Name,
		dim:         cfg.Dim,
		temperature: cfg.Temperature,
		locality:    cfg.Locality,
	}
	if l.name == "" {
		l.name = "lexical"
	}
	if l.dim <= 0 {
		l.dim = 64
	}
	if l.temperature <= 0 {
		l.temperature = 0.5
	}
	switch {
	case cfg.Locality < 0:
		l.locality = 0
	case cfg.Locality == 0:
		l.locality = 0.5
	}
	return l
}

func (l *Lexical) Name() string                       { return l.name }
func (l *Lexical) Type() Type                         { return TypeLexical }
func (l *Lexical) IsAvailable(_ context.Context) bool { return true }

func (l *Lexical) Capabilities() Capabilities {
	return Capabilities{
		MaxTokens:    4096,
		EmbeddingDim: l.dim,
		Offline:      true,
	}
}

// Extract tokenizes text and derives embeddings and attention from it.
// Equal input always gives equal output.
func (l *Lexical) Extract(ctx context.Context, text string) (*Extraction, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, ierrors.Code(ierrors.ErrExtractorEmptyText, "text is empty").
			WithContext("extractor", l.name)
	}
	if len(tokens) > l.Capabilities().MaxTokens {
		return nil, ierrors.Codef(ierrors.ErrInvalidInput,
			"text has %d tokens, limit is %d", len(tokens), l.Capabilities().MaxTokens)
	}

	emb := make([][]float64, len(tokens))
	for i, tok := range tokens {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		emb[i] = l.embed(tok)
	}

	return &Extraction{
		Text:       text,
		Tokens:     tokens,
		Embeddings: emb,
		Attention:  l.attend(emb),
		Model:      "lexical-ngram",
	}, nil
}

// embed hashes the padded character 2-, 3- and 4-grams of a token into a
// unit vector. The low bit of each hash picks the sign so collisions tend
// to cancel.
func (l *Lexical) embed(token string) []float64 {
	vec := make([]float64, l.dim)
	padded := []rune("<" + strings.ToLower(token) + ">")
	for _, n := range []int{2, 3, 4} {
		if len(padded) < n {
			continue
		}
		w := 1 / math.Sqrt(float64(len(padded)-n+1))
		for i := 0; i+n <= len(padded); i++ {
			h := fnv.New64a()
			h.Write([]byte(string(padded[i : i+n])))
			sum := h.Sum64()
			idx := int((sum >> 1) % uint64(l.dim))
			if sum&1 == 1 {
				vec[idx] -= w
			} else {
				vec[idx] += w
			}
		}
	}
	if norm := floats.Norm(vec, 2); norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return vec
}

// attend builds a row-stochastic attention matrix.
func (l *Lexical) attend(emb [][]float64) [][]float64 {
	n := len(emb)
	att := make([][]float64, n)
	for i := range att {
		row := make([]float64, n)
		for j := range row {
			s := math.Max(0, similarity.Cosine(emb[i], emb[j]))
			d := math.Abs(float64(i - j))
			row[j] = (s + l.locality/(1+d)) / l.temperature
		}
		softmax(row)
		att[i] = row
	}
	return att
}

func softmax(row []float64) {
	m := floats.Max(row)
	for j := range row {
		row[j] = math.Exp(row[j] - m)
	}
	floats.Scale(1/floats.Sum(row), row)
}
