// Package backend provides the unified interface for token feature extraction.
// An extractor turns text into the tokens, per-token embeddings and
// token-to-token attention that the simulation consumes.
package backend

import (
	"context"
	"math"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// Type identifies the extractor type.
type Type string

const (
	TypeLoom    Type = "loom"    // model server over HTTP
	TypeFixture Type = "fixture" // precomputed file
	TypeLexical Type = "lexical" // offline hashed n-grams
)

// Capabilities describes what an extractor can do.
type Capabilities struct {
	MaxTokens    int  `json:"maxTokens"`
	EmbeddingDim int  `json:"embeddingDim"` // 0 when decided by the model
	Offline      bool `json:"offline"`
	RealModel    bool `json:"realModel"` // attention comes from a transformer
}

// Extraction is everything the simulation needs about one text.
// Index i of every slice refers to the same token.
type Extraction struct {
	Text       string      `json:"text" yaml:"text"`
	Tokens     []string    `json:"tokens" yaml:"tokens"`
	Embeddings [][]float64 `json:"embeddings" yaml:"embeddings"`
	Attention  [][]float64 `json:"attention" yaml:"attention"`
	Model      string      `json:"model,omitempty" yaml:"model,omitempty"`
}

// Len returns the number of tokens.
func (e *Extraction) Len() int { return len(e.Tokens) }

// Validate checks that tokens, embeddings and attention are index aligned.
func (e *Extraction) Validate() error {
	n := len(e.Tokens)
	if len(e.Embeddings) != n {
		return ierrors.Codef(ierrors.ErrInvalidInput,
			"%d embeddings for %d tokens", len(e.Embeddings), n).
			WithContextf("tokens", "%d", n).
			WithContextf("embeddings", "%d", len(e.Embeddings))
	}
	if len(e.Attention) != n {
		return ierrors.ShapeMismatch(n, -1, len(e.Attention))
	}
	for i, row := range e.Attention {
		if len(row) != n {
			return ierrors.ShapeMismatch(n, i, len(row))
		}
	}
	if n == 0 {
		return nil
	}
	dim := len(e.Embeddings[0])
	for i, v := range e.Embeddings {
		if len(v) != dim {
			return ierrors.DimensionMismatch(i, dim, len(v))
		}
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return ierrors.InvalidInput("embedding contains non-finite values").
					WithContextf("index", "%d", i)
			}
		}
	}
	return nil
}

// Extractor is the unified interface for feature extraction.
type Extractor interface {
	Name() string
	Type() Type
	IsAvailable(ctx context.Context) bool
	Capabilities() Capabilities
	Extract(ctx context.Context, text string) (*Extraction, error)
}
