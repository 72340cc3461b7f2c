package backend

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// Fixture serves a precomputed extraction loaded from a JSON or YAML file.
// The input text is ignored; the fixture always describes its own text.
type Fixture struct {
	name string
	path string
	ext  *Extraction
}

// NewFixture loads and validates the file at path.
func NewFixture(name, path string) (*Fixture, error) {
	ext, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "fixture"
	}
	return &Fixture{name: name, path: path, ext: ext}, nil
}

// LoadFixture decodes an extraction from path. Files ending in .yaml or
// .yml are read as YAML, everything else as JSON.
func LoadFixture(path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ierrors.CodeWrap(err, ierrors.ErrIOReadFailed, "could not read fixture").
			WithContext("path", path)
	}
	ext, err := DecodeFixture(data, filepath.Ext(path))
	if err != nil {
		if ie, ok := ierrors.AsInsightError(err); ok {
			return nil, ie.WithContext("path", path)
		}
		return nil, err
	}
	return ext, nil
}

// DecodeFixture decodes data according to the file extension ext.
func DecodeFixture(data []byte, ext string) (*Extraction, error) {
	var out Extraction
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, ierrors.CodeWrap(err, ierrors.ErrFixtureInvalid, "could not parse YAML fixture")
		}
	default:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, ierrors.CodeWrap(err, ierrors.ErrFixtureInvalid, "could not parse JSON fixture")
		}
	}
	if out.Tokens == nil {
		return nil, ierrors.Code(ierrors.ErrFixtureInvalid, "fixture has no tokens field")
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *Fixture) Name() string                       { return f.name }
func (f *Fixture) Type() Type                         { return TypeFixture }
func (f *Fixture) IsAvailable(_ context.Context) bool { return true }
func (f *Fixture) Path() string                       { return f.path }

func (f *Fixture) Capabilities() Capabilities {
	dim := 0
	if len(f.ext.Embeddings) > 0 {
		dim = len(f.ext.Embeddings[0])
	}
	return Capabilities{
		MaxTokens:    len(f.ext.Tokens),
		EmbeddingDim: dim,
		Offline:      true,
	}
}

// Extract returns a deep copy of the fixture so callers may modify it.
func (f *Fixture) Extract(ctx context.Context, _ string) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &Extraction{
		Text:       f.ext.Text,
		Tokens:     append([]string(nil), f.ext.Tokens...),
		Embeddings: copyMatrix(f.ext.Embeddings),
		Attention:  copyMatrix(f.ext.Attention),
		Model:      f.ext.Model,
	}
	if out.Text == "" {
		out.Text = strings.Join(out.Tokens, " ")
	}
	return out, nil
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
