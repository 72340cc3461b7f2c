// Package export tests for reproducibility hash generation.
package export

import (
	"encoding/json"
	"testing"
)

func sampleBuilder() *HashBuilder {
	m := sampleMap()
	return NewHashBuilder().
		WithParameter("drag", "0.95").
		WithParameter("iterations", "200").
		WithSeed(42).
		WithPlacement("uniform").
		WithInputs(m.Tokens, [][]float64{{1, 0}, {0, 1}, {1, 1}}, m.Attention)
}

func TestHashDeterminism(t *testing.T) {
	h1 := sampleBuilder().Build()
	h2 := sampleBuilder().Build()

	if h1.Hash != h2.Hash {
		t.Errorf("same fingerprint produced different hashes: %s vs %s", h1.Hash, h2.Hash)
	}
	if len(h1.Hash) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h1.Hash))
	}
	if h1.Algorithm != HashAlgorithm {
		t.Errorf("expected algorithm %q, got %q", HashAlgorithm, h1.Algorithm)
	}
}

func TestHashParameterOrderIndependence(t *testing.T) {
	a := NewHashBuilder().WithParameter("a", "1").WithParameter("b", "2").Build()
	b := NewHashBuilder().WithParameters(map[string]string{"b": "2", "a": "1"}).Build()
	if a.Hash != b.Hash {
		t.Error("parameter insertion order should not change the hash")
	}
}

func TestHashSensitivity(t *testing.T) {
	base := sampleBuilder().Build().Hash

	tests := []struct {
		name   string
		modify func(*HashBuilder)
	}{
		{"seed", func(hb *HashBuilder) { hb.WithSeed(43) }},
		{"placement", func(hb *HashBuilder) { hb.WithPlacement("noise") }},
		{"parameter", func(hb *HashBuilder) { hb.WithParameter("drag", "0.9") }},
		{"tokens", func(hb *HashBuilder) {
			hb.fp.Tokens = []string{"the", "dog", "sat"}
		}},
		{"token boundary", func(hb *HashBuilder) {
			hb.fp.Tokens = []string{"thec", "at", "sat"}
		}},
		{"attention", func(hb *HashBuilder) {
			hb.fp.Attention = [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
		}},
		{"embeddings", func(hb *HashBuilder) {
			hb.fp.Embeddings = [][]float64{{1, 0}, {0, 1}, {1, 2}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hb := sampleBuilder()
			tt.modify(hb)
			if hb.Build().Hash == base {
				t.Errorf("changing %s should change the hash", tt.name)
			}
		})
	}
}

func TestHashIgnoresFloatNoise(t *testing.T) {
	a := NewHashBuilder().WithInputs([]string{"x"}, nil, [][]float64{{0.1 + 0.2}}).Build()
	b := NewHashBuilder().WithInputs([]string{"x"}, nil, [][]float64{{0.3}}).Build()
	if a.Hash != b.Hash {
		t.Error("differences beyond the hash precision should not change the hash")
	}
}

func TestReproducibilityHash_ShortHashAndVerify(t *testing.T) {
	h := sampleBuilder().Build()
	if h.ShortHash() != h.Hash[:8] {
		t.Errorf("unexpected short hash %q", h.ShortHash())
	}
	if !h.Verify() {
		t.Error("freshly built hash should verify")
	}

	h.Fingerprint.Seed = 7
	if h.Verify() {
		t.Error("tampered fingerprint should not verify")
	}

	if (&ReproducibilityHash{Hash: "abc"}).ShortHash() != "abc" {
		t.Error("short input should be returned unchanged")
	}
	if (&ReproducibilityHash{Hash: "abc"}).Verify() {
		t.Error("hash without fingerprint cannot verify")
	}
}

func TestReproducibilityHash_ToJSON(t *testing.T) {
	h := sampleBuilder().Build()
	data, err := h.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["hash"] != h.Hash {
		t.Error("hash missing from JSON")
	}
	fp, ok := decoded["fingerprint"].(map[string]interface{})
	if !ok {
		t.Fatal("fingerprint missing from JSON")
	}
	if _, ok := fp["attention"]; ok {
		t.Error("matrices should not be serialized")
	}
}
