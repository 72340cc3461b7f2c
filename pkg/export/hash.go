package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HashAlgorithm identifies the hashing algorithm used for reproducibility hashes.
const HashAlgorithm = "SHA-256"

// HashPrecision is the number of significant digits matrix entries are
// rounded to before hashing, so harmless float noise in extractor output
// does not change the hash.
const HashPrecision = 9

// Fingerprint holds everything that determines a reasoning map's layout.
type Fingerprint struct {
	// Params are the resolved simulation parameters as key=value strings.
	// Keys are sorted during hashing.
	Params map[string]string `json:"params"`

	// Seed is the placement seed.
	Seed int64 `json:"seed"`

	// Placement names the initial placement strategy.
	Placement string `json:"placement"`

	Tokens     []string    `json:"tokens"`
	Embeddings [][]float64 `json:"-"`
	Attention  [][]float64 `json:"-"`
}

// ReproducibilityHash is a computed hash and its metadata.
type ReproducibilityHash struct {
	// Hash is the hex-encoded SHA-256 of the fingerprint.
	Hash string `json:"hash"`

	// Algorithm identifies the hashing algorithm used.
	Algorithm string `json:"algorithm"`

	// ComputedAt is when the hash was computed.
	ComputedAt time.Time `json:"computed_at"`

	// Fingerprint is what was hashed.
	Fingerprint *Fingerprint `json:"fingerprint"`
}

// HashBuilder constructs reproducibility hashes.
type HashBuilder struct {
	fp *Fingerprint
}

// NewHashBuilder creates a new HashBuilder with an empty fingerprint.
func NewHashBuilder() *HashBuilder {
	return &HashBuilder{
		fp: &Fingerprint{Params: make(map[string]string)},
	}
}

// WithParameter adds a simulation parameter.
func (hb *HashBuilder) WithParameter(key, value string) *HashBuilder {
	if hb.fp.Params == nil {
		hb.fp.Params = make(map[string]string)
	}
	hb.fp.Params[key] = value
	return hb
}

// WithParameters adds multiple simulation parameters.
func (hb *HashBuilder) WithParameters(params map[string]string) *HashBuilder {
	for k, v := range params {
		hb.WithParameter(k, v)
	}
	return hb
}

// WithSeed sets the placement seed.
func (hb *HashBuilder) WithSeed(seed int64) *HashBuilder {
	hb.fp.Seed = seed
	return hb
}

// WithPlacement sets the placement strategy name.
func (hb *HashBuilder) WithPlacement(name string) *HashBuilder {
	hb.fp.Placement = name
	return hb
}

// WithInputs sets the tokens and matrices.
func (hb *HashBuilder) WithInputs(tokens []string, embeddings, attention [][]float64) *HashBuilder {
	hb.fp.Tokens = tokens
	hb.fp.Embeddings = embeddings
	hb.fp.Attention = attention
	return hb
}

// Build computes the hash.
func (hb *HashBuilder) Build() *ReproducibilityHash {
	return HashFromFingerprint(hb.fp)
}

// HashFromFingerprint computes a hash directly from a fingerprint.
func HashFromFingerprint(fp *Fingerprint) *ReproducibilityHash {
	if fp == nil {
		fp = &Fingerprint{}
	}
	return &ReproducibilityHash{
		Hash:        computeHash(fp),
		Algorithm:   HashAlgorithm,
		ComputedAt:  time.Now(),
		Fingerprint: fp,
	}
}

// computeHash generates a deterministic SHA-256 hash from a fingerprint.
// Sections are written in a fixed order.
func computeHash(fp *Fingerprint) string {
	var sb strings.Builder

	sb.WriteString("seed:")
	sb.WriteString(strconv.FormatInt(fp.Seed, 10))
	sb.WriteString("|placement:")
	sb.WriteString(fp.Placement)
	sb.WriteString("|")

	if len(fp.Params) > 0 {
		sb.WriteString("params:")
		keys := make([]string, 0, len(fp.Params))
		for k := range fp.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(fp.Params[k])
		}
		sb.WriteString("|")
	}

	sb.WriteString("tokens:")
	for i, t := range fp.Tokens {
		if i > 0 {
			sb.WriteString("\x1f")
		}
		sb.WriteString(t)
	}
	sb.WriteString("|")

	writeMatrix(&sb, "embeddings", fp.Embeddings)
	writeMatrix(&sb, "attention", fp.Attention)

	hasher := sha256.New()
	hasher.Write([]byte(sb.String()))
	return hex.EncodeToString(hasher.Sum(nil))
}

func writeMatrix(sb *strings.Builder, name string, m [][]float64) {
	if m == nil {
		return
	}
	sb.WriteString(name)
	sb.WriteString(":")
	for i, row := range m {
		if i > 0 {
			sb.WriteString(";")
		}
		for j, v := range row {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', HashPrecision, 64))
		}
	}
	sb.WriteString("|")
}

// ShortHash returns the first 8 characters of the full hash.
func (rh *ReproducibilityHash) ShortHash() string {
	if len(rh.Hash) >= 8 {
		return rh.Hash[:8]
	}
	return rh.Hash
}

// Verify recomputes the hash and checks it matches the stored one.
func (rh *ReproducibilityHash) Verify() bool {
	if rh.Fingerprint == nil {
		return false
	}
	return computeHash(rh.Fingerprint) == rh.Hash
}

// ToJSON returns the hash as a JSON string.
func (rh *ReproducibilityHash) ToJSON() (string, error) {
	data, err := json.MarshalIndent(rh, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal reproducibility hash: %w", err)
	}
	return string(data), nil
}
