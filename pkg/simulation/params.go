package simulation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// Parameter keys, shared by config files, shell /set and HTTP overrides.
const (
	KeyIterations                  = "iterations"
	KeySemanticForceStrength       = "semantic_force_strength"
	KeyAttentionForceStrength      = "attention_force_strength"
	KeySemanticAttractionThreshold = "semantic_attraction_threshold"
	KeySemanticRepulsionThreshold  = "semantic_repulsion_threshold"
	KeyDrag                        = "drag"
)

// Keys lists every parameter key in declaration order.
var Keys = []string{
	KeyIterations,
	KeySemanticForceStrength,
	KeyAttentionForceStrength,
	KeySemanticAttractionThreshold,
	KeySemanticRepulsionThreshold,
	KeyDrag,
}

// Params is the fully resolved parameter set of one run.
type Params struct {
	Iterations                  int     `yaml:"iterations" json:"iterations"`
	SemanticForceStrength       float64 `yaml:"semantic_force_strength" json:"semantic_force_strength"`
	AttentionForceStrength      float64 `yaml:"attention_force_strength" json:"attention_force_strength"`
	SemanticAttractionThreshold float64 `yaml:"semantic_attraction_threshold" json:"semantic_attraction_threshold"`
	SemanticRepulsionThreshold  float64 `yaml:"semantic_repulsion_threshold" json:"semantic_repulsion_threshold"`
	Drag                        float64 `yaml:"drag" json:"drag"`
}

// DefaultParams returns the stock parameter set.
func DefaultParams() Params {
	return Params{
		Iterations:                  200,
		SemanticForceStrength:       0.5,
		AttentionForceStrength:      2.0,
		SemanticAttractionThreshold: 0.6,
		SemanticRepulsionThreshold:  0.3,
		Drag:                        0.95,
	}
}

// Overrides holds caller-supplied parameter values.
// Pointers distinguish "not set" from an explicit zero.
type Overrides struct {
	Iterations                  *int     `yaml:"iterations,omitempty" json:"iterations,omitempty"`
	SemanticForceStrength       *float64 `yaml:"semantic_force_strength,omitempty" json:"semantic_force_strength,omitempty"`
	AttentionForceStrength      *float64 `yaml:"attention_force_strength,omitempty" json:"attention_force_strength,omitempty"`
	SemanticAttractionThreshold *float64 `yaml:"semantic_attraction_threshold,omitempty" json:"semantic_attraction_threshold,omitempty"`
	SemanticRepulsionThreshold  *float64 `yaml:"semantic_repulsion_threshold,omitempty" json:"semantic_repulsion_threshold,omitempty"`
	Drag                        *float64 `yaml:"drag,omitempty" json:"drag,omitempty"`
}

// Resolve applies overrides on top of the defaults.
func Resolve(o Overrides) Params {
	return DefaultParams().With(o)
}

// With returns a copy of p with every set override applied.
func (p Params) With(o Overrides) Params {
	if o.Iterations != nil {
		p.Iterations = *o.Iterations
	}
	if o.SemanticForceStrength != nil {
		p.SemanticForceStrength = *o.SemanticForceStrength
	}
	if o.AttentionForceStrength != nil {
		p.AttentionForceStrength = *o.AttentionForceStrength
	}
	if o.SemanticAttractionThreshold != nil {
		p.SemanticAttractionThreshold = *o.SemanticAttractionThreshold
	}
	if o.SemanticRepulsionThreshold != nil {
		p.SemanticRepulsionThreshold = *o.SemanticRepulsionThreshold
	}
	if o.Drag != nil {
		p.Drag = *o.Drag
	}
	return p
}

// Merge returns o with every field set in next taking precedence.
func (o Overrides) Merge(next Overrides) Overrides {
	if next.Iterations != nil {
		o.Iterations = next.Iterations
	}
	if next.SemanticForceStrength != nil {
		o.SemanticForceStrength = next.SemanticForceStrength
	}
	if next.AttentionForceStrength != nil {
		o.AttentionForceStrength = next.AttentionForceStrength
	}
	if next.SemanticAttractionThreshold != nil {
		o.SemanticAttractionThreshold = next.SemanticAttractionThreshold
	}
	if next.SemanticRepulsionThreshold != nil {
		o.SemanticRepulsionThreshold = next.SemanticRepulsionThreshold
	}
	if next.Drag != nil {
		o.Drag = next.Drag
	}
	return o
}

// IsEmpty reports whether no override is set.
func (o Overrides) IsEmpty() bool {
	return o == Overrides{}
}

// Set parses value and stores it under key.
func (o *Overrides) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	if key == KeyIterations {
		n, err := strconv.Atoi(value)
		if err != nil {
			return ierrors.CodeWrap(err, ierrors.ErrInvalidParams,
				fmt.Sprintf("iterations must be an integer, got %q", value)).
				WithContext("param", key)
		}
		o.Iterations = &n
		return nil
	}

	var dst **float64
	switch key {
	case KeySemanticForceStrength:
		dst = &o.SemanticForceStrength
	case KeyAttentionForceStrength:
		dst = &o.AttentionForceStrength
	case KeySemanticAttractionThreshold:
		dst = &o.SemanticAttractionThreshold
	case KeySemanticRepulsionThreshold:
		dst = &o.SemanticRepulsionThreshold
	case KeyDrag:
		dst = &o.Drag
	default:
		return ierrors.Codef(ierrors.ErrUnknownParam, "unknown parameter %q", key).
			WithContext("param", key)
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrInvalidParams,
			fmt.Sprintf("%s must be a number, got %q", key, value)).
			WithContext("param", key)
	}
	*dst = &f
	return nil
}

// ParseAssignment parses "key=value" into o.
func (o *Overrides) ParseAssignment(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return ierrors.Codef(ierrors.ErrInvalidParams, "expected key=value, got %q", s)
	}
	return o.Set(key, value)
}

// Validate rejects parameter sets the engine cannot run.
// Inverted thresholds are not an error; see Warnings.
func (p Params) Validate() error {
	if p.Iterations < 0 {
		return ierrors.InvalidParam(KeyIterations, float64(p.Iterations))
	}
	checks := []struct {
		key string
		v   float64
	}{
		{KeySemanticForceStrength, p.SemanticForceStrength},
		{KeyAttentionForceStrength, p.AttentionForceStrength},
		{KeySemanticAttractionThreshold, p.SemanticAttractionThreshold},
		{KeySemanticRepulsionThreshold, p.SemanticRepulsionThreshold},
		{KeyDrag, p.Drag},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return ierrors.InvalidParam(c.key, c.v)
		}
	}
	return nil
}

// Warnings reports suspicious but runnable settings. The force rule is
// evaluated unchanged regardless.
func (p Params) Warnings() []error {
	var warns []error
	if p.SemanticRepulsionThreshold > p.SemanticAttractionThreshold {
		warns = append(warns, ierrors.Codef(ierrors.ErrThresholdsInverted,
			"semantic_repulsion_threshold %v is above semantic_attraction_threshold %v",
			p.SemanticRepulsionThreshold, p.SemanticAttractionThreshold))
	}
	if p.Drag < 0 || p.Drag > 1 {
		warns = append(warns, ierrors.Codef(ierrors.ErrInvalidParams,
			"drag %v is outside [0, 1]; velocities will not decay", p.Drag).
			WithContext("param", KeyDrag))
	}
	return warns
}

// Map returns the parameters as strings keyed by parameter name.
func (p Params) Map() map[string]string {
	return map[string]string{
		KeyIterations:                  strconv.Itoa(p.Iterations),
		KeySemanticForceStrength:       formatFloat(p.SemanticForceStrength),
		KeyAttentionForceStrength:      formatFloat(p.AttentionForceStrength),
		KeySemanticAttractionThreshold: formatFloat(p.SemanticAttractionThreshold),
		KeySemanticRepulsionThreshold:  formatFloat(p.SemanticRepulsionThreshold),
		KeyDrag:                        formatFloat(p.Drag),
	}
}

// String renders the parameters as sorted key=value pairs.
func (p Params) String() string {
	m := p.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, " ")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
