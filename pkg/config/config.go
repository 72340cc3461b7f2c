// Package config handles insight configuration loading.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// Environment variables that override file values.
const (
	EnvLoomURL   = "INSIGHT_LOOM_URL"
	EnvLoomModel = "INSIGHT_LOOM_MODEL"
	EnvExtractor = "INSIGHT_EXTRACTOR"
	EnvSeed      = "INSIGHT_SEED"
	EnvWorkers   = "INSIGHT_WORKERS"
)

// ValidExtractors lists the extractor backends a config may name.
var ValidExtractors = []string{"loom", "fixture", "lexical"}

// Config is the root configuration structure.
type Config struct {
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	Export     ExportConfig     `yaml:"export"`
}

// ExtractorConfig selects and configures the token feature source.
type ExtractorConfig struct {
	Backend string        `yaml:"backend"`
	Loom    LoomConfig    `yaml:"loom"`
	Fixture FixtureConfig `yaml:"fixture"`
	Lexical LexicalConfig `yaml:"lexical"`
}

// LoomConfig holds model server settings.
type LoomConfig struct {
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Layer   int           `yaml:"layer"` // -1 = last layer
	Timeout time.Duration `yaml:"timeout"`

	// Server starts the model server when it is not already answering.
	Server LoomServerConfig `yaml:"server"`
}

// LoomServerConfig describes how to launch the model server locally.
type LoomServerConfig struct {
	AutoStart      bool          `yaml:"auto_start"`
	Command        []string      `yaml:"command"`
	Dir            string        `yaml:"dir"`
	PreloadModel   string        `yaml:"preload_model"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
}

// FixtureConfig points at a precomputed extraction file.
type FixtureConfig struct {
	Path string `yaml:"path"`
}

// LexicalConfig holds offline extractor settings.
type LexicalConfig struct {
	Dim         int     `yaml:"dim"`
	Temperature float64 `yaml:"temperature"`
	Locality    float64 `yaml:"locality"`
}

// SimulationConfig holds engine settings. Params only carries the keys the
// user set; everything else keeps the engine defaults.
type SimulationConfig struct {
	Params            simulation.Overrides `yaml:"params"`
	Seed              *int64               `yaml:"seed,omitempty"`
	Workers           int                  `yaml:"workers"` // 0 means one per CPU
	InstabilityPolicy string               `yaml:"instability_policy"`
	Placement         string               `yaml:"placement"`

	// StepEvery is how often progress observers are notified.
	StepEvery int `yaml:"step_every"`

	// KeepEmbeddings stores raw embeddings on each analysis.
	KeepEmbeddings bool `yaml:"keep_embeddings"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	EnableLogging bool          `yaml:"enable_logging"`

	// DataDir persists analyses across restarts when set.
	DataDir string `yaml:"data_dir"`
}

// ExportConfig holds rendering settings.
type ExportConfig struct {
	Directory     string  `yaml:"directory"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	EdgeThreshold float64 `yaml:"edge_threshold"`
	Title         string  `yaml:"title"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Extractor: ExtractorConfig{
			Backend: "lexical",
			Loom: LoomConfig{
				URL:     "http://localhost:8080",
				Layer:   -1,
				Timeout: 120 * time.Second,
			},
			Lexical: LexicalConfig{
				Dim:         64,
				Temperature: 0.5,
				Locality:    0.5,
			},
		},
		Simulation: SimulationConfig{
			InstabilityPolicy: string(simulation.PolicyWarn),
			Placement:         "uniform",
			StepEvery:         10,
		},
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8081,
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   60 * time.Second,
			CORSOrigins:   []string{"http://localhost:5173"},
			EnableLogging: true,
		},
		Export: ExportConfig{
			Directory:     "./maps",
			Width:         1600,
			Height:        1200,
			EdgeThreshold: 0.1,
			Title:         "LLM Insight: Reasoning Map",
		},
	}
}

// Load loads configuration from a file, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ierrors.ConfigNotFound(path)
		}
		return nil, ierrors.CodeWrap(err, ierrors.ErrIOReadFailed, "failed to read config").
			WithContext("path", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		perr := ierrors.ConfigParseError(path, err)
		line, col := extractYAMLErrorLocation(err.Error())
		if line > 0 {
			perr.WithContext("line", strconv.Itoa(line))
		}
		if col > 0 {
			perr.WithContext("column", strconv.Itoa(col))
		}
		if typ := extractExpectedType(err.Error()); typ != "" {
			perr.WithContext("expected_type", typ)
		}
		return nil, perr
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if ie, ok := ierrors.AsInsightError(err); ok {
			ie.WithContext("path", path)
		}
		return nil, err
	}

	log.Printf("[config] Loaded %s", path)
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns default if not found.
// Environment overrides apply in both cases.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Existing variables win. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("[config] Ignoring %s: %v", p, err)
		}
	}
}

// ApplyEnv overlays INSIGHT_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvLoomURL); v != "" {
		c.Extractor.Loom.URL = v
	}
	if v := os.Getenv(EnvLoomModel); v != "" {
		c.Extractor.Loom.Model = v
	}
	if v := os.Getenv(EnvExtractor); v != "" {
		c.Extractor.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ierrors.ConfigInvalid(EnvSeed, v, "seed must be an integer").WithCause(err)
		}
		c.Simulation.Seed = &seed
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ierrors.ConfigInvalid(EnvWorkers, v, "workers must be an integer").WithCause(err)
		}
		c.Simulation.Workers = n
	}
	return nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	e := c.Extractor
	if !isValidOption(e.Backend, ValidExtractors) {
		return ierrors.ConfigInvalid("extractor.backend", e.Backend,
			fmt.Sprintf("unknown extractor %q", e.Backend)).
			WithContext("valid_options", strings.Join(ValidExtractors, ", "))
	}
	if e.Backend == "loom" && strings.TrimSpace(e.Loom.URL) == "" {
		return ierrors.ConfigInvalid("extractor.loom.url", "", "loom extractor requires a URL").
			WithSuggestion("Set extractor.loom.url or " + EnvLoomURL)
	}
	if e.Backend == "fixture" && e.Fixture.Path == "" {
		return ierrors.ConfigInvalid("extractor.fixture.path", "", "fixture extractor requires a path")
	}
	if e.Lexical.Dim < 0 {
		return ierrors.ConfigInvalid("extractor.lexical.dim", strconv.Itoa(e.Lexical.Dim),
			"lexical dimension cannot be negative")
	}

	s := c.Simulation
	if s.Workers < 0 {
		return ierrors.ConfigInvalid("simulation.workers", strconv.Itoa(s.Workers),
			"workers cannot be negative")
	}
	if !simulation.InstabilityPolicy(s.InstabilityPolicy).Valid() {
		return ierrors.ConfigInvalid("simulation.instability_policy", s.InstabilityPolicy,
			fmt.Sprintf("unknown instability policy %q", s.InstabilityPolicy)).
			WithContext("valid_options", "warn, clamp, fail")
	}
	if _, ok := simulation.PlacementByName(s.Placement); !ok {
		return ierrors.ConfigInvalid("simulation.placement", s.Placement,
			fmt.Sprintf("unknown placement %q", s.Placement)).
			WithContext("valid_options", "uniform, noise, perlin")
	}
	if err := simulation.Resolve(s.Params).Validate(); err != nil {
		if ie, ok := ierrors.AsInsightError(err); ok {
			return ierrors.ConfigInvalid("simulation.params."+ie.Context["param"], "", ie.Message).WithCause(err)
		}
		return err
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return ierrors.ConfigInvalid("server.port", strconv.Itoa(c.Server.Port),
			"port must be between 0 and 65535")
	}

	x := c.Export
	if x.Width <= 0 || x.Height <= 0 {
		return ierrors.ConfigInvalid("export.width", fmt.Sprintf("%dx%d", x.Width, x.Height),
			"export dimensions must be positive")
	}
	if x.EdgeThreshold < 0 || x.EdgeThreshold > 1 {
		return ierrors.ConfigInvalid("export.edge_threshold", strconv.FormatFloat(x.EdgeThreshold, 'g', -1, 64),
			"edge threshold must be between 0 and 1")
	}
	return nil
}

// WorkerCount resolves Workers, mapping 0 to the number of CPUs.
func (s SimulationConfig) WorkerCount() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}

// BaseParams returns the engine defaults with the configured overrides applied.
func (c *Config) BaseParams() simulation.Params {
	return simulation.Resolve(c.Simulation.Params)
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrConfigWriteFailed, "failed to create config directory").
			WithContext("path", dir)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrConfigWriteFailed, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrConfigWriteFailed, "failed to write config file").
			WithContext("path", path)
	}
	return nil
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	if _, err := os.Stat("insight.yaml"); err == nil {
		return "insight.yaml"
	}
	if _, err := os.Stat("config/insight.yaml"); err == nil {
		return "config/insight.yaml"
	}
	return "insight.yaml"
}

// InitConfig creates a default config file if it doesn't exist.
func InitConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // Already exists
	}

	cfg := Default()
	return cfg.Save(path)
}

var (
	yamlLineCol = regexp.MustCompile(`line (\d+)(?::(\d+))?`)
	yamlType    = regexp.MustCompile(`into \*?([A-Za-z0-9_.\[\]]+)`)
)

// extractYAMLErrorLocation pulls the line and column out of a yaml.v3 error.
// Zero means unknown.
func extractYAMLErrorLocation(errStr string) (line, col int) {
	m := yamlLineCol.FindStringSubmatch(errStr)
	if m == nil {
		return 0, 0
	}
	line, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		col, _ = strconv.Atoi(m[2])
	}
	return line, col
}

// extractExpectedType returns the Go type a yaml.v3 unmarshal error wanted.
func extractExpectedType(errStr string) string {
	m := yamlType.FindStringSubmatch(errStr)
	if m == nil {
		return ""
	}
	return m[1]
}

func isValidOption(value string, validOptions []string) bool {
	for _, opt := range validOptions {
		if value == opt {
			return true
		}
	}
	return false
}
