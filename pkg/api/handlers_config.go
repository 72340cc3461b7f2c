package api

import (
	"net/http"
	"sync"

	"github.com/r3d91ll/insight/pkg/config"
	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// ConfigHandler exposes the running configuration and validates candidate
// configurations without applying them.
type ConfigHandler struct {
	cfg *config.Config

	// mu protects cfg
	mu sync.RWMutex
}

// NewConfigHandler creates a new ConfigHandler for the running cfg.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &ConfigHandler{cfg: cfg}
}

// RegisterRoutes registers the configuration API routes on the router.
func (h *ConfigHandler) RegisterRoutes(router *Router) {
	router.GET("/api/config", h.GetConfig)
	router.POST("/api/config/validate", h.ValidateConfig)
}

// -----------------------------------------------------------------------------
// API Types
// -----------------------------------------------------------------------------

// ConfigResponse is the JSON representation of the running configuration.
type ConfigResponse struct {
	Extractor  ExtractorSection  `json:"extractor"`
	Simulation SimulationSection `json:"simulation"`
	Export     ExportSection     `json:"export"`
}

// ExtractorSection is the JSON form of the extractor configuration.
type ExtractorSection struct {
	Backend     string `json:"backend"`
	LoomURL     string `json:"loomUrl,omitempty"`
	LoomModel   string `json:"loomModel,omitempty"`
	FixturePath string `json:"fixturePath,omitempty"`
	LexicalDim  int    `json:"lexicalDim,omitempty"`
}

// SimulationSection is the JSON form of the simulation configuration.
type SimulationSection struct {
	Params            simulation.Overrides `json:"params"`
	Seed              *int64               `json:"seed,omitempty"`
	Workers           int                  `json:"workers"`
	InstabilityPolicy string               `json:"instabilityPolicy"`
	Placement         string               `json:"placement"`
	StepEvery         int                  `json:"stepEvery"`
}

// ExportSection is the JSON form of the export configuration.
type ExportSection struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	EdgeThreshold float64 `json:"edgeThreshold"`
	Title         string  `json:"title"`
}

// ValidationResult is the JSON response for config validation.
type ValidationResult struct {
	Valid bool      `json:"valid"`
	Error *APIError `json:"error,omitempty"`
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// GetConfig handles GET /api/config.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	WriteJSON(w, http.StatusOK, configToResponse(h.cfg))
}

// ValidateConfig handles POST /api/config/validate.
// Sections missing from the body keep their defaults.
func (h *ConfigHandler) ValidateConfig(w http.ResponseWriter, r *http.Request) {
	req := configToResponse(config.Default())
	if err := ReadJSON(r, req); err != nil {
		WriteInsightError(w, ierrors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	cfg := requestToConfig(req)
	result := ValidationResult{Valid: true}
	if err := cfg.Validate(); err != nil {
		result.Valid = false
		result.Error = &APIError{Code: ierrors.ErrConfigInvalid, Message: err.Error()}
		if ie, ok := ierrors.AsInsightError(err); ok {
			result.Error = &APIError{
				Code:        ie.Code,
				Message:     ie.Message,
				Context:     ie.Context,
				Suggestions: ie.Suggestions,
			}
		}
	}
	WriteJSON(w, http.StatusOK, result)
}

// -----------------------------------------------------------------------------
// Conversion Functions
// -----------------------------------------------------------------------------

func configToResponse(cfg *config.Config) *ConfigResponse {
	return &ConfigResponse{
		Extractor: ExtractorSection{
			Backend:     cfg.Extractor.Backend,
			LoomURL:     cfg.Extractor.Loom.URL,
			LoomModel:   cfg.Extractor.Loom.Model,
			FixturePath: cfg.Extractor.Fixture.Path,
			LexicalDim:  cfg.Extractor.Lexical.Dim,
		},
		Simulation: SimulationSection{
			Params:            cfg.Simulation.Params,
			Seed:              cfg.Simulation.Seed,
			Workers:           cfg.Simulation.Workers,
			InstabilityPolicy: cfg.Simulation.InstabilityPolicy,
			Placement:         cfg.Simulation.Placement,
			StepEvery:         cfg.Simulation.StepEvery,
		},
		Export: ExportSection{
			Width:         cfg.Export.Width,
			Height:        cfg.Export.Height,
			EdgeThreshold: cfg.Export.EdgeThreshold,
			Title:         cfg.Export.Title,
		},
	}
}

func requestToConfig(req *ConfigResponse) *config.Config {
	cfg := config.Default()
	cfg.Extractor.Backend = req.Extractor.Backend
	cfg.Extractor.Loom.URL = req.Extractor.LoomURL
	cfg.Extractor.Loom.Model = req.Extractor.LoomModel
	cfg.Extractor.Fixture.Path = req.Extractor.FixturePath
	cfg.Extractor.Lexical.Dim = req.Extractor.LexicalDim

	cfg.Simulation.Params = req.Simulation.Params
	cfg.Simulation.Seed = req.Simulation.Seed
	cfg.Simulation.Workers = req.Simulation.Workers
	cfg.Simulation.InstabilityPolicy = req.Simulation.InstabilityPolicy
	cfg.Simulation.Placement = req.Simulation.Placement
	cfg.Simulation.StepEvery = req.Simulation.StepEvery

	cfg.Export.Width = req.Export.Width
	cfg.Export.Height = req.Export.Height
	cfg.Export.EdgeThreshold = req.Export.EdgeThreshold
	cfg.Export.Title = req.Export.Title
	return cfg
}
