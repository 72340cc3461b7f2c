package api

import (
	"net/http"
	"time"

	"github.com/r3d91ll/insight/pkg/simulation"
)

// AnalysisCounter reports how many analyses are stored.
type AnalysisCounter interface {
	Count() int
}

// SystemHandler serves parameter defaults and health.
type SystemHandler struct {
	base    simulation.Params
	counter AnalysisCounter
	hub     *Hub
	started time.Time
}

// NewSystemHandler creates a SystemHandler. counter and hub may be nil.
func NewSystemHandler(base simulation.Params, counter AnalysisCounter, hub *Hub) *SystemHandler {
	return &SystemHandler{
		base:    base,
		counter: counter,
		hub:     hub,
		started: time.Now(),
	}
}

// RegisterRoutes registers the system routes on the router.
func (h *SystemHandler) RegisterRoutes(router *Router) {
	router.GET("/api/params", h.GetParams)
	router.GET("/health", h.Health)
}

// ParamsResponse is the JSON response for GET /api/params.
type ParamsResponse struct {
	// Defaults are the built-in engine parameters.
	Defaults simulation.Params `json:"defaults"`
	// Configured are the defaults with the configuration file applied.
	Configured simulation.Params `json:"configured"`
	Keys       []string          `json:"keys"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string  `json:"status"`
	Analyses  int     `json:"analyses"`
	Clients   int     `json:"clients"`
	UptimeSec float64 `json:"uptimeSec"`
}

// GetParams handles GET /api/params.
func (h *SystemHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	resp := ParamsResponse{
		Defaults:   simulation.DefaultParams(),
		Configured: h.base,
		Keys:       simulation.Keys,
	}
	for _, warn := range h.base.Warnings() {
		resp.Warnings = append(resp.Warnings, warn.Error())
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		UptimeSec: time.Since(h.started).Seconds(),
	}
	if h.counter != nil {
		resp.Analyses = h.counter.Count()
	}
	if h.hub != nil {
		resp.Clients = h.hub.ClientCount()
	}
	WriteJSON(w, http.StatusOK, resp)
}
