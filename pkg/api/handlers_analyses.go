package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/r3d91ll/insight/pkg/config"
	ierrors "github.com/r3d91ll/insight/pkg/errors"
	"github.com/r3d91ll/insight/pkg/export"
	"github.com/r3d91ll/insight/pkg/insight"
	"github.com/r3d91ll/insight/pkg/runtime"
	"github.com/r3d91ll/insight/pkg/simulation"
)

// AnalysisService runs and stores analyses.
// This interface allows for dependency injection and testing.
type AnalysisService interface {
	// Run analyzes text, stores the result and reports steps to obs.
	Run(ctx context.Context, text string, req runtime.Request, obs simulation.Observer) (*insight.Analysis, error)
	// Get retrieves a stored analysis.
	Get(id string) (*insight.Analysis, error)
	// List returns stored analyses, oldest first.
	List() []insight.Summary
	// Delete removes a stored analysis.
	Delete(id string) error
	// Resolve returns the parameters a run with o would use.
	Resolve(o simulation.Overrides) simulation.Params
	// DefaultExtractor names the extractor used when a request names none.
	DefaultExtractor() string
}

// managerAdapter adapts *runtime.Manager to AnalysisService.
type managerAdapter struct {
	mgr *runtime.Manager
}

func (a *managerAdapter) Run(ctx context.Context, text string, req runtime.Request, obs simulation.Observer) (*insight.Analysis, error) {
	return a.mgr.Run(ctx, text, req, obs)
}

func (a *managerAdapter) Get(id string) (*insight.Analysis, error) {
	return a.mgr.Store().GetWithError(id)
}

func (a *managerAdapter) List() []insight.Summary {
	return a.mgr.Store().List()
}

func (a *managerAdapter) Delete(id string) error {
	return a.mgr.Delete(id)
}

func (a *managerAdapter) Resolve(o simulation.Overrides) simulation.Params {
	return a.mgr.Config().BaseParams().With(o)
}

func (a *managerAdapter) DefaultExtractor() string {
	return a.mgr.DefaultExtractor()
}

// AnalysesHandler handles analysis API requests.
type AnalysesHandler struct {
	service     AnalysisService
	broadcaster EventBroadcaster
	export      config.ExportConfig
}

// NewAnalysesHandler creates a new AnalysesHandler. broadcaster may be nil.
func NewAnalysesHandler(service AnalysisService, broadcaster EventBroadcaster, exportCfg config.ExportConfig) *AnalysesHandler {
	return &AnalysesHandler{
		service:     service,
		broadcaster: broadcaster,
		export:      exportCfg,
	}
}

// NewAnalysesHandlerWithManager creates an AnalysesHandler backed by a
// runtime.Manager. This is a convenience function for production use.
func NewAnalysesHandlerWithManager(mgr *runtime.Manager, broadcaster EventBroadcaster, exportCfg config.ExportConfig) *AnalysesHandler {
	return NewAnalysesHandler(&managerAdapter{mgr: mgr}, broadcaster, exportCfg)
}

// RegisterRoutes registers the analysis API routes on the router.
func (h *AnalysesHandler) RegisterRoutes(router *Router) {
	router.POST("/api/analyses", h.CreateAnalysis)
	router.GET("/api/analyses", h.ListAnalyses)
	router.GET("/api/analyses/:id", h.GetAnalysis)
	router.GET("/api/analyses/:id/svg", h.GetSVG)
	router.GET("/api/analyses/:id/csv", h.GetCSV)
	router.DELETE("/api/analyses/:id", h.DeleteAnalysis)
}

// -----------------------------------------------------------------------------
// Request / Response Types
// -----------------------------------------------------------------------------

// CreateAnalysisRequest is the JSON body for POST /api/analyses.
type CreateAnalysisRequest struct {
	Text      string               `json:"text"`
	Extractor string               `json:"extractor,omitempty"`
	Model     string               `json:"model,omitempty"`
	Params    simulation.Overrides `json:"params,omitempty"`
	Seed      *int64               `json:"seed,omitempty"`
}

// CreateAnalysisResponse is the JSON response for POST /api/analyses.
type CreateAnalysisResponse struct {
	RunID    string            `json:"runId"`
	Analysis *insight.Analysis `json:"analysis"`
}

// AnalysisListResponse is the JSON response for GET /api/analyses.
type AnalysisListResponse struct {
	Analyses []insight.Summary `json:"analyses"`
	Count    int               `json:"count"`
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// CreateAnalysis handles POST /api/analyses.
// The run is synchronous; websocket clients see its progress meanwhile.
func (h *AnalysesHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := ReadJSON(r, &req); err != nil {
		WriteInsightError(w, ierrors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteInsightError(w, ierrors.InvalidInput("text is required").
			WithSuggestion("Send {\"text\": \"...\"}"))
		return
	}

	extractor := req.Extractor
	if extractor == "" {
		extractor = h.service.DefaultExtractor()
	}
	runID := uuid.NewString()
	h.emitStarted(&AnalysisStartedEvent{
		RunID:      runID,
		Text:       req.Text,
		Extractor:  extractor,
		Iterations: h.service.Resolve(req.Params).Iterations,
	})

	var obs simulation.Observer
	if h.broadcaster != nil {
		obs = StepObserver(h.broadcaster, runID)
	}
	an, err := h.service.Run(r.Context(), req.Text, runtime.Request{
		Extractor: extractor,
		Model:     req.Model,
		Seed:      req.Seed,
		Overrides: req.Params,
	}, obs)
	if err != nil {
		h.emitFailed(runID, err)
		WriteInsightError(w, err)
		return
	}

	if h.broadcaster != nil {
		_ = h.broadcaster.BroadcastAnalysisComplete(&AnalysisCompleteEvent{
			RunID:      runID,
			Analysis:   an.Summary(),
			Hash:       an.Hash,
			Warnings:   an.Warnings,
			DurationMS: an.DurationMS,
		})
	}
	WriteJSON(w, http.StatusCreated, CreateAnalysisResponse{RunID: runID, Analysis: an})
}

func (h *AnalysesHandler) emitStarted(event *AnalysisStartedEvent) {
	if h.broadcaster != nil {
		_ = h.broadcaster.BroadcastAnalysisStarted(event)
	}
}

func (h *AnalysesHandler) emitFailed(runID string, err error) {
	if h.broadcaster == nil {
		return
	}
	code := ierrors.ErrInternal
	if ie, ok := ierrors.AsInsightError(err); ok {
		code = ie.Code
	}
	_ = h.broadcaster.BroadcastAnalysisFailed(&AnalysisFailedEvent{
		RunID:   runID,
		Code:    code,
		Message: err.Error(),
	})
}

// ListAnalyses handles GET /api/analyses.
func (h *AnalysesHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	list := h.service.List()
	WriteJSON(w, http.StatusOK, AnalysisListResponse{Analyses: list, Count: len(list)})
}

// GetAnalysis handles GET /api/analyses/:id.
func (h *AnalysesHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	an, err := h.service.Get(PathParam(r, "id"))
	if err != nil {
		WriteInsightError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, an)
}

// GetSVG handles GET /api/analyses/:id/svg.
// Query parameters: threshold (edge opacity cutoff), title.
func (h *AnalysesHandler) GetSVG(w http.ResponseWriter, r *http.Request) {
	an, err := h.service.Get(PathParam(r, "id"))
	if err != nil {
		WriteInsightError(w, err)
		return
	}

	cfg := runtime.SVGConfig(h.export)
	q := r.URL.Query()
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			WriteInsightError(w, ierrors.InvalidInput("threshold must be a number between 0 and 1").
				WithContext("threshold", v))
			return
		}
		cfg.EdgeThreshold = t
	}
	if v := q.Get("title"); v != "" {
		cfg.Title = v
	}

	m := an.ReasoningMap()
	m.Title = cfg.Title
	svg, err := export.NewMapSVGBuilder(cfg).SetMap(m).Build()
	if err != nil {
		WriteInsightError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("X-Reproducibility-Hash", an.Hash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

// GetCSV handles GET /api/analyses/:id/csv.
// Query parameters: table (positions|edges), dialect (standard|tsv),
// min_weight (edges only).
func (h *AnalysesHandler) GetCSV(w http.ResponseWriter, r *http.Request) {
	an, err := h.service.Get(PathParam(r, "id"))
	if err != nil {
		WriteInsightError(w, err)
		return
	}

	q := r.URL.Query()
	cfg := export.DefaultCSVConfig()
	contentType := "text/csv"
	switch q.Get("dialect") {
	case "", string(export.DialectStandard):
	case string(export.DialectTSV):
		cfg.Dialect = export.DialectTSV
		contentType = "text/tab-separated-values"
	default:
		WriteInsightError(w, ierrors.InvalidInput("unknown dialect "+q.Get("dialect")).
			WithContext("valid_options", "standard, tsv"))
		return
	}
	if v := q.Get("min_weight"); v != "" {
		mw, err := strconv.ParseFloat(v, 64)
		if err != nil {
			WriteInsightError(w, ierrors.InvalidInput("min_weight must be a number").
				WithContext("min_weight", v))
			return
		}
		cfg.MinWeight = mw
	}

	var buf bytes.Buffer
	table := q.Get("table")
	switch table {
	case "", "positions":
		table = "positions"
		err = export.ExportPositionsCSV(&buf, an.ReasoningMap(), cfg)
	case "edges":
		err = export.ExportEdgesCSV(&buf, an.ReasoningMap(), cfg)
	default:
		WriteInsightError(w, ierrors.InvalidInput("unknown table "+table).
			WithContext("valid_options", "positions, edges"))
		return
	}
	if err != nil {
		WriteInsightError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+an.ID+"-"+table+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// DeleteAnalysis handles DELETE /api/analyses/:id.
func (h *AnalysesHandler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := PathParam(r, "id")
	if err := h.service.Delete(id); err != nil {
		WriteInsightError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
