package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/r3d91ll/insight/pkg/config"
	"github.com/r3d91ll/insight/pkg/runtime"
)

// Server represents the HTTP API server.
type Server struct {
	httpServer *http.Server
	router     *Router
	config     *config.ServerConfig
	hub        *Hub

	// mu protects server state
	mu      sync.RWMutex
	running bool
}

// NewServer creates a new API server with the given configuration.
// Zero fields take the defaults of config.Default.
func NewServer(cfg *config.ServerConfig) *Server {
	def := config.Default().Server
	if cfg == nil {
		cfg = &def
	}
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}

	return &Server{
		router: NewRouter(),
		config: cfg,
		hub:    NewHub(),
	}
}

// Mount registers every insight endpoint backed by mgr.
func (s *Server) Mount(mgr *runtime.Manager) {
	broadcaster := NewHubEventBroadcaster(s.hub)
	exportCfg := mgr.Config().Export

	NewAnalysesHandlerWithManager(mgr, broadcaster, exportCfg).RegisterRoutes(s.router)
	NewExtractorsHandlerWithRegistry(mgr.Registry()).RegisterRoutes(s.router)
	NewSystemHandler(mgr.Config().BaseParams(), mgr.Store(), s.hub).RegisterRoutes(s.router)
	NewConfigHandler(mgr.Config()).RegisterRoutes(s.router)
	s.router.GET("/ws", NewWebSocketHandler(s.hub).HandleFunc())
}

// Address returns the server address in host:port format.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Router returns the underlying router for registering handlers.
func (s *Server) Router() *Router {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the server configuration.
func (s *Server) Config() *config.ServerConfig {
	return s.config
}

// Handler returns the router wrapped in the configured middleware.
func (s *Server) Handler() http.Handler {
	middlewares := []Middleware{RequestIDMiddleware, RecoveryMiddleware}
	if s.config.EnableLogging {
		middlewares = append(middlewares, LoggingMiddleware)
	}
	if len(s.config.CORSOrigins) > 0 {
		middlewares = append(middlewares, CORSMiddleware(s.config.CORSOrigins))
		SetUpgraderCheckOrigin(makeOriginChecker(s.config.CORSOrigins))
	}
	middlewares = append(middlewares, ContentTypeMiddleware)
	return Chain(s.router, middlewares...)
}

// Start starts the HTTP server and the websocket hub in goroutines.
// It returns immediately after starting. Use Shutdown() to stop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	s.httpServer = &http.Server{
		Addr:         s.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	go s.hub.Run()
	s.running = true

	// Use error channel to detect binding failures
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] Starting server on %s", s.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] Server error: %v", err)
			errCh <- err
		}
		close(errCh)
	}()

	// Wait briefly to catch immediate binding errors (e.g., port in use)
	select {
	case err := <-errCh:
		s.running = false
		s.hub.Stop()
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully shuts down the server with a timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	log.Printf("[api] Shutting down server...")
	s.running = false
	s.hub.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// IsRunning returns true if the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// makeOriginChecker creates a function that validates WebSocket origins
// against the configured CORS origins list.
func makeOriginChecker(allowedOrigins []string) func(*http.Request) bool {
	allowed := make(map[string]bool)
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		allowed[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Same-origin and non-browser clients send no Origin.
			return true
		}
		return allowed[origin]
	}
}
