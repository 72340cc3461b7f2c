// Package loom supervises a local model server for the loom extractor.
// It health checks the server, launches it as a subprocess when asked to
// and stops it again on shutdown.
package loom

import (
	"bufio"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

// Manager handles the model server lifecycle.
type Manager struct {
	config     Config
	cmd        *exec.Cmd
	exited     chan struct{}
	httpClient *http.Client
	mu         sync.Mutex
	running    bool
}

// Config holds manager configuration.
type Config struct {
	// URL of the model server.
	URL string `yaml:"url"`
	// Command launches the server, e.g. ["poetry", "run", "loom", "--port", "8080"].
	Command []string `yaml:"command"`
	// Dir is the working directory of Command.
	Dir string `yaml:"dir"`
	// PreloadModel is passed as --preload when set.
	PreloadModel string `yaml:"preload_model"`
	// AutoStart starts the server if it is not answering.
	AutoStart bool `yaml:"auto_start"`
	// StartupTimeout is how long to wait for the server to become healthy.
	StartupTimeout time.Duration `yaml:"startup_timeout"`
	// HealthTimeout bounds a single health probe.
	HealthTimeout time.Duration `yaml:"health_timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:            "http://localhost:8080",
		StartupTimeout: 60 * time.Second,
		HealthTimeout:  5 * time.Second,
	}
}

// NewManager creates a new model server manager.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = def.StartupTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = def.HealthTimeout
	}
	return &Manager{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.HealthTimeout},
	}
}

// URL returns the model server URL.
func (m *Manager) URL() string {
	return m.config.URL
}

// IsRunning checks if the server answers its health check.
func (m *Manager) IsRunning(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL()+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// EnsureRunning returns nil once the server is healthy, starting it first
// when auto start is enabled.
func (m *Manager) EnsureRunning(ctx context.Context) error {
	if m.IsRunning(ctx) {
		return nil
	}
	if !m.config.AutoStart {
		return ierrors.Codef(ierrors.ErrExtractorUnavailable,
			"model server not running at %s", m.URL()).
			WithContext("url", m.URL()).
			WithSuggestion("Start the model server or set extractor.loom.server.auto_start")
	}
	if len(m.config.Command) == 0 {
		return ierrors.Code(ierrors.ErrExtractorUnavailable,
			"model server not running and no start command configured").
			WithContext("url", m.URL()).
			WithSuggestion("Set extractor.loom.server.command")
	}
	return m.Start(ctx)
}

// Start launches the server as a subprocess and waits until it is healthy.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if len(m.config.Command) == 0 {
		return ierrors.Code(ierrors.ErrExtractorUnavailable, "no start command configured")
	}
	if m.config.Dir != "" {
		if _, err := os.Stat(m.config.Dir); err != nil {
			return ierrors.CodeWrap(err, ierrors.ErrExtractorUnavailable,
				"model server directory not found").
				WithContext("dir", m.config.Dir)
		}
	}

	args := append([]string(nil), m.config.Command[1:]...)
	if m.config.PreloadModel != "" {
		args = append(args, "--preload", m.config.PreloadModel)
	}

	// The subprocess outlives the caller's context; Stop ends it.
	cmd := exec.Command(m.config.Command[0], args...)
	cmd.Dir = m.config.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrExtractorUnavailable, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrExtractorUnavailable, "stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return ierrors.CodeWrap(err, ierrors.ErrExtractorUnavailable, "failed to start model server").
			WithContext("command", strings.Join(m.config.Command, " "))
	}
	log.Printf("[loom] Started %s (pid %d)", m.config.Command[0], cmd.Process.Pid)

	m.cmd = cmd
	m.exited = make(chan struct{})
	m.running = true

	go logOutput(stdout)
	go logOutput(stderr)
	go func(exited chan struct{}) {
		_ = cmd.Wait()
		close(exited)
	}(m.exited)

	if err := m.waitForReady(ctx); err != nil {
		m.stopLocked()
		return err
	}
	return nil
}

// waitForReady polls the health endpoint until ready or timeout.
// Caller must hold the mutex.
func (m *Manager) waitForReady(ctx context.Context) error {
	deadline := time.Now().Add(m.config.StartupTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return ierrors.Code(ierrors.ErrExtractorUnavailable, "model server exited during startup")
		case <-ticker.C:
			if m.IsRunning(ctx) {
				return nil
			}
			if time.Now().After(deadline) {
				return ierrors.Codef(ierrors.ErrExtractorUnavailable,
					"model server failed to start within %v", m.config.StartupTimeout).
					WithContext("url", m.URL())
			}
		}
	}
}

// Stop interrupts a server started by this manager, killing it if it has
// not exited after five seconds. Servers started elsewhere are left alone.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *Manager) stopLocked() {
	if !m.running || m.cmd == nil || m.cmd.Process == nil {
		return
	}
	if err := m.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = m.cmd.Process.Kill()
	}
	select {
	case <-m.exited:
	case <-time.After(5 * time.Second):
		_ = m.cmd.Process.Kill()
		<-m.exited
	}
	log.Printf("[loom] Stopped model server")
	m.running = false
	m.cmd = nil
}

// IsManaged returns true if this manager started the server.
func (m *Manager) IsManaged() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func logOutput(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Printf("[loom] %s", scanner.Text())
	}
}
