package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/r3d91ll/insight/pkg/config"
	"github.com/r3d91ll/insight/pkg/runtime"
)

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(&config.ServerConfig{Port: 9999})
	def := config.Default().Server

	if s.Config().Host != def.Host {
		t.Errorf("host = %q, want %q", s.Config().Host, def.Host)
	}
	if s.Config().ReadTimeout != def.ReadTimeout {
		t.Errorf("read timeout = %v, want %v", s.Config().ReadTimeout, def.ReadTimeout)
	}
	if got, want := s.Address(), def.Host+":9999"; got != want {
		t.Errorf("Address() = %q, want %q", got, want)
	}

	if NewServer(nil).Config().Port != def.Port {
		t.Error("nil config should take the default port")
	}
}

func TestServer_MountRoutes(t *testing.T) {
	mgr, err := runtime.New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(nil)
	s.Mount(mgr)

	registered := make(map[string]bool)
	for _, r := range s.Router().Routes() {
		registered[r.Method+" "+r.Pattern] = true
	}
	for _, route := range []string{
		"POST /api/analyses",
		"GET /api/analyses/:id/svg",
		"GET /api/analyses/:id/csv",
		"DELETE /api/analyses/:id",
		"GET /api/extractors",
		"GET /api/extractors/:name",
		"GET /api/params",
		"GET /api/config",
		"POST /api/config/validate",
		"GET /health",
		"GET /ws",
	} {
		if !registered[route] {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestServer_Handler(t *testing.T) {
	mgr, err := runtime.New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(&config.ServerConfig{CORSOrigins: []string{"http://localhost:5173"}})
	s.Mount(mgr)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("expected CORS header for the configured origin")
	}
}

func TestServer_StartShutdown(t *testing.T) {
	s := NewServer(&config.ServerConfig{Host: "127.0.0.1", Port: freePort(t)})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Error("server should be running")
	}
	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if s.IsRunning() {
		t.Error("server should be stopped")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
