package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ierrors "github.com/r3d91ll/insight/pkg/errors"
)

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return resp
}

func TestRouter_PathParams(t *testing.T) {
	router := NewRouter()
	var got string
	router.GET("/api/analyses/:id/svg", func(w http.ResponseWriter, r *http.Request) {
		got = PathParam(r, "id")
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/analyses/abc123/svg", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got != "abc123" {
		t.Errorf("PathParam(id) = %q, want abc123", got)
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	router := NewRouter()
	noop := func(w http.ResponseWriter, r *http.Request) {}
	router.GET("/api/analyses", noop)
	router.POST("/api/analyses", noop)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
		wantAllow  string
	}{
		{"unknown path", http.MethodGet, "/api/nothing", http.StatusNotFound, "not_found", ""},
		{"empty param", http.MethodGet, "/api/analyses/", http.StatusOK, "", ""},
		{"wrong method", http.MethodDelete, "/api/analyses", http.StatusMethodNotAllowed, "method_not_allowed", "GET, POST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				resp := decodeResponse(t, rr)
				if resp.Success || resp.Error == nil || resp.Error.Code != tt.wantCode {
					t.Errorf("unexpected body %s", rr.Body.String())
				}
			}
			if got := rr.Header().Get("Allow"); got != tt.wantAllow {
				t.Errorf("Allow = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
		params  map[string]string
	}{
		{"/api/analyses", "/api/analyses", true, nil},
		{"/api/analyses/:id", "/api/analyses/x1", true, map[string]string{"id": "x1"}},
		{"/api/analyses/:id", "/api/analyses", false, nil},
		{"/api/analyses/:id/csv", "/api/analyses/x1/svg", false, nil},
		{"/health", "/health/", true, nil},
	}

	for _, tt := range tests {
		params, ok := matchPath(tt.pattern, tt.path)
		if ok != tt.want {
			t.Errorf("matchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, ok, tt.want)
			continue
		}
		for k, v := range tt.params {
			if params[k] != v {
				t.Errorf("matchPath(%q, %q)[%s] = %q, want %q", tt.pattern, tt.path, k, params[k], v)
			}
		}
	}
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ierrors.ErrInvalidInput, http.StatusBadRequest},
		{ierrors.ErrUnknownParam, http.StatusBadRequest},
		{ierrors.ErrAnalysisNotFound, http.StatusNotFound},
		{ierrors.ErrExtractorNotFound, http.StatusNotFound},
		{ierrors.ErrNumericInstability, http.StatusUnprocessableEntity},
		{ierrors.ErrSimulationCanceled, http.StatusRequestTimeout},
		{ierrors.ErrExtractorUnavailable, http.StatusServiceUnavailable},
		{ierrors.ErrExtractorAPIError, http.StatusBadGateway},
		{ierrors.ErrInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusForCode(tt.code); got != tt.want {
			t.Errorf("StatusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteInsightError(t *testing.T) {
	t.Run("insight error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteInsightError(rr, ierrors.NotFound("run-9"))

		if rr.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rr.Code)
		}
		resp := decodeResponse(t, rr)
		if resp.Error == nil || resp.Error.Code != ierrors.ErrAnalysisNotFound {
			t.Errorf("unexpected error %+v", resp.Error)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		WriteInsightError(rr, errors.New("boom"))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rr.Code)
		}
		if resp := decodeResponse(t, rr); resp.Error.Message != "boom" {
			t.Errorf("message = %q, want boom", resp.Error.Message)
		}
	})
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]int{"n": 1})

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decodeResponse(t, rr)
	if !resp.Success {
		t.Error("2xx responses should report success")
	}
}
