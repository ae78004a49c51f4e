package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

type testRegistrar struct{}

func (testRegistrar) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func newTestHandler(ready ReadinessChecker) http.Handler {
	s := New("127.0.0.1:0", zap.NewNop(), ready, testRegistrar{})
	return s.httpServer.Handler
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "alive" {
		t.Errorf("status: %q", body["status"])
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name  string
		ready ReadinessChecker
		want  int
	}{
		{"ready", func(context.Context) error { return nil }, http.StatusOK},
		{"not ready", func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable},
		{"no checker", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(tt.ready)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.want {
				t.Errorf("want %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRegistrarRoutesAreMounted(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("registrar route missing: %d", rec.Code)
	}
}

func TestVersionAndSecurityHeaders(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Header().Get("X-StatusForge-Version") == "" {
		t.Error("missing version header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/test", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight: want 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing CORS allow-origin header")
	}
}

func TestProblemResponseFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "service not found", "/api/services/x")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type: %q", ct)
	}

	var p Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Type != ProblemTypeNotFound || p.Status != http.StatusNotFound {
		t.Errorf("unexpected problem: %+v", p)
	}
	if p.Instance != "/api/services/x" {
		t.Errorf("instance: %q", p.Instance)
	}
}
