package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forno-digital/pizzaria-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "development"}}
	handler := HealthLive(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Pizzaria-Env"); got != "development" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestHealthReadyAllDependenciesUp(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "development"}}
	handler := HealthReady(cfg, map[string]Pinger{
		"db":    stubPinger{},
		"redis": stubPinger{},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyFailingDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "development"}}
	handler := HealthReady(cfg, map[string]Pinger{
		"db":    stubPinger{},
		"redis": stubPinger{err: errors.New("connection refused")},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
