package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if status.Status != "healthy" || status.Service != "voicebot-widget" {
		t.Errorf("Unexpected health payload: %+v", status)
	}
}

func TestReadinessHandler_AllHealthy(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }

	rec := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthCheckFunc{
		"backend":  ok,
		"deepgram": nil,
	})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if _, ok := status.Dependencies["deepgram"]; ok {
		t.Error("Expected nil check to be skipped")
	}
	if status.Dependencies["backend"].Status != "healthy" {
		t.Errorf("Expected backend healthy, got %+v", status.Dependencies["backend"])
	}
}

func TestReadinessHandler_Unhealthy(t *testing.T) {
	failing := func(ctx context.Context) (bool, error) { return false, errors.New("connection refused") }

	rec := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthCheckFunc{"backend": failing})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if status.Status != "not_ready" {
		t.Errorf("Expected not_ready, got %s", status.Status)
	}
	if status.Dependencies["backend"].Message != "connection refused" {
		t.Errorf("Expected error message to be reported, got %q", status.Dependencies["backend"].Message)
	}
}
