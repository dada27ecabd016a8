package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/AurelieVidal/TempoAPI/internal/transport/http/handlers"
	"github.com/AurelieVidal/TempoAPI/internal/transport/http/routes"
)

func newTestEngine(t *testing.T, checks map[string]handlers.DependencyCheck) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	return routes.Setup(routes.Dependencies{
		Logger:       zaptest.NewLogger(t),
		HealthChecks: checks,
	})
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestEngine(t, nil)

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestReadyEndpointReportsDegradedDependencies(t *testing.T) {
	engine := newTestEngine(t, map[string]handlers.DependencyCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Status != "degraded" {
		t.Errorf("status = %s, want degraded", body.Status)
	}
	if body.Checks["postgres"] != "ok" {
		t.Errorf("postgres check = %q, want ok", body.Checks["postgres"])
	}
	if body.Checks["redis"] != "connection refused" {
		t.Errorf("redis check = %q, want the probe error", body.Checks["redis"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newTestEngine(t, nil)

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
