package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/services"
)

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

var _ services.SystemService = (*stubSystemService)(nil)

func getHealth(t *testing.T, h *HealthHandlers, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	switch path {
	case "/healthz":
		h.Healthz(rec, req)
	default:
		h.Readyz(rec, req)
	}
	return rec
}

func TestHealthzReportsBuildMetadata(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := started.Add(30 * time.Second)
	h := NewHealthHandlers(
		WithHealthBuildInfo(services.BuildInfo{
			Version:     "1.0.0",
			CommitSHA:   "abc123",
			Environment: "prod",
			StartedAt:   started,
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	rec := getHealth(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	for key, want := range map[string]string{
		"status":      domain.HealthStatusOK,
		"version":     "1.0.0",
		"commitSha":   "abc123",
		"environment": "prod",
		"uptime":      "30s",
	} {
		if body[key] != want {
			t.Errorf("%s = %v, want %s", key, body[key], want)
		}
	}
}

func TestReadyzHealthy(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	h := NewHealthHandlers(
		WithHealthSystemService(&stubSystemService{
			report: services.SystemHealthReport{
				Status:      domain.HealthStatusOK,
				Version:     "1.0.0",
				CommitSHA:   "abc123",
				Environment: "prod",
				Uptime:      time.Minute,
				GeneratedAt: now,
				Checks: map[string]domain.SystemHealthCheck{
					"timezone": {Status: domain.HealthStatusOK, Latency: 10 * time.Millisecond, CheckedAt: now},
				},
			},
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	rec := getHealth(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}

	if body.Status != domain.HealthStatusOK {
		t.Errorf("status = %s, want ok", body.Status)
	}
	if len(body.Details) != 0 {
		t.Errorf("details = %v, want none", body.Details)
	}
	if body.Checks["timezone"].Status != domain.HealthStatusOK {
		t.Errorf("timezone status = %s, want ok", body.Checks["timezone"].Status)
	}
}

func TestReadyzDegradedDependency(t *testing.T) {
	h := NewHealthHandlers(WithHealthSystemService(&stubSystemService{
		report: services.SystemHealthReport{
			Status: domain.HealthStatusDegraded,
			Checks: map[string]domain.SystemHealthCheck{
				"pricing_engine": {Status: domain.HealthStatusDegraded, Error: "calculation failed"},
			},
		},
	}))

	rec := getHealth(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Status  string   `json:"status"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Status != domain.HealthStatusDegraded {
		t.Errorf("status = %s, want degraded", body.Status)
	}
	if len(body.Details) != 1 || body.Details[0] != "pricing_engine: calculation failed" {
		t.Errorf("details = %v, want the pricing_engine failure", body.Details)
	}
}

func TestReadyzSystemServiceFailure(t *testing.T) {
	h := NewHealthHandlers(WithHealthSystemService(&stubSystemService{
		err: errors.New("probe runner unavailable"),
	}))

	rec := getHealth(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Status  string   `json:"status"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Status != domain.HealthStatusError {
		t.Errorf("status = %s, want error", body.Status)
	}
	if len(body.Details) != 1 || body.Details[0] != "health: probe runner unavailable" {
		t.Errorf("details = %v, want the wrapped service error", body.Details)
	}
}

func TestReadyzWithoutSystemService(t *testing.T) {
	rec := getHealth(t, NewHealthHandlers(), "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
