package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/repositories"
)

// BuildInfo identifies the running binary in health payloads.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps lists what NewSystemService needs.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	repo  repositories.HealthRepository
	now   func() time.Time
	build BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService wires the dependency snapshot repository to the report
// surface consumed by the readiness endpoint.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}

	return &systemService{
		repo:  deps.HealthRepository,
		now:   func() time.Time { return clock().UTC() },
		build: build,
	}, nil
}

// HealthReport fetches the dependency snapshot and stamps it with build
// metadata and uptime. Fields already set by the repository are left alone.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	if ctx == nil {
		return SystemHealthReport{}, errors.New("system service: nil context")
	}

	report, err := s.repo.Snapshot(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.now()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	} else {
		report.GeneratedAt = report.GeneratedAt.UTC()
	}
	if report.Version == "" {
		report.Version = s.build.Version
	}
	if report.CommitSHA == "" {
		report.CommitSHA = s.build.CommitSHA
	}
	if report.Environment == "" {
		report.Environment = s.build.Environment
	}
	if report.Uptime <= 0 && !s.build.StartedAt.IsZero() {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	if report.Status == "" {
		report.Status = statusFromChecks(report.Checks)
	}

	return report, nil
}

func statusFromChecks(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusError:
			return domain.HealthStatusError
		case domain.HealthStatusOK, "":
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
