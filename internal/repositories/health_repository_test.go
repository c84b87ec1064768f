package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
)

func TestNewDependencyHealthRepositoryValidatesProbes(t *testing.T) {
	noop := func(context.Context) error { return nil }

	cases := []struct {
		name   string
		checks []DependencyCheck
	}{
		{name: "empty set", checks: nil},
		{name: "blank name", checks: []DependencyCheck{{Name: "  ", Check: noop}}},
		{name: "missing probe function", checks: []DependencyCheck{{Name: "timezone"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewDependencyHealthRepository(tc.checks); err == nil {
				t.Fatal("expected a constructor error")
			}
		})
	}
}

func TestDependencyHealthRepositorySnapshotAllHealthy(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	checks := []DependencyCheck{
		{
			Name: "timezone",
			Check: func(ctx context.Context) error {
				select {
				case <-time.After(10 * time.Millisecond):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
		{Name: "pricing_engine", Check: func(context.Context) error { return nil }},
	}

	repo, err := NewDependencyHealthRepository(checks,
		WithDependencyClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if report.Status != domain.HealthStatusOK {
		t.Fatalf("report status = %s, want ok", report.Status)
	}
	if report.GeneratedAt != now {
		t.Fatalf("generatedAt = %s, want %s", report.GeneratedAt, now)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(report.Checks))
	}
	for name, check := range report.Checks {
		if check.Status != domain.HealthStatusOK {
			t.Errorf("check %s status = %s, want ok", name, check.Status)
		}
		if check.Detail != "ok" {
			t.Errorf("check %s detail = %q, want ok", name, check.Detail)
		}
		if check.CheckedAt != now {
			t.Errorf("check %s checkedAt = %s, want %s", name, check.CheckedAt, now)
		}
	}
}

func TestDependencyHealthRepositorySnapshotWorstStatusWins(t *testing.T) {
	failure := errors.New("zone lookup failed")
	checks := []DependencyCheck{
		{Name: "timezone", Check: func(context.Context) error { return failure }},
		{Name: "clock", Check: func(context.Context) error { return nil }},
	}

	repo, err := NewDependencyHealthRepository(checks)
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("report status = %s, want degraded", report.Status)
	}
	check := report.Checks["timezone"]
	if check.Status != domain.HealthStatusDegraded {
		t.Fatalf("timezone status = %s, want degraded", check.Status)
	}
	if check.Error != failure.Error() {
		t.Fatalf("timezone error = %q, want %q", check.Error, failure.Error())
	}
	if got := report.Checks["clock"]; got.Status != domain.HealthStatusOK {
		t.Fatalf("clock status = %s, want ok", got.Status)
	}
}

func TestDependencyHealthRepositorySnapshotTimeout(t *testing.T) {
	checks := []DependencyCheck{
		{
			Name:    "slow_dependency",
			Timeout: 5 * time.Millisecond,
			Check: func(ctx context.Context) error {
				select {
				case <-time.After(20 * time.Millisecond):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
	}

	repo, err := NewDependencyHealthRepository(checks)
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if report.Status != domain.HealthStatusError {
		t.Fatalf("report status = %s, want error", report.Status)
	}
	check := report.Checks["slow_dependency"]
	if check.Status != domain.HealthStatusError {
		t.Fatalf("slow_dependency status = %s, want error", check.Status)
	}
	if check.Detail != "timeout" {
		t.Fatalf("slow_dependency detail = %q, want timeout", check.Detail)
	}
}

func TestDependencyHealthRepositorySnapshotIgnoredDeadline(t *testing.T) {
	// The probe sleeps past its deadline but reports success anyway; the
	// repository must still classify it as a timeout.
	checks := []DependencyCheck{
		{
			Name:    "oblivious",
			Timeout: 5 * time.Millisecond,
			Check: func(context.Context) error {
				time.Sleep(20 * time.Millisecond)
				return nil
			},
		},
	}

	repo, err := NewDependencyHealthRepository(checks)
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	check := report.Checks["oblivious"]
	if check.Status != domain.HealthStatusError {
		t.Fatalf("status = %s, want error", check.Status)
	}
	if check.Detail != "timeout" {
		t.Fatalf("detail = %q, want timeout", check.Detail)
	}
}
