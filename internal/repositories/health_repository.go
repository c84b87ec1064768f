package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
)

const defaultProbeTimeout = 1500 * time.Millisecond

// DependencyCheck is a named readiness probe. Timeout bounds a single run;
// when zero the repository default applies.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// DependencyHealthOption adjusts how probes are executed.
type DependencyHealthOption func(*dependencyHealthRepository)

// WithDependencyTimeout replaces the default per-probe timeout.
func WithDependencyTimeout(d time.Duration) DependencyHealthOption {
	return func(r *dependencyHealthRepository) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithDependencyClock overrides the clock used for latency measurement.
func WithDependencyClock(clock func() time.Time) DependencyHealthOption {
	return func(r *dependencyHealthRepository) {
		if clock != nil {
			r.now = clock
		}
	}
}

type dependencyHealthRepository struct {
	probes  []DependencyCheck
	timeout time.Duration
	now     func() time.Time
}

var _ HealthRepository = (*dependencyHealthRepository)(nil)

// NewDependencyHealthRepository validates the probe set up front so a
// misconfigured check fails at startup rather than on the first readiness
// request.
func NewDependencyHealthRepository(checks []DependencyCheck, opts ...DependencyHealthOption) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: no dependency checks configured")
	}
	for i, check := range checks {
		if strings.TrimSpace(check.Name) == "" {
			return nil, fmt.Errorf("health repository: check %d has no name", i)
		}
		if check.Check == nil {
			return nil, fmt.Errorf("health repository: check %q has no probe function", check.Name)
		}
	}

	repo := &dependencyHealthRepository{
		probes:  append([]DependencyCheck(nil), checks...),
		timeout: defaultProbeTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Snapshot runs every probe concurrently and folds the outcomes into a single
// report carrying the worst observed status.
func (r *dependencyHealthRepository) Snapshot(ctx context.Context) (domain.SystemHealthReport, error) {
	if ctx == nil {
		return domain.SystemHealthReport{}, errors.New("health repository: nil context")
	}

	// Each goroutine writes only its own slot, so no locking is needed.
	results := make([]domain.SystemHealthCheck, len(r.probes))
	var wg sync.WaitGroup
	for i, probe := range r.probes {
		wg.Add(1)
		go func(slot int, probe DependencyCheck) {
			defer wg.Done()
			results[slot] = r.runProbe(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	checks := make(map[string]domain.SystemHealthCheck, len(r.probes))
	status := domain.HealthStatusOK
	for i, probe := range r.probes {
		checks[probe.Name] = results[i]
		status = worseStatus(status, results[i].Status)
	}

	return domain.SystemHealthReport{
		Status:      status,
		Checks:      checks,
		GeneratedAt: r.now(),
	}, nil
}

func (r *dependencyHealthRepository) runProbe(ctx context.Context, probe DependencyCheck) domain.SystemHealthCheck {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := r.now()
	err := probe.Check(probeCtx)
	finished := r.now()
	if err == nil && probeCtx.Err() != nil {
		// The probe returned success after its deadline without noticing it.
		err = probeCtx.Err()
	}

	status, detail := classifyProbe(err)
	check := domain.SystemHealthCheck{
		Status:    status,
		Detail:    detail,
		Latency:   finished.Sub(started),
		CheckedAt: finished,
	}
	if err != nil {
		check.Error = err.Error()
	}
	return check
}

// classifyProbe treats context errors as hard failures and everything else as
// degradation: the dependency answered, just not well.
func classifyProbe(err error) (status, detail string) {
	switch {
	case err == nil:
		return domain.HealthStatusOK, "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return domain.HealthStatusError, "timeout"
	case errors.Is(err, context.Canceled):
		return domain.HealthStatusError, "cancelled"
	default:
		return domain.HealthStatusDegraded, err.Error()
	}
}

var statusRank = map[string]int{
	domain.HealthStatusOK:       0,
	domain.HealthStatusDegraded: 1,
	domain.HealthStatusError:    2,
}

func worseStatus(current, candidate string) string {
	if statusRank[candidate] > statusRank[current] {
		return candidate
	}
	return current
}
