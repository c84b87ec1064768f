package domain

import "time"

// Health statuses reported for the service and its individual dependencies.
// Degraded means a dependency misbehaves while requests are still served;
// error means the service should be taken out of rotation.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// SystemHealthCheck is the outcome of probing a single dependency.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport is the aggregated view served by the readiness endpoint.
// Build metadata fields are filled in by the system service when the probe
// layer leaves them empty.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
