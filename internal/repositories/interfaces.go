package repositories

import (
	"context"

	domain "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
)

// HealthRepository reports the current readiness of the API's runtime
// dependencies.
type HealthRepository interface {
	Snapshot(ctx context.Context) (domain.SystemHealthReport, error)
}
