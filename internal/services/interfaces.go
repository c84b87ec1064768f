package services

import (
	"context"

	domain "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
)

// Aliases re-export the domain models this package operates on, keeping the
// dependency direction pointing at domain.
type (
	PricingRule              = domain.PricingRule
	TimeWindow               = domain.TimeWindow
	PeriodsBreakdown         = domain.PeriodsBreakdown
	ParkingCalculationResult = domain.ParkingCalculationResult
	SystemHealthReport       = domain.SystemHealthReport
)

// ParkingFeeService prices a completed parking session against a set of rules.
type ParkingFeeService interface {
	Calculate(ctx context.Context, cmd CalculateParkingFeeCommand) (ParkingCalculationResult, error)
}

// SystemService exposes the aggregated dependency status behind the health
// endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
