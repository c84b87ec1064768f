package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
)

var (
	// ErrParkingFeeInvalidTimestamp signals a start or end value that matches none
	// of the accepted timestamp layouts. Deliberately not part of the numbered
	// domain taxonomy: a string that cannot be read is malformed input, not a
	// priced-session violation.
	ErrParkingFeeInvalidTimestamp = errors.New("parking pricing: invalid timestamp")
)

// defaultParkingTimezone anchors wall-clock timestamps when the deployment
// does not configure a zone.
const defaultParkingTimezone = "Europe/Warsaw"

// Timestamp layouts accepted for parking sessions. Zoned layouts pin the
// absolute instant, which is then converted into the reference zone; local
// layouts are read as wall-clock time directly in the reference zone.
var (
	zonedTimestampLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localTimestampLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
)

type ParkingFeeEngine struct {
	location *time.Location
	logger   func(context.Context, string, map[string]any)
}

type ParkingFeeEngineDeps struct {
	Location *time.Location
	Logger   func(context.Context, string, map[string]any)
}

func NewParkingFeeEngine(deps ParkingFeeEngineDeps) (*ParkingFeeEngine, error) {
	location := deps.Location
	if location == nil {
		loaded, err := time.LoadLocation(defaultParkingTimezone)
		if err != nil {
			return nil, fmt.Errorf("parking fee engine: load timezone %s: %w", defaultParkingTimezone, err)
		}
		location = loaded
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &ParkingFeeEngine{
		location: location,
		logger:   logger,
	}, nil
}

type CalculateParkingFeeCommand struct {
	Rules    []PricingRule
	StartAt  string
	EndAt    string
	Currency string
	Rounding RoundingStrategy
}

// Calculate prices one parking session against the supplied rules and returns
// the cheapest evaluation. Validation is eager and ordered: empty rule set,
// structurally invalid rules, unreadable timestamps, non-positive duration,
// duration above the cap. The rule set is checked before any timestamp work
// so a request that is wrong in both ways reports the rule problem.
func (e *ParkingFeeEngine) Calculate(ctx context.Context, cmd CalculateParkingFeeCommand) (ParkingCalculationResult, error) {
	if len(cmd.Rules) == 0 {
		return ParkingCalculationResult{}, domain.ErrEmptyRules
	}
	for i, rule := range cmd.Rules {
		if err := validateParkingRule(rule, i); err != nil {
			return ParkingCalculationResult{}, err
		}
	}

	start, err := e.parseSessionTime("start_at", cmd.StartAt)
	if err != nil {
		return ParkingCalculationResult{}, err
	}
	end, err := e.parseSessionTime("end_at", cmd.EndAt)
	if err != nil {
		return ParkingCalculationResult{}, err
	}

	minutes := sessionMinutes(start, end)
	if minutes <= 0 {
		return ParkingCalculationResult{}, fmt.Errorf("%w: resolved %d minutes", domain.ErrInvalidDuration, minutes)
	}
	if minutes > domain.MaxParkingMinutes {
		return ParkingCalculationResult{}, fmt.Errorf("%w: resolved %d minutes", domain.ErrDurationTooLong, minutes)
	}

	rounding := cmd.Rounding
	if rounding == nil {
		rounding = CeilingRounding
	}

	best := ruleEvaluation{index: -1}
	for i, rule := range cmd.Rules {
		candidate, err := evaluateParkingRule(rule, i, minutes, rounding)
		if err != nil {
			return ParkingCalculationResult{}, err
		}
		if best.index < 0 || isBetterEvaluation(candidate, best) {
			best = candidate
		}
	}
	if best.index < 0 {
		return ParkingCalculationResult{}, fmt.Errorf("parking pricing: no rule selected from %d rules", len(cmd.Rules))
	}

	e.logger(ctx, "parking_fee_calculated", map[string]any{
		"minutes":   minutes,
		"ruleIndex": best.index,
		"total":     best.total,
		"rules":     len(cmd.Rules),
	})

	return ParkingCalculationResult{
		Total:     best.total,
		Currency:  domain.DefaultCurrency,
		RuleIndex: best.index,
		Periods: PeriodsBreakdown{
			Period:              best.rule.Period,
			PriceFirstPeriod:    best.rule.PriceFirstPeriod,
			PriceNextPeriods:    best.rule.PriceNextPeriods,
			ConsumedFirstPeriod: best.consumedFirst,
			ConsumedNextPeriods: best.consumedNext,
		},
	}, nil
}

// parseSessionTime resolves one timestamp string into the reference zone.
// Values carrying an offset are absolute instants; values without one are
// wall-clock readings in the reference zone.
func (e *ParkingFeeEngine) parseSessionTime(field, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrParkingFeeInvalidTimestamp, field)
	}
	for _, layout := range zonedTimestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.In(e.location), nil
		}
	}
	for _, layout := range localTimestampLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, e.location); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s %q", ErrParkingFeeInvalidTimestamp, field, trimmed)
}

// sessionMinutes measures real elapsed time between two instants in whole
// minutes, rounding the fractional minute half away from zero. Instant
// arithmetic keeps DST transitions honest: a span across the fall-back hour
// bills the repeated hour once.
func sessionMinutes(start, end time.Time) int64 {
	return int64(math.Round(end.Sub(start).Minutes()))
}

func validateParkingRule(rule PricingRule, index int) error {
	if rule.Period <= 0 {
		return domain.NewInvalidRuleError(index, "period must be positive")
	}
	if rule.PriceFirstPeriod < 0 {
		return domain.NewInvalidRuleError(index, "first period price must not be negative")
	}
	if rule.PriceNextPeriods < 0 {
		return domain.NewInvalidRuleError(index, "next periods price must not be negative")
	}
	return nil
}

type ruleEvaluation struct {
	index         int
	rule          PricingRule
	total         int64
	consumedFirst int64
	consumedNext  int64
}

func evaluateParkingRule(rule PricingRule, index int, minutes int64, rounding RoundingStrategy) (ruleEvaluation, error) {
	var consumedFirst int64
	if minutes > 0 {
		consumedFirst = 1
	}
	remaining := minutes - rule.Period
	if remaining < 0 {
		remaining = 0
	}
	consumedNext := rounding(remaining, rule.Period)
	if consumedNext < 0 {
		return ruleEvaluation{}, domain.NewInvalidRuleError(index, "rounding produced a negative period count")
	}

	firstCost := consumedFirst * rule.PriceFirstPeriod
	var nextCost int64
	if consumedNext > 0 && rule.PriceNextPeriods > 0 {
		if rule.PriceNextPeriods > math.MaxInt64/consumedNext {
			return ruleEvaluation{}, domain.NewInvalidRuleError(index, "price magnitude overflows the total")
		}
		nextCost = consumedNext * rule.PriceNextPeriods
	}
	if nextCost > 0 && firstCost > math.MaxInt64-nextCost {
		return ruleEvaluation{}, domain.NewInvalidRuleError(index, "price magnitude overflows the total")
	}

	return ruleEvaluation{
		index:         index,
		rule:          rule,
		total:         firstCost + nextCost,
		consumedFirst: consumedFirst,
		consumedNext:  consumedNext,
	}, nil
}

// isBetterEvaluation applies the selection tie-breaks as an ordered chain:
// lower total, then lower first-period price, then shorter period. A full tie
// keeps the incumbent, so the earliest rule wins.
func isBetterEvaluation(candidate, best ruleEvaluation) bool {
	switch {
	case candidate.total < best.total:
		return true
	case candidate.total > best.total:
		return false
	case candidate.rule.PriceFirstPeriod < best.rule.PriceFirstPeriod:
		return true
	case candidate.rule.PriceFirstPeriod > best.rule.PriceFirstPeriod:
		return false
	case candidate.rule.Period < best.rule.Period:
		return true
	default:
		return false
	}
}
