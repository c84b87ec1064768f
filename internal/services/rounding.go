package services

// RoundingStrategy converts the minutes remaining after the first period into
// a count of billable follow-up periods. The caller guarantees period > 0 and
// remaining >= 0; the rational remaining/period is passed as an exact integer
// pair so strategies never touch floating point.
type RoundingStrategy func(remaining, period int64) int64

// CeilingRounding bills every started period in full. It is the default when
// a calculation supplies no strategy.
func CeilingRounding(remaining, period int64) int64 {
	if remaining <= 0 {
		return 0
	}
	return (remaining + period - 1) / period
}

// FloorRounding bills only fully elapsed periods.
func FloorRounding(remaining, period int64) int64 {
	if remaining <= 0 {
		return 0
	}
	return remaining / period
}

// NearestRounding bills the closest period count, rounding halves up.
func NearestRounding(remaining, period int64) int64 {
	if remaining <= 0 {
		return 0
	}
	return (2*remaining + period) / (2 * period)
}
