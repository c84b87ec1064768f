package domain

import "time"

// DefaultCurrency labels every calculation result. Tariffs are priced in
// Polish grosz; the calculator reports the matching ISO 4217 code regardless
// of the currency requested by the caller.
const DefaultCurrency = "PLN"

// MaxParkingMinutes is the longest session the calculator accepts, 72 hours
// expressed in minutes.
const MaxParkingMinutes int64 = 4320

// TimeWindow is a daily wall-clock interval in HH:MM notation.
type TimeWindow struct {
	Start string
	End   string
}

// PricingRule describes one tariff under the two-tier flat model: the first
// started period costs PriceFirstPeriod and every further started period
// costs PriceNextPeriods. Period is both the length of the first period and
// the recurring denominator, in minutes. Prices are integer minor units.
//
// Days, Window and BlackoutDates are carried so rule sets exported from
// scheduling systems round-trip unchanged; pricing never consults them.
type PricingRule struct {
	Period           int64
	PriceFirstPeriod int64
	PriceNextPeriods int64
	Days             []time.Weekday
	Window           *TimeWindow
	BlackoutDates    []time.Time
}

// PeriodsBreakdown reports how the winning rule consumed the parking duration.
type PeriodsBreakdown struct {
	Period              int64
	PriceFirstPeriod    int64
	PriceNextPeriods    int64
	ConsumedFirstPeriod int64
	ConsumedNextPeriods int64
}

// ParkingCalculationResult is the outcome of pricing one parking session.
type ParkingCalculationResult struct {
	Total     int64
	Currency  string
	RuleIndex int
	Periods   PeriodsBreakdown
}
