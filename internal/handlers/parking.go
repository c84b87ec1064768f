package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/currency"

	domain "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/domain"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/platform/httpx"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/services"
)

const (
	maxCalculationBodySize = 64 * 1024
	parkingMetricNamespace = "github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/handlers"
	rateLimitWindow        = time.Minute
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

type parkingWindowPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Required rule fields are pointers so an absent field is distinguishable from
// an explicit zero; absence is an input error, not a default.
type parkingRulePayload struct {
	Period           *int64                `json:"period"`
	PriceFirstPeriod *int64                `json:"price_first_period"`
	PriceNextPeriods *int64                `json:"price_next_periods"`
	Days             []string              `json:"days,omitempty"`
	Window           *parkingWindowPayload `json:"window,omitempty"`
	BlackoutDates    []string              `json:"blackout_dates,omitempty"`
}

type calculateParkingFeeRequest struct {
	Rules    []parkingRulePayload `json:"rules"`
	StartAt  string               `json:"start_at"`
	EndAt    string               `json:"end_at"`
	Currency string               `json:"currency"`
	Rounding string               `json:"rounding"`
}

type periodsBreakdownPayload struct {
	Period              int64 `json:"period"`
	PriceFirstPeriod    int64 `json:"price_first_period"`
	PriceNextPeriods    int64 `json:"price_next_periods"`
	ConsumedFirstPeriod int64 `json:"consumed_first_period"`
	ConsumedNextPeriods int64 `json:"consumed_next_periods"`
}

type calculateParkingFeeResponse struct {
	Total     int64                   `json:"total"`
	Currency  string                  `json:"currency"`
	RuleIndex int                     `json:"rule_index"`
	Periods   periodsBreakdownPayload `json:"periods"`
}

// ParkingHandlers exposes the parking fee calculation endpoints.
type ParkingHandlers struct {
	engine  services.ParkingFeeService
	limiter rateLimiter

	calculations        metric.Int64Counter
	calculationsEnabled bool
	latency             metric.Float64Histogram
	latencyEnabled      bool
}

type parkingConfig struct {
	limiter rateLimiter
	meter   metric.Meter
}

// ParkingOption customises ParkingHandlers construction.
type ParkingOption func(*parkingConfig)

// WithParkingRateLimit throttles calculations per client IP within a one
// minute window. Zero or negative disables throttling.
func WithParkingRateLimit(perMinute int) ParkingOption {
	return func(cfg *parkingConfig) {
		cfg.limiter = newFixedWindowLimiter(perMinute, rateLimitWindow, nil)
	}
}

// WithParkingMeter injects a custom OpenTelemetry meter.
func WithParkingMeter(m metric.Meter) ParkingOption {
	return func(cfg *parkingConfig) {
		cfg.meter = m
	}
}

// NewParkingHandlers constructs the parking endpoints around the fee engine.
func NewParkingHandlers(engine services.ParkingFeeService, opts ...ParkingOption) *ParkingHandlers {
	cfg := parkingConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(parkingMetricNamespace)
	}

	calculations, calcErr := meter.Int64Counter(
		"parking.fee_calculations",
		metric.WithDescription("Count of parking fee calculations grouped by outcome"),
	)
	latency, latencyErr := meter.Float64Histogram(
		"parking.fee_calculation.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of parking fee calculations"),
	)

	return &ParkingHandlers{
		engine:              engine,
		limiter:             cfg.limiter,
		calculations:        calculations,
		calculationsEnabled: calcErr == nil,
		latency:             latency,
		latencyEnabled:      latencyErr == nil,
	}
}

// Routes registers the /parking endpoints.
func (h *ParkingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/fee-calculations", h.calculateFee)
}

func (h *ParkingHandlers) calculateFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("pricing_service_unavailable", "pricing service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many calculation requests", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxCalculationBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req calculateParkingFeeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	rounding, ok := roundingStrategyFromName(req.Rounding)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_rounding", fmt.Sprintf("rounding %q is not one of ceiling, floor, nearest", req.Rounding), http.StatusBadRequest))
		return
	}

	requestedCurrency := strings.TrimSpace(req.Currency)
	if requestedCurrency != "" {
		if _, err := currency.ParseISO(requestedCurrency); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_currency", fmt.Sprintf("currency %q is not a valid ISO 4217 unit", req.Currency), http.StatusBadRequest))
			return
		}
	}

	rules, err := buildPricingRules(req.Rules)
	if err != nil {
		writeParkingError(ctx, w, err)
		return
	}

	started := time.Now()
	result, err := h.engine.Calculate(ctx, services.CalculateParkingFeeCommand{
		Rules:    rules,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
		Currency: requestedCurrency,
		Rounding: rounding,
	})
	elapsed := time.Since(started)
	if err != nil {
		h.recordCalculation(ctx, parkingErrorResponse(err).Code, elapsed)
		writeParkingError(ctx, w, err)
		return
	}
	h.recordCalculation(ctx, "ok", elapsed)

	writeJSONResponse(w, http.StatusOK, buildCalculationResponse(result))
}

func (h *ParkingHandlers) recordCalculation(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if h.calculationsEnabled {
		h.calculations.Add(ctx, 1, attrs)
	}
	if h.latencyEnabled {
		h.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
}

func buildPricingRules(payloads []parkingRulePayload) ([]services.PricingRule, error) {
	rules := make([]services.PricingRule, 0, len(payloads))
	for i, payload := range payloads {
		rule, err := buildPricingRule(i, payload)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func buildPricingRule(index int, payload parkingRulePayload) (services.PricingRule, error) {
	var rule services.PricingRule
	if payload.Period == nil {
		return rule, domain.NewInvalidRuleError(index, "period is required")
	}
	if payload.PriceFirstPeriod == nil {
		return rule, domain.NewInvalidRuleError(index, "price_first_period is required")
	}
	if payload.PriceNextPeriods == nil {
		return rule, domain.NewInvalidRuleError(index, "price_next_periods is required")
	}
	rule.Period = *payload.Period
	rule.PriceFirstPeriod = *payload.PriceFirstPeriod
	rule.PriceNextPeriods = *payload.PriceNextPeriods

	for _, name := range payload.Days {
		day, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return rule, domain.NewInvalidRuleError(index, fmt.Sprintf("unknown day name %q", name))
		}
		rule.Days = append(rule.Days, day)
	}
	if payload.Window != nil {
		if _, err := time.Parse("15:04", strings.TrimSpace(payload.Window.Start)); err != nil {
			return rule, domain.NewInvalidRuleError(index, fmt.Sprintf("window start %q must be HH:MM", payload.Window.Start))
		}
		if _, err := time.Parse("15:04", strings.TrimSpace(payload.Window.End)); err != nil {
			return rule, domain.NewInvalidRuleError(index, fmt.Sprintf("window end %q must be HH:MM", payload.Window.End))
		}
		rule.Window = &services.TimeWindow{Start: payload.Window.Start, End: payload.Window.End}
	}
	for _, raw := range payload.BlackoutDates {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
		if err != nil {
			return rule, domain.NewInvalidRuleError(index, fmt.Sprintf("blackout date %q must be YYYY-MM-DD", raw))
		}
		rule.BlackoutDates = append(rule.BlackoutDates, date)
	}
	return rule, nil
}

func roundingStrategyFromName(name string) (services.RoundingStrategy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ceiling":
		return services.CeilingRounding, true
	case "floor":
		return services.FloorRounding, true
	case "nearest":
		return services.NearestRounding, true
	default:
		return nil, false
	}
}

func buildCalculationResponse(result services.ParkingCalculationResult) calculateParkingFeeResponse {
	return calculateParkingFeeResponse{
		Total:     result.Total,
		Currency:  result.Currency,
		RuleIndex: result.RuleIndex,
		Periods: periodsBreakdownPayload{
			Period:              result.Periods.Period,
			PriceFirstPeriod:    result.Periods.PriceFirstPeriod,
			PriceNextPeriods:    result.Periods.PriceNextPeriods,
			ConsumedFirstPeriod: result.Periods.ConsumedFirstPeriod,
			ConsumedNextPeriods: result.Periods.ConsumedNextPeriods,
		},
	}
}

func writeParkingError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	httpx.WriteError(ctx, w, parkingErrorResponse(err))
}

// parkingErrorResponse translates engine failures into the canonical envelope.
// Domain errors carry their numeric code as a top-level detail so HTTP callers
// can branch without parsing messages.
func parkingErrorResponse(err error) httpx.Error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		envelope := httpx.NewError(parkingErrorSlug(domainErr.Code), err.Error(), http.StatusBadRequest)
		return envelope.WithDetails(map[string]any{"code": int(domainErr.Code)})
	}
	if errors.Is(err, services.ErrParkingFeeInvalidTimestamp) {
		return httpx.NewError("invalid_timestamp", err.Error(), http.StatusBadRequest)
	}
	return httpx.NewError("calculation_error", "failed to calculate parking fee", http.StatusInternalServerError)
}

func parkingErrorSlug(code domain.ErrorCode) string {
	switch code {
	case domain.ErrorCodeEmptyRules:
		return "empty_rules"
	case domain.ErrorCodeInvalidDuration:
		return "invalid_duration"
	case domain.ErrorCodeDurationTooLong:
		return "duration_too_long"
	case domain.ErrorCodeInvalidRule:
		return "invalid_rule"
	default:
		return "invalid_request"
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxCalculationBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
