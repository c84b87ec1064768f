package domain

import "fmt"

// ErrorCode identifies a calculation failure with a stable numeric value.
// The values are part of the public contract and must never be renumbered;
// callers branch on codes, not on message text.
type ErrorCode int

const (
	// ErrorCodeEmptyRules reports a calculation request without pricing rules.
	ErrorCodeEmptyRules ErrorCode = 1
	// ErrorCodeInvalidDuration reports an end time that is not after the start time.
	ErrorCodeInvalidDuration ErrorCode = 2
	// ErrorCodeDurationTooLong reports a session longer than MaxParkingMinutes.
	ErrorCodeDurationTooLong ErrorCode = 3
	// ErrorCodeInvalidRule reports a rule with missing or out-of-range fields.
	ErrorCodeInvalidRule ErrorCode = 4
)

// DomainError is a calculation failure that carries its stable code across
// layer boundaries.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code so enriched instances
// still satisfy errors.Is against their sentinel.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// Calculation failure sentinels. Branch with errors.Is; instances built by
// NewInvalidRuleError match ErrInvalidRule by code.
var (
	ErrEmptyRules      = &DomainError{Code: ErrorCodeEmptyRules, Message: "parking pricing: no pricing rules provided"}
	ErrInvalidDuration = &DomainError{Code: ErrorCodeInvalidDuration, Message: "parking pricing: end time must be after start time"}
	ErrDurationTooLong = &DomainError{Code: ErrorCodeDurationTooLong, Message: "parking pricing: session exceeds the maximum supported duration"}
	ErrInvalidRule     = &DomainError{Code: ErrorCodeInvalidRule, Message: "parking pricing: invalid pricing rule"}
)

// NewInvalidRuleError reports a structurally invalid rule by its position in
// the submitted rule set.
func NewInvalidRuleError(index int, reason string) *DomainError {
	return &DomainError{
		Code:    ErrorCodeInvalidRule,
		Message: fmt.Sprintf("parking pricing: rule %d: %s", index, reason),
	}
}
