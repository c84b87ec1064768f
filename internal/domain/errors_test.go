package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  *DomainError
		code ErrorCode
	}{
		{"empty rules", ErrEmptyRules, 1},
		{"invalid duration", ErrInvalidDuration, 2},
		{"duration too long", ErrDurationTooLong, 3},
		{"invalid rule", ErrInvalidRule, 4},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("%s: code = %d, want %d", tc.name, tc.err.Code, tc.code)
		}
	}
}

func TestInvalidRuleErrorMatchesSentinel(t *testing.T) {
	err := NewInvalidRuleError(2, "period must be positive")
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected %v to match ErrInvalidRule", err)
	}
	if errors.Is(err, ErrEmptyRules) {
		t.Fatal("invalid rule error must not match ErrEmptyRules")
	}
	if got := err.Error(); got != "parking pricing: rule 2: period must be positive" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestWrappedDomainErrorStillMatches(t *testing.T) {
	wrapped := fmt.Errorf("calculate: %w", ErrDurationTooLong)
	if !errors.Is(wrapped, ErrDurationTooLong) {
		t.Fatal("wrapping must preserve code matching")
	}
}
