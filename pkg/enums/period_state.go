package enums

import "fmt"

// PeriodState maps to the period_state_enum enum in Postgres.
type PeriodState string

const (
	PeriodStateUnpaid     PeriodState = "unpaid"
	PeriodStateProcessing PeriodState = "processing"
	PeriodStatePaid       PeriodState = "paid"
	PeriodStateForfeited  PeriodState = "forfeited"
)

var validPeriodStates = []PeriodState{
	PeriodStateUnpaid,
	PeriodStateProcessing,
	PeriodStatePaid,
	PeriodStateForfeited,
}

// String implements fmt.Stringer.
func (s PeriodState) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical period state enum.
func (s PeriodState) IsValid() bool {
	for _, candidate := range validPeriodStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo enforces the forward-only period lifecycle. A failed payout
// moves a processing period back to unpaid; forfeiture is terminal and only
// reachable from unpaid.
func (s PeriodState) CanTransitionTo(next PeriodState) bool {
	switch s {
	case PeriodStateUnpaid:
		return next == PeriodStateProcessing || next == PeriodStateForfeited
	case PeriodStateProcessing:
		return next == PeriodStatePaid || next == PeriodStateUnpaid
	}
	return false
}

// ParsePeriodState converts raw input into PeriodState.
func ParsePeriodState(value string) (PeriodState, error) {
	for _, candidate := range validPeriodStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid period state %q", value)
}
