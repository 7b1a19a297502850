package enums

import "fmt"

// PayoutState maps to the payout_state_enum enum in Postgres.
type PayoutState string

const (
	PayoutStateProcessing PayoutState = "processing"
	PayoutStateUnclaimed  PayoutState = "unclaimed"
	PayoutStateCompleted  PayoutState = "completed"
	PayoutStateFailed     PayoutState = "failed"
)

var validPayoutStates = []PayoutState{
	PayoutStateProcessing,
	PayoutStateUnclaimed,
	PayoutStateCompleted,
	PayoutStateFailed,
}

// String implements fmt.Stringer.
func (s PayoutState) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical payout state enum.
func (s PayoutState) IsValid() bool {
	for _, candidate := range validPayoutStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// Blocks reports whether a record in this state counts against the
// one-payout-per-day guard. Failed payouts do not.
func (s PayoutState) Blocks() bool {
	return s != PayoutStateFailed
}

// ParsePayoutState converts raw input into PayoutState.
func ParsePayoutState(value string) (PayoutState, error) {
	for _, candidate := range validPayoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout state %q", value)
}
