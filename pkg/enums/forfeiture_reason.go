package enums

import "fmt"

// ForfeitureReason records why a seller's unpaid balance was written off.
type ForfeitureReason string

const (
	ForfeitureReasonAccountClosure  ForfeitureReason = "account_closure"
	ForfeitureReasonPolicyViolation ForfeitureReason = "policy_violation"
	ForfeitureReasonInactivity      ForfeitureReason = "inactivity"
)

var validForfeitureReasons = []ForfeitureReason{
	ForfeitureReasonAccountClosure,
	ForfeitureReasonPolicyViolation,
	ForfeitureReasonInactivity,
}

// String implements fmt.Stringer.
func (r ForfeitureReason) String() string {
	return string(r)
}

// IsValid reports whether the reason is recognized.
func (r ForfeitureReason) IsValid() bool {
	for _, candidate := range validForfeitureReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseForfeitureReason converts a raw string into a ForfeitureReason.
func ParseForfeitureReason(value string) (ForfeitureReason, error) {
	for _, candidate := range validForfeitureReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid forfeiture reason %q", value)
}
