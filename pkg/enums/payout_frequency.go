package enums

import "fmt"

// PayoutFrequency maps to the payout_frequency_enum enum in Postgres.
type PayoutFrequency string

const (
	PayoutFrequencyDaily     PayoutFrequency = "daily"
	PayoutFrequencyWeekly    PayoutFrequency = "weekly"
	PayoutFrequencyMonthly   PayoutFrequency = "monthly"
	PayoutFrequencyQuarterly PayoutFrequency = "quarterly"
)

var validPayoutFrequencies = []PayoutFrequency{
	PayoutFrequencyDaily,
	PayoutFrequencyWeekly,
	PayoutFrequencyMonthly,
	PayoutFrequencyQuarterly,
}

// String implements fmt.Stringer.
func (f PayoutFrequency) String() string {
	return string(f)
}

// IsValid reports whether the frequency is recognized.
func (f PayoutFrequency) IsValid() bool {
	for _, candidate := range validPayoutFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParsePayoutFrequency converts a raw string into a PayoutFrequency.
func ParsePayoutFrequency(value string) (PayoutFrequency, error) {
	for _, candidate := range validPayoutFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout frequency %q", value)
}
