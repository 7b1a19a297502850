package enums

import "fmt"

// Holder identifies which party holds settled funds before payout.
type Holder string

const (
	HolderPlatform  Holder = "platform"
	HolderProcessor Holder = "processor"
)

var validHolders = []Holder{
	HolderPlatform,
	HolderProcessor,
}

// String implements fmt.Stringer.
func (h Holder) String() string {
	return string(h)
}

// IsValid reports whether the holder is recognized.
func (h Holder) IsValid() bool {
	for _, candidate := range validHolders {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHolder converts a raw string into a Holder.
func ParseHolder(value string) (Holder, error) {
	for _, candidate := range validHolders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid holder %q", value)
}
