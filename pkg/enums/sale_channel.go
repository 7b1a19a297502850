package enums

import "fmt"

// SaleChannel distinguishes sales originating from the platform's discovery
// surface (discover) from seller-direct links (direct). The platform fee rate
// differs between the two.
type SaleChannel string

const (
	SaleChannelDiscover SaleChannel = "discover"
	SaleChannelDirect   SaleChannel = "direct"
)

var validSaleChannels = []SaleChannel{
	SaleChannelDiscover,
	SaleChannelDirect,
}

// String implements fmt.Stringer.
func (c SaleChannel) String() string {
	return string(c)
}

// IsValid reports whether the channel is recognized.
func (c SaleChannel) IsValid() bool {
	for _, candidate := range validSaleChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseSaleChannel converts a raw string into a SaleChannel.
func ParseSaleChannel(value string) (SaleChannel, error) {
	for _, candidate := range validSaleChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale channel %q", value)
}
