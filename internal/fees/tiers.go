package fees

import (
	"github.com/shopspring/decimal"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
	"github.com/harlowmarket/payouts-backend/pkg/money"
)

// Tier is a band of cumulative lifetime sales volume. Higher tiers pay lower
// platform fees.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
	Tier4
	Tier5
)

// tierFloorsCents are the half-open lower bounds of each tier: a seller sits
// in the highest tier whose floor is <= cumulative lifetime sales. The top
// tier is unbounded.
var tierFloorsCents = [5]int64{
	0,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
}

// Fee percentage tables, indexed by tier-1. Rates are static platform
// configuration; the merchant-account track is cheaper because the seller
// carries their own processing relationship.
var (
	platformAccountFeePct = [5]decimal.Decimal{
		decimal.NewFromFloat(9.0),
		decimal.NewFromFloat(7.0),
		decimal.NewFromFloat(5.0),
		decimal.NewFromFloat(4.0),
		decimal.NewFromFloat(3.0),
	}
	merchantAccountFeePct = [5]decimal.Decimal{
		decimal.NewFromFloat(5.0),
		decimal.NewFromFloat(4.0),
		decimal.NewFromFloat(3.0),
		decimal.NewFromFloat(2.5),
		decimal.NewFromFloat(2.0),
	}
)

// discoverSurchargePct is added on top of the tier rate for sales that came
// through the platform's discovery surface.
var discoverSurchargePct = decimal.NewFromFloat(5.0)

// TierFor maps cumulative lifetime sales to a fee tier. Inputs at or below
// zero clamp to the lowest tier; there is no error path.
func TierFor(cumulativeSalesCents int64) Tier {
	tier := Tier1
	for i, floor := range tierFloorsCents {
		if cumulativeSalesCents >= floor {
			tier = Tier(i + 1)
		}
	}
	return tier
}

// IsValid reports whether the tier is one of the five configured bands.
func (t Tier) IsValid() bool {
	return t >= Tier1 && t <= Tier5
}

// FeePercentage returns the platform fee rate for a tier. Unknown tiers clamp
// to the lowest band, mirroring TierFor's treatment of out-of-range volume.
func FeePercentage(tier Tier, usingMerchantAccount bool) decimal.Decimal {
	if !tier.IsValid() {
		tier = Tier1
	}
	if usingMerchantAccount {
		return merchantAccountFeePct[tier-1]
	}
	return platformAccountFeePct[tier-1]
}

// SaleFeePercentage returns the effective rate for a sale, including the
// discover-channel surcharge when applicable.
func SaleFeePercentage(tier Tier, usingMerchantAccount bool, channel enums.SaleChannel) decimal.Decimal {
	pct := FeePercentage(tier, usingMerchantAccount)
	if channel == enums.SaleChannelDiscover {
		pct = pct.Add(discoverSurchargePct)
	}
	return pct
}

// FeeFor computes the platform fee owed on a gross sale amount.
func FeeFor(gross money.Money, tier Tier, usingMerchantAccount bool, channel enums.SaleChannel) money.Money {
	return gross.PercentOf(SaleFeePercentage(tier, usingMerchantAccount, channel))
}
