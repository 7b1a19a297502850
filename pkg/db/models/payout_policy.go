package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// PayoutPolicy is the per-seller payout configuration set by seller settings.
// The scheduler treats it as read-only. LifetimeSalesCents and CachedTier are
// the only derived fields; they feed the tiered fee lookup.
type PayoutPolicy struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID            uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;uniqueIndex"`
	Frequency           enums.PayoutFrequency `gorm:"column:frequency;type:payout_frequency_enum;not null;default:'weekly'"`
	MinimumPayoutCents  int64                 `gorm:"column:minimum_payout_cents;not null;default:1000"`
	Currency            enums.Currency        `gorm:"column:currency;not null;default:'USD'"`
	UsesMerchantAccount bool                  `gorm:"column:uses_merchant_account;not null;default:false"`
	ForfeitOnClosure    bool                  `gorm:"column:forfeit_on_closure;not null;default:true"`
	LifetimeSalesCents  int64                 `gorm:"column:lifetime_sales_cents;not null;default:0"`
	CachedTier          int                   `gorm:"column:cached_tier;not null;default:1"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
