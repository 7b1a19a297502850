package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// BalancePeriod is one payable bucket for a seller, keyed by period date and
// money holder. Created lazily as transactions are attributed; never deleted.
// Forfeited periods remain for audit with their written-off amount preserved
// in ForfeitedCents.
type BalancePeriod struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID       uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:idx_balance_periods_bucket"`
	PeriodDate     time.Time         `gorm:"column:period_date;type:date;not null;uniqueIndex:idx_balance_periods_bucket"`
	Holder         enums.Holder      `gorm:"column:holder;type:holder_enum;not null;uniqueIndex:idx_balance_periods_bucket"`
	State          enums.PeriodState `gorm:"column:state;type:period_state_enum;not null;default:'unpaid'"`
	AmountCents    int64             `gorm:"column:amount_cents;not null;default:0"`
	HoldingCents   int64             `gorm:"column:holding_cents;not null;default:0"`
	ForfeitedCents int64             `gorm:"column:forfeited_cents;not null;default:0"`
	Currency       enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
