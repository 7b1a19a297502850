package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// BalanceIndexEntry mirrors the unpaid amount of one balance period into a
// narrow search table so unpaid-balance reads stay cheap. The entry is
// maintained in the same transaction as the period mutation, but reads treat
// it as eventually consistent: direct summation over periods remains the
// source of truth and any disagreement is reported as an integrity event.
type BalanceIndexEntry struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:idx_balance_index_bucket"`
	PeriodDate  time.Time      `gorm:"column:period_date;type:date;not null;uniqueIndex:idx_balance_index_bucket"`
	Holder      enums.Holder   `gorm:"column:holder;type:holder_enum;not null;uniqueIndex:idx_balance_index_bucket"`
	AmountCents int64          `gorm:"column:amount_cents;not null;default:0"`
	Currency    enums.Currency `gorm:"column:currency;not null;default:'USD'"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
