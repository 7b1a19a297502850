package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/harlowmarket/payouts-backend/pkg/db/types"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// ForfeitureRecord is the audit row written when a seller's unpaid balance is
// written off. One record per forfeiture execution; a no-op forfeiture writes
// nothing.
type ForfeitureRecord struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index"`
	Reason      enums.ForfeitureReason `gorm:"column:reason;type:forfeiture_reason_enum;not null"`
	AmountCents int64                  `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency         `gorm:"column:currency;not null;default:'USD'"`
	PeriodIDs   dbtypes.UUIDArray      `gorm:"column:period_ids;type:uuid[]"`
	OccurredAt  time.Time              `gorm:"column:occurred_at;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
