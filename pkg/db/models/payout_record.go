package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/harlowmarket/payouts-backend/pkg/db/types"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// PayoutRecord represents money that left the ledger. Non-failed records for
// a given (seller, paid_on) pair block a second disbursement on that day.
// PeriodIDs pins the exact periods this payout covered so a failure can
// revert them without re-deriving the coverage window.
type PayoutRecord struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	PeriodStart time.Time         `gorm:"column:period_start;type:date;not null"`
	PeriodEnd   time.Time         `gorm:"column:period_end;type:date;not null"`
	PaidOn      time.Time         `gorm:"column:paid_on;type:date;not null"`
	AmountCents int64             `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	State       enums.PayoutState `gorm:"column:state;type:payout_state_enum;not null;default:'processing'"`
	Instant     bool              `gorm:"column:instant;not null;default:false"`
	PeriodIDs   dbtypes.UUIDArray `gorm:"column:period_ids;type:uuid[]"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
