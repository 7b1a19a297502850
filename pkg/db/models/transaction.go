package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
)

// Transaction is an immutable ledger fact produced by the event classifier.
// Corrections are new transactions referencing the original, never edits.
type Transaction struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID        uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	OccurredAt      time.Time             `gorm:"column:occurred_at;not null"`
	Kind            enums.TransactionKind `gorm:"column:kind;type:transaction_kind_enum;not null"`
	GrossCents      int64                 `gorm:"column:gross_cents;not null"`
	FeeCents        int64                 `gorm:"column:fee_cents;not null"`
	TaxCents        int64                 `gorm:"column:tax_cents;not null"`
	AffiliateCents  int64                 `gorm:"column:affiliate_cents;not null"`
	Currency        enums.Currency        `gorm:"column:currency;not null;default:'USD'"`
	Processor       string                `gorm:"column:processor"`
	Holder          enums.Holder          `gorm:"column:holder;type:holder_enum;not null;default:'platform'"`
	Channel         enums.SaleChannel     `gorm:"column:channel;type:sale_channel_enum;not null;default:'direct'"`
	FeeWaived       bool                  `gorm:"column:fee_waived;not null;default:false"`
	OriginalID      *uuid.UUID            `gorm:"column:original_id;type:uuid;index"`
	BalancePeriodID *uuid.UUID            `gorm:"column:balance_period_id;type:uuid;index"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// NetCents is the signed effect this transaction has on the seller's payable
// balance: gross minus platform fee minus affiliate share. Tax is collected
// and remitted separately so it never enters the payable amount.
func (t Transaction) NetCents() int64 {
	return t.GrossCents - t.FeeCents - t.AffiliateCents
}
