package forfeiture

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowmarket/payouts-backend/pkg/db/models"
)

// Repository manages persistence for forfeiture audit records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.ForfeitureRecord) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.ForfeitureRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a forfeiture repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.ForfeitureRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.ForfeitureRecord, error) {
	var records []models.ForfeitureRecord
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("occurred_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
