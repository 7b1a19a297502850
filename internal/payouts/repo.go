package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/harlowmarket/payouts-backend/pkg/db"
	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

// Repository manages persistence for payout records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PayoutRecord) error
	Find(ctx context.Context, id uuid.UUID) (*models.PayoutRecord, error)
	ExistsBlocking(ctx context.Context, sellerID uuid.UUID, paidOn time.Time) (bool, error)
	UpdateState(ctx context.Context, id uuid.UUID, from, to enums.PayoutState) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.PayoutRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if pkgdb.IsUniqueViolation(err, "idx_payout_records_seller_day") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a payout already exists for this seller and day").
			WithDetails(map[string]any{
				"seller_id": record.SellerID,
				"paid_on":   record.PaidOn.Format("2006-01-02"),
			})
	}
	return err
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.PayoutRecord, error) {
	var record models.PayoutRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout record not found").
				WithDetails(map[string]any{"payout_id": id})
		}
		return nil, err
	}
	return &record, nil
}

// ExistsBlocking reports whether a non-failed payout already exists for the
// seller on the given day. Failed payouts do not block a retry.
func (r *repository) ExistsBlocking(ctx context.Context, sellerID uuid.UUID, paidOn time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayoutRecord{}).
		Where("seller_id = ? AND paid_on = ? AND state <> ?", sellerID, paidOn, enums.PayoutStateFailed).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateState transitions a payout record, guarded by the expected current
// state so concurrent updates surface as conflicts instead of lost writes.
func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, from, to enums.PayoutState) error {
	result := r.db.WithContext(ctx).
		Model(&models.PayoutRecord{}).
		Where("id = ? AND state = ?", id, from).
		Update("state", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "payout record is not in the expected state").
			WithDetails(map[string]any{"payout_id": id, "expected": from, "next": to})
	}
	return nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var records []models.PayoutRecord
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("paid_on DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
