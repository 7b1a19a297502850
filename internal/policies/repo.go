package policies

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

// Repository manages persistence for per-seller payout policies. Policies are
// written by seller settings; this core reads them and maintains only the
// lifetime-sales counters used for the tiered fee lookup.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutPolicy, error)
	Create(ctx context.Context, policy *models.PayoutPolicy) error
	ListSellerIDs(ctx context.Context) ([]uuid.UUID, error)
	AddLifetimeSales(ctx context.Context, sellerID uuid.UUID, deltaCents int64, cachedTier int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a policy repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutPolicy, error) {
	var policy models.PayoutPolicy
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "seller has no payout policy configured").
				WithDetails(map[string]any{"seller_id": sellerID})
		}
		return nil, err
	}
	return &policy, nil
}

func (r *repository) Create(ctx context.Context, policy *models.PayoutPolicy) error {
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(policy).Error
}

func (r *repository) ListSellerIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PayoutPolicy{}).
		Order("created_at ASC").
		Pluck("seller_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) AddLifetimeSales(ctx context.Context, sellerID uuid.UUID, deltaCents int64, cachedTier int) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutPolicy{}).
		Where("seller_id = ?", sellerID).
		Updates(map[string]any{
			"lifetime_sales_cents": gorm.Expr("lifetime_sales_cents + ?", deltaCents),
			"cached_tier":          cachedTier,
		}).Error
}
