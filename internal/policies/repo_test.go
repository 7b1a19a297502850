package policies

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

func setupPoliciesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	payoutPolicies := `
CREATE TABLE IF NOT EXISTS payout_policies (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL UNIQUE,
  frequency TEXT NOT NULL DEFAULT 'weekly',
  minimum_payout_cents INTEGER NOT NULL DEFAULT 1000,
  currency TEXT NOT NULL DEFAULT 'USD',
  uses_merchant_account INTEGER NOT NULL DEFAULT 0,
  forfeit_on_closure INTEGER NOT NULL DEFAULT 1,
  lifetime_sales_cents INTEGER NOT NULL DEFAULT 0,
  cached_tier INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(payoutPolicies).Error)
	return db
}

func TestRepository_FindBySeller(t *testing.T) {
	db := setupPoliciesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	policy := &models.PayoutPolicy{
		ID:                 uuid.New(),
		SellerID:           sellerID,
		Frequency:          enums.PayoutFrequencyMonthly,
		MinimumPayoutCents: 2500,
		Currency:           enums.CurrencyUSD,
	}
	require.NoError(t, repo.Create(ctx, policy))

	found, err := repo.FindBySeller(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutFrequencyMonthly, found.Frequency)
	assert.Equal(t, int64(2500), found.MinimumPayoutCents)
}

func TestRepository_FindBySeller_MissingIsInvariantViolation(t *testing.T) {
	db := setupPoliciesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindBySeller(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation))
}

func TestRepository_AddLifetimeSales(t *testing.T) {
	db := setupPoliciesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	require.NoError(t, repo.Create(ctx, &models.PayoutPolicy{
		ID:                 uuid.New(),
		SellerID:           sellerID,
		Frequency:          enums.PayoutFrequencyWeekly,
		LifetimeSalesCents: 95_000,
		CachedTier:         1,
		Currency:           enums.CurrencyUSD,
	}))

	require.NoError(t, repo.AddLifetimeSales(ctx, sellerID, 10_000, 2))

	found, err := repo.FindBySeller(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(105_000), found.LifetimeSalesCents)
	assert.Equal(t, 2, found.CachedTier)
}
