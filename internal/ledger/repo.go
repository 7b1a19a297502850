package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

// Repository manages persistence for transactions, balance periods and the
// unpaid-balance index. Mutations are expected to run inside a transaction
// obtained via WithTx and under the caller's seller lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	AssignTransactionPeriod(ctx context.Context, transactionID, periodID uuid.UUID) error
	ListTransactionsByPeriods(ctx context.Context, periodIDs []uuid.UUID) ([]models.Transaction, error)
	ListRefundsAgainstPeriods(ctx context.Context, periodIDs []uuid.UUID) ([]models.Transaction, error)
	SumRefundedAgainstOriginal(ctx context.Context, originalID uuid.UUID) (int64, error)

	FindOrCreatePeriod(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder, currency enums.Currency) (*models.BalancePeriod, error)
	FindPeriods(ctx context.Context, ids []uuid.UUID) ([]models.BalancePeriod, error)
	ListUnpaidPeriods(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) ([]models.BalancePeriod, error)
	AddToPeriod(ctx context.Context, periodID uuid.UUID, amountDelta, holdingDelta int64) error
	SetPeriodState(ctx context.Context, periodID uuid.UUID, next enums.PeriodState) error
	ZeroPeriodForForfeit(ctx context.Context, periodID uuid.UUID) error

	SumUnpaidPeriods(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error)
	SumIndex(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error)
	AddToIndex(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder, currency enums.Currency, delta int64) error
	SetIndexAmount(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder, currency enums.Currency, amount int64) error
	RemoveIndexEntry(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder) error
	RebuildIndex(ctx context.Context, sellerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found").
				WithDetails(map[string]any{"transaction_id": id})
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) AssignTransactionPeriod(ctx context.Context, transactionID, periodID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Update("balance_period_id", periodID).Error
}

func (r *repository) ListTransactionsByPeriods(ctx context.Context, periodIDs []uuid.UUID) ([]models.Transaction, error) {
	if len(periodIDs) == 0 {
		return nil, nil
	}
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("balance_period_id IN ?", periodIDs).
		Order("occurred_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// ListRefundsAgainstPeriods returns refund-like transactions whose original
// sale sits in one of the given periods, regardless of which period the
// refund itself landed in. Used for the cross-period fee clawback.
func (r *repository) ListRefundsAgainstPeriods(ctx context.Context, periodIDs []uuid.UUID) ([]models.Transaction, error) {
	if len(periodIDs) == 0 {
		return nil, nil
	}
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("kind IN ?", []enums.TransactionKind{enums.TransactionKindRefund, enums.TransactionKindPartialRefund}).
		Where("original_id IN (?)", r.db.WithContext(ctx).
			Model(&models.Transaction{}).
			Select("id").
			Where("balance_period_id IN ?", periodIDs)).
		Order("occurred_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// SumRefundedAgainstOriginal returns the magnitude already refunded or
// charged back against a sale. Refund-like grosses are negative, so the sum
// is negated into a positive refunded portion.
func (r *repository) SumRefundedAgainstOriginal(ctx context.Context, originalID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("original_id = ? AND kind IN ?", originalID, []enums.TransactionKind{
			enums.TransactionKindRefund,
			enums.TransactionKindPartialRefund,
			enums.TransactionKindChargeback,
		}).
		Select("COALESCE(SUM(gross_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return -total, nil
}

func (r *repository) FindOrCreatePeriod(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder, currency enums.Currency) (*models.BalancePeriod, error) {
	var period models.BalancePeriod
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND period_date = ? AND holder = ?", sellerID, periodDate, holder).
		First(&period).Error
	if err == nil {
		return &period, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	period = models.BalancePeriod{
		ID:         uuid.New(),
		SellerID:   sellerID,
		PeriodDate: periodDate,
		Holder:     holder,
		State:      enums.PeriodStateUnpaid,
		Currency:   currency,
	}
	if err := r.db.WithContext(ctx).Create(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *repository) FindPeriods(ctx context.Context, ids []uuid.UUID) ([]models.BalancePeriod, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var periods []models.BalancePeriod
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("period_date ASC").
		Find(&periods).Error
	if err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *repository) ListUnpaidPeriods(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) ([]models.BalancePeriod, error) {
	var periods []models.BalancePeriod
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND state = ? AND period_date <= ?", sellerID, enums.PeriodStateUnpaid, throughDate).
		Order("period_date ASC").
		Find(&periods).Error
	if err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *repository) AddToPeriod(ctx context.Context, periodID uuid.UUID, amountDelta, holdingDelta int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.BalancePeriod{}).
		Where("id = ?", periodID).
		Updates(map[string]any{
			"amount_cents":  gorm.Expr("amount_cents + ?", amountDelta),
			"holding_cents": gorm.Expr("holding_cents + ?", holdingDelta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "balance period not found").
			WithDetails(map[string]any{"period_id": periodID})
	}
	return nil
}

// SetPeriodState moves a period through its lifecycle, enforcing the allowed
// transitions. The state predicate in the WHERE clause makes the call safe to
// retry: a repeat sees zero rows affected and reports a conflict.
func (r *repository) SetPeriodState(ctx context.Context, periodID uuid.UUID, next enums.PeriodState) error {
	var period models.BalancePeriod
	if err := r.db.WithContext(ctx).Where("id = ?", periodID).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "balance period not found").
				WithDetails(map[string]any{"period_id": periodID})
		}
		return err
	}
	if !period.State.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeConflict, "invalid balance period transition").
			WithDetails(map[string]any{
				"period_id": periodID,
				"from":      period.State,
				"to":        next,
			})
	}

	result := r.db.WithContext(ctx).
		Model(&models.BalancePeriod{}).
		Where("id = ? AND state = ?", periodID, period.State).
		Update("state", next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "balance period changed concurrently").
			WithDetails(map[string]any{"period_id": periodID})
	}

	// Keep the fast index scoped to unpaid periods.
	switch {
	case period.State == enums.PeriodStateUnpaid && next != enums.PeriodStateUnpaid:
		return r.RemoveIndexEntry(ctx, period.SellerID, period.PeriodDate, period.Holder)
	case next == enums.PeriodStateUnpaid:
		return r.SetIndexAmount(ctx, period.SellerID, period.PeriodDate, period.Holder, period.Currency, period.AmountCents)
	}
	return nil
}

// ZeroPeriodForForfeit moves the period's remaining amount into
// forfeited_cents. The period row survives for audit.
func (r *repository) ZeroPeriodForForfeit(ctx context.Context, periodID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.BalancePeriod{}).
		Where("id = ?", periodID).
		Updates(map[string]any{
			"forfeited_cents": gorm.Expr("forfeited_cents + amount_cents"),
			"amount_cents":    0,
			"holding_cents":   0,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "balance period not found").
			WithDetails(map[string]any{"period_id": periodID})
	}
	return nil
}

func (r *repository) SumUnpaidPeriods(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.BalancePeriod{}).
		Where("seller_id = ? AND state = ? AND period_date <= ?", sellerID, enums.PeriodStateUnpaid, throughDate).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) SumIndex(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.BalanceIndexEntry{}).
		Where("seller_id = ? AND period_date <= ?", sellerID, throughDate).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) AddToIndex(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder, currency enums.Currency, delta int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.BalanceIndexEntry{}).
		Where("seller_id = ? AND period_date = ? AND holder = ?", sellerID, periodDate, holder).
		Update("amount_cents", gorm.Expr("amount_cents + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	entry := models.BalanceIndexEntry{
		ID:          uuid.New(),
		SellerID:    sellerID,
		PeriodDate:  periodDate,
		Holder:      holder,
		AmountCents: delta,
		Currency:    currency,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *repository) SetIndexAmount(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder, currency enums.Currency, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.BalanceIndexEntry{}).
		Where("seller_id = ? AND period_date = ? AND holder = ?", sellerID, periodDate, holder).
		Update("amount_cents", amount)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	entry := models.BalanceIndexEntry{
		ID:          uuid.New(),
		SellerID:    sellerID,
		PeriodDate:  periodDate,
		Holder:      holder,
		AmountCents: amount,
		Currency:    currency,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *repository) RemoveIndexEntry(ctx context.Context, sellerID uuid.UUID, periodDate time.Time, holder enums.Holder) error {
	return r.db.WithContext(ctx).
		Where("seller_id = ? AND period_date = ? AND holder = ?", sellerID, periodDate, holder).
		Delete(&models.BalanceIndexEntry{}).Error
}

// RebuildIndex drops every index entry for the seller and reinserts one entry
// per unpaid period. Callers must hold the seller lock.
func (r *repository) RebuildIndex(ctx context.Context, sellerID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Delete(&models.BalanceIndexEntry{}).Error
	if err != nil {
		return err
	}

	var periods []models.BalancePeriod
	err = r.db.WithContext(ctx).
		Where("seller_id = ? AND state = ?", sellerID, enums.PeriodStateUnpaid).
		Find(&periods).Error
	if err != nil {
		return err
	}
	for _, period := range periods {
		entry := models.BalanceIndexEntry{
			ID:          uuid.New(),
			SellerID:    period.SellerID,
			PeriodDate:  period.PeriodDate,
			Holder:      period.Holder,
			AmountCents: period.AmountCents,
			Currency:    period.Currency,
		}
		if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}
