package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
	"github.com/harlowmarket/payouts-backend/pkg/metrics"
	"github.com/harlowmarket/payouts-backend/pkg/money"
)

// Service defines the balance ledger operations: recording classified
// transactions into periods, reading unpaid balances and summarizing the
// sales activity behind a set of periods.
type Service interface {
	Record(ctx context.Context, txn *models.Transaction) (*models.BalancePeriod, error)
	UnpaidBalance(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (money.Money, error)
	SalesDataForPeriods(ctx context.Context, sellerID uuid.UUID, periodIDs []uuid.UUID) (*SalesBreakdown, error)
}

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PolicySource resolves a seller's payout policy.
type PolicySource interface {
	FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutPolicy, error)
}

// SalesBreakdown summarizes the transactions behind a set of balance periods,
// with fees split by sale channel. Reversing kinds carry negative amounts, so
// every field sums signed cents.
type SalesBreakdown struct {
	GrossSalesCents     int64 `json:"gross_sales_cents"`
	RefundsCents        int64 `json:"refunds_cents"`
	ChargebacksCents    int64 `json:"chargebacks_cents"`
	CreditsCents        int64 `json:"credits_cents"`
	LoanRepaymentsCents int64 `json:"loan_repayments_cents"`
	TaxesCents          int64 `json:"taxes_cents"`
	DirectFeesCents     int64 `json:"direct_fees_cents"`
	DiscoverFeesCents   int64 `json:"discover_fees_cents"`
	AffiliateCents      int64 `json:"affiliate_cents"`
	NetCents            int64 `json:"net_cents"`
}

type service struct {
	db       TxRunner
	repo     Repository
	policies PolicySource
	locker   SellerLocker
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
	now      func() time.Time
}

// ServiceParams carries the ledger service dependencies.
type ServiceParams struct {
	DB       TxRunner
	Repo     Repository
	Policies PolicySource
	Locker   SellerLocker
	Logger   *logger.Logger
	Metrics  *metrics.LedgerMetrics
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("ledger tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy source required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("seller locker required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		policies: params.Policies,
		locker:   params.Locker,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

// Record persists the transaction and attributes its net amount to the
// seller's balance period, all inside one database transaction held under the
// seller's exclusive lock.
func (s *service) Record(ctx context.Context, txn *models.Transaction) (*models.BalancePeriod, error) {
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction is required")
	}
	if txn.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if !txn.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", txn.Kind))
	}
	if !txn.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", txn.Currency))
	}
	if !txn.Holder.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid holder %q", txn.Holder))
	}
	if txn.OccurredAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "occurred_at is required")
	}

	policy, err := s.policies.FindBySeller(ctx, txn.SellerID)
	if err != nil {
		return nil, err
	}
	if policy.Currency != txn.Currency {
		return nil, pkgerrors.New(pkgerrors.CodeCurrencyMismatch, "transaction currency does not match seller currency").
			WithDetails(map[string]any{
				"seller_currency":      policy.Currency,
				"transaction_currency": txn.Currency,
			})
	}

	var period *models.BalancePeriod
	err = s.locker.WithSellerLock(ctx, txn.SellerID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			if txn.ID == uuid.Nil {
				txn.ID = uuid.New()
			}
			if err := repo.CreateTransaction(ctx, txn); err != nil {
				return err
			}

			target, err := s.openPeriod(ctx, repo, txn, policy.Frequency)
			if err != nil {
				return err
			}

			net := txn.NetCents()
			holdingDelta := int64(0)
			if txn.Holder == enums.HolderProcessor {
				holdingDelta = net
			}
			if err := repo.AddToPeriod(ctx, target.ID, net, holdingDelta); err != nil {
				return err
			}
			if err := repo.AssignTransactionPeriod(ctx, txn.ID, target.ID); err != nil {
				return err
			}
			if err := repo.AddToIndex(ctx, txn.SellerID, target.PeriodDate, target.Holder, target.Currency, net); err != nil {
				return err
			}

			txn.BalancePeriodID = &target.ID
			target.AmountCents += net
			target.HoldingCents += holdingDelta
			period = target
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAttribution(txn.Kind.String())
	return period, nil
}

// openPeriod finds the unpaid bucket the transaction belongs to. A late
// adjustment whose natural bucket already settled rolls forward into the
// seller's current bucket instead of mutating a paid period.
func (s *service) openPeriod(ctx context.Context, repo Repository, txn *models.Transaction, frequency enums.PayoutFrequency) (*models.BalancePeriod, error) {
	periodDate := PeriodDateFor(txn.OccurredAt, frequency)
	period, err := repo.FindOrCreatePeriod(ctx, txn.SellerID, periodDate, txn.Holder, txn.Currency)
	if err != nil {
		return nil, err
	}
	if period.Currency != txn.Currency {
		return nil, pkgerrors.New(pkgerrors.CodeLedgerIntegrity, "balance period currency does not match transaction").
			WithDetails(map[string]any{
				"period_id":            period.ID,
				"period_currency":      period.Currency,
				"transaction_currency": txn.Currency,
			})
	}
	if period.State == enums.PeriodStateUnpaid {
		return period, nil
	}

	rolledDate := PeriodDateFor(s.now(), frequency)
	if !rolledDate.After(periodDate) {
		return nil, pkgerrors.New(pkgerrors.CodeLedgerIntegrity, "no open balance period available for transaction").
			WithDetails(map[string]any{
				"seller_id":    txn.SellerID,
				"period_date":  periodDate,
				"period_state": period.State,
			})
	}
	rolled, err := repo.FindOrCreatePeriod(ctx, txn.SellerID, rolledDate, txn.Holder, txn.Currency)
	if err != nil {
		return nil, err
	}
	if rolled.State != enums.PeriodStateUnpaid {
		return nil, pkgerrors.New(pkgerrors.CodeLedgerIntegrity, "no open balance period available for transaction").
			WithDetails(map[string]any{
				"seller_id":    txn.SellerID,
				"period_date":  rolledDate,
				"period_state": rolled.State,
			})
	}
	return rolled, nil
}

// UnpaidBalance reads the seller's unpaid total through the given date. It
// compares the indexed fast path against direct summation over periods; on
// any disagreement it reports an integrity event and serves the direct sum.
func (s *service) UnpaidBalance(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (money.Money, error) {
	if sellerID == uuid.Nil {
		return money.Money{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}

	policy, err := s.policies.FindBySeller(ctx, sellerID)
	if err != nil {
		return money.Money{}, err
	}
	if throughDate.IsZero() {
		throughDate = truncateToDay(s.now())
	}

	direct, err := s.repo.SumUnpaidPeriods(ctx, sellerID, throughDate)
	if err != nil {
		return money.Money{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing unpaid periods")
	}

	indexed, err := s.repo.SumIndex(ctx, sellerID, throughDate)
	if err != nil {
		s.reportDiscrepancy(ctx, sellerID, direct, 0, err)
		return money.New(direct, policy.Currency), nil
	}
	if indexed != direct {
		s.reportDiscrepancy(ctx, sellerID, direct, indexed, nil)
	}
	return money.New(direct, policy.Currency), nil
}

func (s *service) reportDiscrepancy(ctx context.Context, sellerID uuid.UUID, direct, indexed int64, err error) {
	s.metrics.IncIntegrityDiscrepancy("unpaid_balance")
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithSellerID(ctx, sellerID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"direct_cents":  direct,
		"indexed_cents": indexed,
	})
	s.logg.Critical(ctx, "unpaid balance index disagrees with direct summation", err)
}

// SalesDataForPeriods summarizes the activity attributed to the given
// periods. A waived refund's fee deduction is pulled back into the period set
// holding the original sale; an unwaived refund's fee deduction stays in the
// refund's own period.
func (s *service) SalesDataForPeriods(ctx context.Context, sellerID uuid.UUID, periodIDs []uuid.UUID) (*SalesBreakdown, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if len(periodIDs) == 0 {
		return &SalesBreakdown{}, nil
	}

	periods, err := s.repo.FindPeriods(ctx, periodIDs)
	if err != nil {
		return nil, err
	}
	if len(periods) != len(periodIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more balance periods not found")
	}
	for _, period := range periods {
		if period.SellerID != sellerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "balance period belongs to a different seller").
				WithDetails(map[string]any{"period_id": period.ID})
		}
	}

	txns, err := s.repo.ListTransactionsByPeriods(ctx, periodIDs)
	if err != nil {
		return nil, err
	}
	outside, err := s.repo.ListRefundsAgainstPeriods(ctx, periodIDs)
	if err != nil {
		return nil, err
	}

	inSet := make(map[uuid.UUID]struct{}, len(txns))
	breakdown := &SalesBreakdown{}
	for _, txn := range txns {
		inSet[txn.ID] = struct{}{}
		s.tally(breakdown, txn, true)
	}
	for _, txn := range outside {
		if _, ok := inSet[txn.ID]; ok {
			continue
		}
		// A waived refund charges its fee deduction back to the original
		// sale's period set even though the refund itself landed elsewhere.
		if txn.FeeWaived {
			s.tallyFee(breakdown, txn, -txn.FeeCents)
		}
	}
	return breakdown, nil
}

func (s *service) tally(b *SalesBreakdown, txn models.Transaction, includeFee bool) {
	switch txn.Kind {
	case enums.TransactionKindSale:
		b.GrossSalesCents += txn.GrossCents
	case enums.TransactionKindRefund, enums.TransactionKindPartialRefund:
		b.RefundsCents += txn.GrossCents
	case enums.TransactionKindChargeback, enums.TransactionKindChargebackReversal:
		b.ChargebacksCents += txn.GrossCents
	case enums.TransactionKindCredit:
		b.CreditsCents += txn.GrossCents
	case enums.TransactionKindLoanRepayment:
		b.LoanRepaymentsCents += txn.GrossCents
	}

	b.TaxesCents += txn.TaxCents
	b.AffiliateCents += txn.AffiliateCents
	b.NetCents += txn.NetCents()

	// A waived refund's fee follows the original sale's period set, tallied
	// by the caller; everything else keeps its fee in its own period.
	if includeFee && !(txn.Kind.IsRefundLike() && txn.FeeWaived) {
		s.tallyFee(b, txn, -txn.FeeCents)
	}
}

func (s *service) tallyFee(b *SalesBreakdown, txn models.Transaction, signedFee int64) {
	if txn.Channel == enums.SaleChannelDiscover {
		b.DiscoverFeesCents += signedFee
		return
	}
	b.DirectFeesCents += signedFee
}
