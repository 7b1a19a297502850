package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/pkg/config"
	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	dbtypes "github.com/harlowmarket/payouts-backend/pkg/db/types"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
	"github.com/harlowmarket/payouts-backend/pkg/metrics"
	"github.com/harlowmarket/payouts-backend/pkg/money"
)

// Service decides when a seller's next payout happens and how much is
// payable, and records the disbursement decision atomically.
type Service interface {
	NextPayoutDate(ctx context.Context, sellerID uuid.UUID) (*time.Time, error)
	PayoutAmountForDate(ctx context.Context, sellerID uuid.UUID, date time.Time) (money.Money, error)
	RecordPayout(ctx context.Context, sellerID uuid.UUID, payoutDate time.Time) (*models.PayoutRecord, error)
	MarkCompleted(ctx context.Context, payoutID uuid.UUID) error
	MarkUnclaimed(ctx context.Context, payoutID uuid.UUID) error
	MarkFailed(ctx context.Context, payoutID uuid.UUID) error
	ListPayouts(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRecord, error)
}

// BalanceSource is the slice of the ledger the scheduler reads.
type BalanceSource interface {
	UnpaidBalance(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (money.Money, error)
}

type service struct {
	db          ledger.TxRunner
	balances    BalanceSource
	periods     ledger.Repository
	records     Repository
	policies    ledger.PolicySource
	locker      ledger.SellerLocker
	eligibility EligibilityChecker
	logg        *logger.Logger
	metrics     *metrics.LedgerMetrics
	cfg         config.PayoutsConfig
	now         func() time.Time
}

// ServiceParams carries the scheduler dependencies.
type ServiceParams struct {
	DB          ledger.TxRunner
	Balances    BalanceSource
	Periods     ledger.Repository
	Records     Repository
	Policies    ledger.PolicySource
	Locker      ledger.SellerLocker
	Eligibility EligibilityChecker
	Logger      *logger.Logger
	Metrics     *metrics.LedgerMetrics
	Config      config.PayoutsConfig
}

// NewService wires a payout scheduler with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("payouts tx runner required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balance source required")
	}
	if params.Periods == nil {
		return nil, fmt.Errorf("period repository required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy source required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("seller locker required")
	}
	if params.Eligibility == nil {
		params.Eligibility = NeverEligible{}
	}
	return &service{
		db:          params.DB,
		balances:    params.Balances,
		periods:     params.Periods,
		records:     params.Records,
		policies:    params.Policies,
		locker:      params.Locker,
		eligibility: params.Eligibility,
		logg:        params.Logger,
		metrics:     params.Metrics,
		cfg:         params.Config,
		now:         time.Now,
	}, nil
}

func (s *service) delayDays() int {
	if s.cfg.DelayDays > 0 {
		return s.cfg.DelayDays
	}
	return 7
}

func (s *service) minimumFor(policy *models.PayoutPolicy) int64 {
	if policy.MinimumPayoutCents > 0 {
		return policy.MinimumPayoutCents
	}
	return s.cfg.DefaultMinimumCents
}

// NextPayoutDate computes the seller's next disbursement date, or nil when
// the unpaid balance has not cleared the minimum. Daily sellers who were
// instant-eligible yesterday bypass the recurrence schedule and pay out
// tomorrow.
func (s *service) NextPayoutDate(ctx context.Context, sellerID uuid.UUID) (*time.Time, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	policy, err := s.policies.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	today := truncateToDay(s.now())
	balance, err := s.balances.UnpaidBalance(ctx, sellerID, today)
	if err != nil {
		return nil, err
	}
	if balance.Cents < s.minimumFor(policy) {
		s.metrics.IncPayoutDecision("below_minimum")
		return nil, nil
	}

	if policy.Frequency == enums.PayoutFrequencyDaily {
		if s.instantEligible(ctx, sellerID, today.AddDate(0, 0, -1)) {
			next := today.AddDate(0, 0, 1)
			s.metrics.IncPayoutDecision("instant")
			return &next, nil
		}
	}

	candidate := initialCandidate(today, policy.Frequency)
	for candidate.Before(today) {
		candidate = advanceCandidate(candidate, policy.Frequency)
	}

	// The amount payable at the candidate settles against a window that
	// closed delay_days earlier; if that window has not accumulated the
	// minimum yet, the payout slides one recurrence step.
	amount, err := s.PayoutAmountForDate(ctx, sellerID, candidate)
	if err != nil {
		return nil, err
	}
	if amount.Cents < s.minimumFor(policy) {
		candidate = advanceCandidate(candidate, policy.Frequency)
	}

	if candidate.Equal(today) {
		blocked, err := s.records.ExistsBlocking(ctx, sellerID, today)
		if err != nil {
			return nil, err
		}
		if blocked {
			candidate = advanceCandidate(candidate, policy.Frequency)
		}
	}

	s.metrics.IncPayoutDecision("scheduled")
	return &candidate, nil
}

// PayoutAmountForDate returns what a disbursement on the given date would
// pay: the balance through the date itself on the instant track, otherwise
// the balance through the close of the settlement window.
func (s *service) PayoutAmountForDate(ctx context.Context, sellerID uuid.UUID, date time.Time) (money.Money, error) {
	if sellerID == uuid.Nil {
		return money.Money{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	policy, err := s.policies.FindBySeller(ctx, sellerID)
	if err != nil {
		return money.Money{}, err
	}

	date = truncateToDay(date)
	if policy.Frequency == enums.PayoutFrequencyDaily && s.instantEligible(ctx, sellerID, date.AddDate(0, 0, -1)) {
		return s.balances.UnpaidBalance(ctx, sellerID, date)
	}
	return s.balances.UnpaidBalance(ctx, sellerID, date.AddDate(0, 0, -s.delayDays()))
}

// RecordPayout atomically claims the seller's payable periods for a
// disbursement on the given date. The duplicate-day check and the period
// transitions commit together under the seller lock, so two concurrent
// sweeps cannot both pay the same day.
func (s *service) RecordPayout(ctx context.Context, sellerID uuid.UUID, payoutDate time.Time) (*models.PayoutRecord, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	policy, err := s.policies.FindBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	date := truncateToDay(payoutDate)
	instant := policy.Frequency == enums.PayoutFrequencyDaily && s.instantEligible(ctx, sellerID, date.AddDate(0, 0, -1))
	through := date
	if !instant {
		through = date.AddDate(0, 0, -s.delayDays())
	}

	var record *models.PayoutRecord
	err = s.locker.WithSellerLock(ctx, sellerID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			records := s.records.WithTx(tx)
			periods := s.periods.WithTx(tx)

			blocked, err := records.ExistsBlocking(ctx, sellerID, date)
			if err != nil {
				return err
			}
			if blocked {
				return pkgerrors.New(pkgerrors.CodeConflict, "a payout already exists for this seller and day").
					WithDetails(map[string]any{"seller_id": sellerID, "paid_on": date.Format("2006-01-02")})
			}

			unpaid, err := periods.ListUnpaidPeriods(ctx, sellerID, through)
			if err != nil {
				return err
			}
			if len(unpaid) == 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "seller has no payable periods in the settlement window").
					WithDetails(map[string]any{"through": through.Format("2006-01-02")})
			}

			var total int64
			ids := make(dbtypes.UUIDArray, 0, len(unpaid))
			for _, period := range unpaid {
				total += period.AmountCents
				ids = append(ids, period.ID)
			}
			if total < s.minimumFor(policy) {
				return pkgerrors.New(pkgerrors.CodeValidation, "payable amount is below the seller minimum").
					WithDetails(map[string]any{
						"payable_cents": total,
						"minimum_cents": s.minimumFor(policy),
					})
			}

			for _, period := range unpaid {
				if err := periods.SetPeriodState(ctx, period.ID, enums.PeriodStateProcessing); err != nil {
					return err
				}
			}

			record = &models.PayoutRecord{
				ID:          uuid.New(),
				SellerID:    sellerID,
				PeriodStart: unpaid[0].PeriodDate,
				PeriodEnd:   unpaid[len(unpaid)-1].PeriodDate,
				PaidOn:      date,
				AmountCents: total,
				Currency:    policy.Currency,
				State:       enums.PayoutStateProcessing,
				Instant:     instant,
				PeriodIDs:   ids,
			}
			return records.Create(ctx, record)
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayoutDecision("recorded")
	return record, nil
}

// MarkCompleted settles a processing payout: the record completes and its
// periods become paid.
func (s *service) MarkCompleted(ctx context.Context, payoutID uuid.UUID) error {
	record, err := s.records.Find(ctx, payoutID)
	if err != nil {
		return err
	}
	err = s.locker.WithSellerLock(ctx, record.SellerID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.records.WithTx(tx).UpdateState(ctx, payoutID, record.State, enums.PayoutStateCompleted); err != nil {
				return err
			}
			periods := s.periods.WithTx(tx)
			for _, periodID := range record.PeriodIDs {
				if err := periods.SetPeriodState(ctx, periodID, enums.PeriodStatePaid); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncPayoutDecision("completed")
	return nil
}

// MarkUnclaimed parks an issued payout that the seller has not claimed yet.
// The covered periods stay in processing until the payout completes or fails.
func (s *service) MarkUnclaimed(ctx context.Context, payoutID uuid.UUID) error {
	return s.records.UpdateState(ctx, payoutID, enums.PayoutStateProcessing, enums.PayoutStateUnclaimed)
}

// MarkFailed reverts a payout: the record fails, dropping out of the
// duplicate-day guard, and the covered periods return to unpaid so the next
// sweep picks them up again.
func (s *service) MarkFailed(ctx context.Context, payoutID uuid.UUID) error {
	record, err := s.records.Find(ctx, payoutID)
	if err != nil {
		return err
	}
	if record.State == enums.PayoutStateCompleted {
		return pkgerrors.New(pkgerrors.CodeConflict, "completed payouts cannot fail").
			WithDetails(map[string]any{"payout_id": payoutID})
	}
	err = s.locker.WithSellerLock(ctx, record.SellerID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.records.WithTx(tx).UpdateState(ctx, payoutID, record.State, enums.PayoutStateFailed); err != nil {
				return err
			}
			periods := s.periods.WithTx(tx)
			for _, periodID := range record.PeriodIDs {
				if err := periods.SetPeriodState(ctx, periodID, enums.PeriodStateUnpaid); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncPayoutDecision("failed")
	return nil
}

func (s *service) ListPayouts(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRecord, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.records.ListBySeller(ctx, sellerID, limit)
}

// instantEligible wraps the external predicate; a dependency failure means
// not eligible, logged for investigation rather than failing the schedule.
func (s *service) instantEligible(ctx context.Context, sellerID uuid.UUID, date time.Time) bool {
	eligible, err := s.eligibility.IsInstantEligible(ctx, sellerID, date)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "instant eligibility check failed", err)
		}
		return false
	}
	return eligible
}
