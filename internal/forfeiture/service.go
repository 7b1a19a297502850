package forfeiture

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

// distantFuture covers every period a seller could have; forfeiture writes
// off the whole unpaid balance regardless of bucket date.
var distantFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Service writes off unpaid seller balances on account closure or policy
// action, and gates closure until the money is resolved.
type Service interface {
	AmountToForfeit(ctx context.Context, sellerID uuid.UUID, reason enums.ForfeitureReason) (money.Money, error)
	Forfeit(ctx context.Context, sellerID uuid.UUID, reason enums.ForfeitureReason) (money.Money, error)
	ValidateClosure(ctx context.Context, sellerID uuid.UUID) error
}

type service struct {
	db       ledger.TxRunner
	periods  ledger.Repository
	records  Repository
	policies ledger.PolicySource
	locker   ledger.SellerLocker
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
	cfg      config.ForfeitureConfig
	now      func() time.Time
}

// ServiceParams carries the forfeiture engine dependencies.
type ServiceParams struct {
	DB       ledger.TxRunner
	Periods  ledger.Repository
	Records  Repository
	Policies ledger.PolicySource
	Locker   ledger.SellerLocker
	Logger   *logger.Logger
	Metrics  *metrics.LedgerMetrics
	Config   config.ForfeitureConfig
}

// NewService wires a forfeiture engine with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("forfeiture tx runner required")
	}
	if params.Periods == nil {
		return nil, fmt.Errorf("period repository required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("forfeiture repository required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy source required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("seller locker required")
	}
	return &service{
		db:       params.DB,
		periods:  params.Periods,
		records:  params.Records,
		policies: params.Policies,
		locker:   params.Locker,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      params.Config,
		now:      time.Now,
	}, nil
}

// AmountToForfeit computes the unpaid balance that a forfeiture for the
// given reason would write off.
func (s *service) AmountToForfeit(ctx context.Context, sellerID uuid.UUID, reason enums.ForfeitureReason) (money.Money, error) {
	if sellerID == uuid.Nil {
		return money.Money{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if !reason.IsValid() {
		return money.Money{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid forfeiture reason %q", reason))
	}
	policy, err := s.policies.FindBySeller(ctx, sellerID)
	if err != nil {
		return money.Money{}, err
	}
	total, err := s.periods.SumUnpaidPeriods(ctx, sellerID, distantFuture)
	if err != nil {
		return money.Money{}, err
	}
	return money.New(total, policy.Currency), nil
}

// Forfeit atomically writes off every unpaid period, recording the total for
// audit. It is idempotent: once the balance is zero a repeat call writes
// nothing and returns zero.
func (s *service) Forfeit(ctx context.Context, sellerID uuid.UUID, reason enums.ForfeitureReason) (money.Money, error) {
	if sellerID == uuid.Nil {
		return money.Money{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if !reason.IsValid() {
		return money.Money{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid forfeiture reason %q", reason))
	}
	policy, err := s.policies.FindBySeller(ctx, sellerID)
	if err != nil {
		return money.Money{}, err
	}

	forfeited := money.Zero(policy.Currency)
	err = s.locker.WithSellerLock(ctx, sellerID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			periods := s.periods.WithTx(tx)

			unpaid, err := periods.ListUnpaidPeriods(ctx, sellerID, distantFuture)
			if err != nil {
				return err
			}

			var total int64
			ids := make(dbtypes.UUIDArray, 0, len(unpaid))
			for _, period := range unpaid {
				total += period.AmountCents
				ids = append(ids, period.ID)
			}
			if len(unpaid) == 0 || total == 0 {
				return nil
			}

			for _, period := range unpaid {
				if err := periods.SetPeriodState(ctx, period.ID, enums.PeriodStateForfeited); err != nil {
					return err
				}
				if err := periods.ZeroPeriodForForfeit(ctx, period.ID); err != nil {
					return err
				}
			}

			record := &models.ForfeitureRecord{
				ID:          uuid.New(),
				SellerID:    sellerID,
				Reason:      reason,
				AmountCents: total,
				Currency:    policy.Currency,
				PeriodIDs:   ids,
				OccurredAt:  s.now().UTC(),
			}
			if err := s.records.WithTx(tx).Create(ctx, record); err != nil {
				return err
			}
			forfeited = money.New(total, policy.Currency)
			return nil
		})
	})
	if err != nil {
		return money.Money{}, err
	}

	if !forfeited.IsZero() {
		s.metrics.IncForfeiture()
		if s.logg != nil {
			ctx = s.logg.WithSellerID(ctx, sellerID.String())
			ctx = s.logg.WithFields(ctx, map[string]any{
				"reason":       reason,
				"amount_cents": forfeited.Cents,
			})
			s.logg.Info(ctx, "seller balance forfeited")
		}
	}
	return forfeited, nil
}

// ValidateClosure gates account deletion: when the seller's policy requires
// forfeiture on closure and unpaid money remains, closure is blocked until a
// forfeiture has run.
func (s *service) ValidateClosure(ctx context.Context, sellerID uuid.UUID) error {
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	policy, err := s.policies.FindBySeller(ctx, sellerID)
	if err != nil {
		return err
	}
	if !policy.ForfeitOnClosure && !s.cfg.ForfeitOnClosure {
		return nil
	}

	total, err := s.periods.SumUnpaidPeriods(ctx, sellerID, distantFuture)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeUnpaidBalance, "seller has an unpaid balance that must be forfeited before closure").
		WithDetails(map[string]any{
			"amount_cents": total,
			"currency":     policy.Currency,
		})
}
