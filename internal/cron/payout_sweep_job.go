package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

// PayoutSweepJobParams configure the daily payout sweep.
type PayoutSweepJobParams struct {
	Logger    *logger.Logger
	Sellers   sellerLister
	Scheduler payoutScheduler
}

type sellerLister interface {
	ListSellerIDs(ctx context.Context) ([]uuid.UUID, error)
}

type payoutScheduler interface {
	NextPayoutDate(ctx context.Context, sellerID uuid.UUID) (*time.Time, error)
	RecordPayout(ctx context.Context, sellerID uuid.UUID, payoutDate time.Time) (*models.PayoutRecord, error)
}

// NewPayoutSweepJob builds the cron job that walks every seller and records
// a payout for those whose next payout date is today.
func NewPayoutSweepJob(params PayoutSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller lister required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("payout scheduler required")
	}
	return &payoutSweepJob{
		logg:      params.Logger,
		sellers:   params.Sellers,
		scheduler: params.Scheduler,
		now:       time.Now,
	}, nil
}

type payoutSweepJob struct {
	logg      *logger.Logger
	sellers   sellerLister
	scheduler payoutScheduler
	now       func() time.Time
}

func (j *payoutSweepJob) Name() string { return "payout-sweep" }

// Run records payouts seller by seller. One seller's failure never stops the
// sweep; errors are aggregated so the cycle reports everything that broke.
func (j *payoutSweepJob) Run(ctx context.Context) error {
	sellerIDs, err := j.sellers.ListSellerIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing sellers: %w", err)
	}

	now := j.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var errs error
	recorded := 0
	for _, sellerID := range sellerIDs {
		sellerCtx := j.logg.WithSellerID(ctx, sellerID.String())

		next, err := j.scheduler.NextPayoutDate(sellerCtx, sellerID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seller %s: %w", sellerID, err))
			continue
		}
		if next == nil || !next.Equal(today) {
			continue
		}

		record, err := j.scheduler.RecordPayout(sellerCtx, sellerID, today)
		if err != nil {
			// A concurrent sweep already claimed the day; nothing to report.
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("seller %s: %w", sellerID, err))
			continue
		}
		recorded++
		sellerCtx = j.logg.WithField(sellerCtx, "amount_cents", record.AmountCents)
		j.logg.Info(sellerCtx, "payout recorded")
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"sellers_checked":  len(sellerIDs),
		"payouts_recorded": recorded,
	})
	j.logg.Info(ctx, "payout sweep finished")
	return errs
}
