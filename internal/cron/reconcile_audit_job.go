package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
	"github.com/harlowmarket/payouts-backend/pkg/metrics"
)

// reconcileHorizon is far enough out that every unpaid period falls inside it.
var reconcileHorizon = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// ReconcileAuditJobParams configure the nightly index reconciliation.
type ReconcileAuditJobParams struct {
	Logger  *logger.Logger
	Sellers sellerLister
	Store   balanceIndexStore
	Locker  ledger.SellerLocker
	Metrics *metrics.LedgerMetrics
}

type balanceIndexStore interface {
	SumUnpaidPeriods(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error)
	SumIndex(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error)
	RebuildIndex(ctx context.Context, sellerID uuid.UUID) error
}

// NewReconcileAuditJob builds the cron job that compares the unpaid-balance
// index against the period table for every seller and rebuilds entries that
// have drifted.
func NewReconcileAuditJob(params ReconcileAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller lister required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("balance index store required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("seller locker required")
	}
	return &reconcileAuditJob{
		logg:    params.Logger,
		sellers: params.Sellers,
		store:   params.Store,
		locker:  params.Locker,
		metrics: params.Metrics,
	}, nil
}

type reconcileAuditJob struct {
	logg    *logger.Logger
	sellers sellerLister
	store   balanceIndexStore
	locker  ledger.SellerLocker
	metrics *metrics.LedgerMetrics
}

func (j *reconcileAuditJob) Name() string { return "reconcile-audit" }

func (j *reconcileAuditJob) Run(ctx context.Context) error {
	sellerIDs, err := j.sellers.ListSellerIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing sellers: %w", err)
	}

	var errs error
	rebuilt := 0
	for _, sellerID := range sellerIDs {
		repaired, err := j.reconcileSeller(ctx, sellerID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seller %s: %w", sellerID, err))
			continue
		}
		if repaired {
			rebuilt++
		}
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"sellers_checked": len(sellerIDs),
		"indexes_rebuilt": rebuilt,
	})
	j.logg.Info(ctx, "index reconciliation finished")
	return errs
}

// reconcileSeller runs under the seller lock so no attribution or payout can
// interleave with the comparison and rebuild.
func (j *reconcileAuditJob) reconcileSeller(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	ctx = j.logg.WithSellerID(ctx, sellerID.String())

	repaired := false
	err := j.locker.WithSellerLock(ctx, sellerID, func(ctx context.Context) error {
		direct, err := j.store.SumUnpaidPeriods(ctx, sellerID, reconcileHorizon)
		if err != nil {
			return fmt.Errorf("summing unpaid periods: %w", err)
		}
		indexed, err := j.store.SumIndex(ctx, sellerID, reconcileHorizon)
		if err != nil {
			return fmt.Errorf("summing index: %w", err)
		}
		if direct == indexed {
			return nil
		}

		if j.metrics != nil {
			j.metrics.IncIntegrityDiscrepancy("reconcile_audit")
		}
		fieldCtx := j.logg.WithFields(ctx, map[string]any{
			"direct_cents":  direct,
			"indexed_cents": indexed,
		})
		j.logg.Critical(fieldCtx, "balance index drifted from period table", nil)

		if err := j.store.RebuildIndex(ctx, sellerID); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
		repaired = true
		j.logg.Info(fieldCtx, "balance index rebuilt")
		return nil
	})
	return repaired, err
}
