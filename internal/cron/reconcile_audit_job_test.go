package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

func TestReconcileAuditJob_matchingSumsLeaveIndexAlone(t *testing.T) {
	sellerID := uuid.New()
	store := &fakeBalanceIndexStore{
		direct:  map[uuid.UUID]int64{sellerID: 4200},
		indexed: map[uuid.UUID]int64{sellerID: 4200},
	}
	job := newReconcileAuditJobTest(t, []uuid.UUID{sellerID}, store)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.rebuilt) != 0 {
		t.Fatalf("expected no rebuilds, got %d", len(store.rebuilt))
	}
}

func TestReconcileAuditJob_rebuildsDriftedIndex(t *testing.T) {
	driftedSeller := uuid.New()
	cleanSeller := uuid.New()
	store := &fakeBalanceIndexStore{
		direct:  map[uuid.UUID]int64{driftedSeller: 9100, cleanSeller: 500},
		indexed: map[uuid.UUID]int64{driftedSeller: 1, cleanSeller: 500},
	}
	job := newReconcileAuditJobTest(t, []uuid.UUID{driftedSeller, cleanSeller}, store)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.rebuilt) != 1 {
		t.Fatalf("expected 1 rebuild, got %d", len(store.rebuilt))
	}
	if store.rebuilt[0] != driftedSeller {
		t.Fatalf("rebuilt wrong seller: %s", store.rebuilt[0])
	}
}

func TestReconcileAuditJob_oneFailureDoesNotStopTheAudit(t *testing.T) {
	brokenSeller := uuid.New()
	driftedSeller := uuid.New()
	store := &fakeBalanceIndexStore{
		direct:  map[uuid.UUID]int64{brokenSeller: 100, driftedSeller: 9100},
		indexed: map[uuid.UUID]int64{brokenSeller: 100, driftedSeller: 0},
		sumErrs: map[uuid.UUID]error{brokenSeller: fmt.Errorf("connection reset")},
	}
	job := newReconcileAuditJobTest(t, []uuid.UUID{brokenSeller, driftedSeller}, store)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(store.rebuilt) != 1 || store.rebuilt[0] != driftedSeller {
		t.Fatalf("expected drifted seller rebuilt, got %v", store.rebuilt)
	}
}

func TestReconcileAuditJob_horizonCoversEverything(t *testing.T) {
	sellerID := uuid.New()
	store := &fakeBalanceIndexStore{
		direct:  map[uuid.UUID]int64{sellerID: 100},
		indexed: map[uuid.UUID]int64{sellerID: 100},
	}
	job := newReconcileAuditJobTest(t, []uuid.UUID{sellerID}, store)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.lastThrough.Year() < 9000 {
		t.Fatalf("expected far-future horizon, got %s", store.lastThrough)
	}
}

func newReconcileAuditJobTest(t *testing.T, sellers []uuid.UUID, store *fakeBalanceIndexStore) Job {
	t.Helper()
	job, err := NewReconcileAuditJob(ReconcileAuditJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sellers: fakeSellerLister(sellers),
		Store:   store,
		Locker:  ledger.NewMemorySellerLock(),
	})
	if err != nil {
		t.Fatalf("NewReconcileAuditJob: %v", err)
	}
	return job
}

type fakeBalanceIndexStore struct {
	direct      map[uuid.UUID]int64
	indexed     map[uuid.UUID]int64
	sumErrs     map[uuid.UUID]error
	rebuilt     []uuid.UUID
	lastThrough time.Time
}

func (f *fakeBalanceIndexStore) SumUnpaidPeriods(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error) {
	f.lastThrough = throughDate
	if err := f.sumErrs[sellerID]; err != nil {
		return 0, err
	}
	return f.direct[sellerID], nil
}

func (f *fakeBalanceIndexStore) SumIndex(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (int64, error) {
	return f.indexed[sellerID], nil
}

func (f *fakeBalanceIndexStore) RebuildIndex(ctx context.Context, sellerID uuid.UUID) error {
	f.rebuilt = append(f.rebuilt, sellerID)
	return nil
}
