package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harlowmarket/payouts-backend/internal/classifier"
	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/internal/policies"
	"github.com/harlowmarket/payouts-backend/pkg/config"
	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
	"github.com/harlowmarket/payouts-backend/pkg/money"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubClassifier struct{}

func (stubClassifier) Classify(ctx context.Context, event classifier.RawEvent) (*models.Transaction, error) {
	return &models.Transaction{ID: uuid.New(), SellerID: event.SellerID}, nil
}

type stubLedger struct{}

func (stubLedger) Record(ctx context.Context, txn *models.Transaction) (*models.BalancePeriod, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (stubLedger) UnpaidBalance(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (money.Money, error) {
	return money.New(4200, enums.CurrencyUSD), nil
}

func (stubLedger) SalesDataForPeriods(ctx context.Context, sellerID uuid.UUID, periodIDs []uuid.UUID) (*ledger.SalesBreakdown, error) {
	return &ledger.SalesBreakdown{GrossSalesCents: 10000, NetCents: 9100}, nil
}

type stubPayouts struct{}

func (stubPayouts) NextPayoutDate(ctx context.Context, sellerID uuid.UUID) (*time.Time, error) {
	next := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	return &next, nil
}

func (stubPayouts) PayoutAmountForDate(ctx context.Context, sellerID uuid.UUID, date time.Time) (money.Money, error) {
	return money.New(1500, enums.CurrencyUSD), nil
}

func (stubPayouts) RecordPayout(ctx context.Context, sellerID uuid.UUID, payoutDate time.Time) (*models.PayoutRecord, error) {
	return &models.PayoutRecord{ID: uuid.New(), SellerID: sellerID, PaidOn: payoutDate, AmountCents: 1500}, nil
}

func (stubPayouts) MarkCompleted(ctx context.Context, payoutID uuid.UUID) error { return nil }
func (stubPayouts) MarkUnclaimed(ctx context.Context, payoutID uuid.UUID) error { return nil }
func (stubPayouts) MarkFailed(ctx context.Context, payoutID uuid.UUID) error    { return nil }

func (stubPayouts) ListPayouts(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRecord, error) {
	return nil, nil
}

type stubForfeiture struct {
	closureErr error
}

func (s stubForfeiture) AmountToForfeit(ctx context.Context, sellerID uuid.UUID, reason enums.ForfeitureReason) (money.Money, error) {
	return money.New(2500, enums.CurrencyUSD), nil
}

func (s stubForfeiture) Forfeit(ctx context.Context, sellerID uuid.UUID, reason enums.ForfeitureReason) (money.Money, error) {
	return money.New(2500, enums.CurrencyUSD), nil
}

func (s stubForfeiture) ValidateClosure(ctx context.Context, sellerID uuid.UUID) error {
	return s.closureErr
}

type stubPolicyRepo struct{}

func (s *stubPolicyRepo) WithTx(tx *gorm.DB) policies.Repository { return s }

func (s *stubPolicyRepo) FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutPolicy, error) {
	return &models.PayoutPolicy{SellerID: sellerID, Frequency: enums.PayoutFrequencyWeekly, Currency: enums.CurrencyUSD}, nil
}

func (s *stubPolicyRepo) Create(ctx context.Context, policy *models.PayoutPolicy) error { return nil }

func (s *stubPolicyRepo) ListSellerIDs(ctx context.Context) ([]uuid.UUID, error) { return nil, nil }

func (s *stubPolicyRepo) AddLifetimeSales(ctx context.Context, sellerID uuid.UUID, deltaCents int64, cachedTier int) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "dev", Port: "8080"}}
}

func newTestRouter(forfeit stubForfeiture) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		nil, // redis client
		stubClassifier{},
		stubLedger{},
		stubPayouts{},
		forfeit,
		&stubPolicyRepo{},
	)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(stubForfeiture{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestSellerBalanceRoute(t *testing.T) {
	router := newTestRouter(stubForfeiture{})
	sellerID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/"+sellerID.String()+"/balance", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data money.Money `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.Cents != 4200 {
		t.Fatalf("expected 4200 cents got %d", envelope.Data.Cents)
	}
}

func TestSellerBalanceRejectsBadID(t *testing.T) {
	router := newTestRouter(stubForfeiture{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/not-a-uuid/balance", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestNextPayoutDateRoute(t *testing.T) {
	router := newTestRouter(stubForfeiture{})
	sellerID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/"+sellerID.String()+"/payouts/next-date", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			NextPayoutDate *string `json:"next_payout_date"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.NextPayoutDate == nil || *envelope.Data.NextPayoutDate != "2026-02-20" {
		t.Fatalf("unexpected next payout date: %v", envelope.Data.NextPayoutDate)
	}
}

func TestClosureCheckSurfacesUnpaidBalance(t *testing.T) {
	blocked := stubForfeiture{
		closureErr: pkgerrors.New(pkgerrors.CodeUnpaidBalance, "unpaid balance must be forfeited or disbursed before closure"),
	}
	router := newTestRouter(blocked)
	sellerID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sellers/"+sellerID.String()+"/closure-check", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(stubForfeiture{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
