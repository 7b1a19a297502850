package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/money"
)

type fakePayoutService struct {
	next       *time.Time
	nextErr    error
	amount     money.Money
	record     *models.PayoutRecord
	recordErr  error
	completed  []uuid.UUID
	failed     []uuid.UUID
	failErr    error
	lastAmount time.Time
}

func (f *fakePayoutService) NextPayoutDate(ctx context.Context, sellerID uuid.UUID) (*time.Time, error) {
	return f.next, f.nextErr
}

func (f *fakePayoutService) PayoutAmountForDate(ctx context.Context, sellerID uuid.UUID, date time.Time) (money.Money, error) {
	f.lastAmount = date
	return f.amount, nil
}

func (f *fakePayoutService) RecordPayout(ctx context.Context, sellerID uuid.UUID, payoutDate time.Time) (*models.PayoutRecord, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return f.record, nil
}

func (f *fakePayoutService) MarkCompleted(ctx context.Context, payoutID uuid.UUID) error {
	f.completed = append(f.completed, payoutID)
	return nil
}

func (f *fakePayoutService) MarkUnclaimed(ctx context.Context, payoutID uuid.UUID) error {
	return nil
}

func (f *fakePayoutService) MarkFailed(ctx context.Context, payoutID uuid.UUID) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.failed = append(f.failed, payoutID)
	return nil
}

func (f *fakePayoutService) ListPayouts(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRecord, error) {
	return nil, nil
}

func requestWithParam(method, target, param, value string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rc := chi.NewRouteContext()
	rc.URLParams.Add(param, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestNextPayoutDateFormatsDate(t *testing.T) {
	next := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	svc := &fakePayoutService{next: &next}
	handler := NextPayoutDate(svc, nil)

	req := requestWithParam(http.MethodGet, "/payouts/next-date", "sellerId", uuid.NewString(), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data nextPayoutResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.NextPayoutDate == nil || *envelope.Data.NextPayoutDate != "2026-02-20" {
		t.Fatalf("unexpected payload: %v", envelope.Data.NextPayoutDate)
	}
}

func TestNextPayoutDateNullWhenBelowMinimum(t *testing.T) {
	svc := &fakePayoutService{next: nil}
	handler := NextPayoutDate(svc, nil)

	req := requestWithParam(http.MethodGet, "/payouts/next-date", "sellerId", uuid.NewString(), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"next_payout_date":null`) {
		t.Fatalf("expected null next_payout_date, got %s", resp.Body.String())
	}
}

func TestPayoutAmountParsesDate(t *testing.T) {
	svc := &fakePayoutService{amount: money.New(1500, enums.CurrencyUSD)}
	handler := PayoutAmount(svc, nil)

	req := requestWithParam(http.MethodGet, "/payouts/amount?date=2026-02-20", "sellerId", uuid.NewString(), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	want := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	if !svc.lastAmount.Equal(want) {
		t.Fatalf("expected date %s forwarded, got %s", want, svc.lastAmount)
	}
}

func TestPayoutAmountRequiresDate(t *testing.T) {
	svc := &fakePayoutService{}
	handler := PayoutAmount(svc, nil)

	req := requestWithParam(http.MethodGet, "/payouts/amount", "sellerId", uuid.NewString(), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRecordPayoutReturnsCreated(t *testing.T) {
	record := &models.PayoutRecord{ID: uuid.New(), AmountCents: 1500, State: enums.PayoutStateProcessing}
	svc := &fakePayoutService{record: record}
	handler := RecordPayout(svc, nil)

	req := requestWithParam(http.MethodPost, "/payouts", "sellerId", uuid.NewString(), `{"payout_date":"2026-02-20"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRecordPayoutConflictWhenDayTaken(t *testing.T) {
	svc := &fakePayoutService{recordErr: pkgerrors.New(pkgerrors.CodeConflict, "payout already recorded for this date")}
	handler := RecordPayout(svc, nil)

	req := requestWithParam(http.MethodPost, "/payouts", "sellerId", uuid.NewString(), `{"payout_date":"2026-02-20"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCompletePayoutTransition(t *testing.T) {
	svc := &fakePayoutService{}
	handler := CompletePayout(svc, nil)
	payoutID := uuid.New()

	req := requestWithParam(http.MethodPost, "/payouts/complete", "payoutId", payoutID.String(), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.completed) != 1 || svc.completed[0] != payoutID {
		t.Fatalf("expected payout %s completed, got %v", payoutID, svc.completed)
	}
}

func TestFailPayoutMapsConflict(t *testing.T) {
	svc := &fakePayoutService{failErr: pkgerrors.New(pkgerrors.CodeConflict, "completed payouts cannot fail")}
	handler := FailPayout(svc, nil)

	req := requestWithParam(http.MethodPost, "/payouts/fail", "payoutId", uuid.NewString(), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
