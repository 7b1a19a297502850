package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/internal/classifier"
	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

type fakeClassifier struct {
	lastEvent classifier.RawEvent
	txn       *models.Transaction
	err       error
}

func (f *fakeClassifier) Classify(ctx context.Context, event classifier.RawEvent) (*models.Transaction, error) {
	f.lastEvent = event
	if f.err != nil {
		return nil, f.err
	}
	return f.txn, nil
}

func TestRecordEventCreatesTransaction(t *testing.T) {
	sellerID := uuid.New()
	svc := &fakeClassifier{txn: &models.Transaction{ID: uuid.New(), SellerID: sellerID}}
	handler := RecordEvent(svc, nil)

	body := `{"seller_id":"` + sellerID.String() + `","kind":"sale","occurred_at":"2026-02-10T15:04:05Z","amount_cents":10000,"currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastEvent.SellerID != sellerID {
		t.Fatalf("unexpected seller forwarded: %s", svc.lastEvent.SellerID)
	}
	if svc.lastEvent.Kind != "sale" {
		t.Fatalf("unexpected kind forwarded: %s", svc.lastEvent.Kind)
	}
	if svc.lastEvent.AmountCents != 10000 {
		t.Fatalf("unexpected amount forwarded: %d", svc.lastEvent.AmountCents)
	}
}

func TestRecordEventRejectsMissingFields(t *testing.T) {
	svc := &fakeClassifier{}
	handler := RecordEvent(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"kind":"sale"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if _, ok := envelope.Error.Details["seller_id"]; !ok {
		t.Fatalf("expected seller_id in details, got %v", envelope.Error.Details)
	}
}

func TestRecordEventRejectsNegativeAmount(t *testing.T) {
	sellerID := uuid.New()
	svc := &fakeClassifier{}
	handler := RecordEvent(svc, nil)

	body := `{"seller_id":"` + sellerID.String() + `","kind":"refund","occurred_at":"2026-02-10T15:04:05Z","amount_cents":-500,"currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRecordEventMapsUnclassifiable(t *testing.T) {
	sellerID := uuid.New()
	svc := &fakeClassifier{err: pkgerrors.New(pkgerrors.CodeUnclassifiable, "unknown transaction kind")}
	handler := RecordEvent(svc, nil)

	body := `{"seller_id":"` + sellerID.String() + `","kind":"mystery","occurred_at":"2026-02-10T15:04:05Z","amount_cents":100,"currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
