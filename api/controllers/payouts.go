package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/api/responses"
	"github.com/harlowmarket/payouts-backend/api/validators"
	"github.com/harlowmarket/payouts-backend/internal/payouts"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

type nextPayoutResponse struct {
	NextPayoutDate *string `json:"next_payout_date"`
}

// NextPayoutDate returns the next date money can leave the seller's balance,
// or null when the balance never reaches the payout minimum.
func NextPayoutDate(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout scheduler unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSellerID(ctx, sellerID.String())
		}

		next, err := svc.NextPayoutDate(ctx, sellerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := nextPayoutResponse{}
		if next != nil {
			formatted := next.Format("2006-01-02")
			payload.NextPayoutDate = &formatted
		}
		responses.WriteSuccess(w, payload)
	}
}

// PayoutAmount returns the disbursable amount for a hypothetical payout date.
func PayoutAmount(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout scheduler unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSellerID(ctx, sellerID.String())
		}

		amount, err := svc.PayoutAmountForDate(ctx, sellerID, date)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, amount)
	}
}

type recordPayoutRequest struct {
	PayoutDate string `json:"payout_date" validate:"required"`
}

// RecordPayout claims the seller's payable periods and opens a payout record
// for the given date.
func RecordPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout scheduler unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordPayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutDate, err := time.ParseInLocation("2006-01-02", req.PayoutDate, time.UTC)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payout_date must be a YYYY-MM-DD date"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSellerID(ctx, sellerID.String())
		}

		record, err := svc.RecordPayout(ctx, sellerID, payoutDate)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// ListPayouts returns the seller's most recent payout records.
func ListPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout scheduler unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListPayouts(r.Context(), sellerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, records)
	}
}

// CompletePayout marks a processing payout as settled and its periods paid.
func CompletePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutTransition(svc, logg, payouts.Service.MarkCompleted)
}

// UnclaimPayout marks a processing payout as unclaimed by the provider.
func UnclaimPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutTransition(svc, logg, payouts.Service.MarkUnclaimed)
}

// FailPayout marks a payout as failed and returns its periods to the unpaid
// balance so the money is disbursed again later.
func FailPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutTransition(svc, logg, payouts.Service.MarkFailed)
}

func payoutTransition(svc payouts.Service, logg *logger.Logger, apply func(payouts.Service, context.Context, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout scheduler unavailable"))
			return
		}

		payoutID, err := parsePayoutID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := apply(svc, r.Context(), payoutID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
