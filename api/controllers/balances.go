package controllers

import (
	"net/http"
	"time"

	"github.com/harlowmarket/payouts-backend/api/responses"
	"github.com/harlowmarket/payouts-backend/api/validators"
	"github.com/harlowmarket/payouts-backend/internal/ledger"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

// balanceHorizon covers every attributed period regardless of its date.
var balanceHorizon = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// SellerBalance returns the seller's total unpaid balance across all periods.
func SellerBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
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

		balance, err := svc.UnpaidBalance(ctx, sellerID, balanceHorizon)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

// SellerSalesData aggregates the sales breakdown for a set of balance periods,
// pulling cross-period fee refunds back into the requested set.
func SellerSalesData(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		periodIDs, err := validators.ParseQueryUUIDs(r, "period_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSellerID(ctx, sellerID.String())
		}

		breakdown, err := svc.SalesDataForPeriods(ctx, sellerID, periodIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, breakdown)
	}
}
