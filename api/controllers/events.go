package controllers

import (
	"net/http"

	"github.com/harlowmarket/payouts-backend/api/responses"
	"github.com/harlowmarket/payouts-backend/api/validators"
	"github.com/harlowmarket/payouts-backend/internal/classifier"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

// RecordEvent classifies a raw marketplace event and attributes the resulting
// transaction into the seller's balance.
func RecordEvent(svc classifier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "classifier unavailable"))
			return
		}

		var event classifier.RawEvent
		if err := validators.DecodeJSONBody(r, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSellerID(ctx, event.SellerID.String())
		}

		txn, err := svc.Classify(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}
