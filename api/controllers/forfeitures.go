package controllers

import (
	"net/http"

	"github.com/harlowmarket/payouts-backend/api/responses"
	"github.com/harlowmarket/payouts-backend/api/validators"
	"github.com/harlowmarket/payouts-backend/internal/forfeiture"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

type forfeitRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ForfeitureAmount previews how much a forfeiture would write off.
func ForfeitureAmount(svc forfeiture.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forfeiture service unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := parseReason(r.URL.Query().Get("reason"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := svc.AmountToForfeit(r.Context(), sellerID, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, amount)
	}
}

// Forfeit writes off the seller's entire unpaid balance.
func Forfeit(svc forfeiture.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forfeiture service unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req forfeitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := parseReason(req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSellerID(ctx, sellerID.String())
		}

		amount, err := svc.Forfeit(ctx, sellerID, reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, amount)
	}
}

// ClosureCheck verifies the seller can close their account without leaving
// money behind.
func ClosureCheck(svc forfeiture.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forfeiture service unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ValidateClosure(r.Context(), sellerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "clear"})
	}
}

func parseReason(raw string) (enums.ForfeitureReason, error) {
	reason, err := enums.ParseForfeitureReason(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid forfeiture reason")
	}
	return reason, nil
}
