package controllers

import (
	"net/http"

	"github.com/harlowmarket/payouts-backend/api/responses"
	"github.com/harlowmarket/payouts-backend/api/validators"
	"github.com/harlowmarket/payouts-backend/internal/policies"
	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

type createPolicyRequest struct {
	Frequency           string `json:"frequency" validate:"required"`
	MinimumPayoutCents  int64  `json:"minimum_payout_cents" validate:"gte=0"`
	Currency            string `json:"currency" validate:"required"`
	UsesMerchantAccount bool   `json:"uses_merchant_account"`
	ForfeitOnClosure    *bool  `json:"forfeit_on_closure"`
}

// GetPolicy returns the seller's payout policy.
func GetPolicy(repo policies.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "policy repository unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		policy, err := repo.FindBySeller(r.Context(), sellerID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInvariantViolation) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "seller has no payout policy"))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, policy)
	}
}

// CreatePolicy registers a seller's payout configuration.
func CreatePolicy(repo policies.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "policy repository unavailable"))
			return
		}

		sellerID, err := parseSellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createPolicyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		frequency, err := enums.ParsePayoutFrequency(req.Frequency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency"))
			return
		}
		currency, err := enums.ParseCurrency(req.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}

		policy := models.PayoutPolicy{
			SellerID:            sellerID,
			Frequency:           frequency,
			MinimumPayoutCents:  req.MinimumPayoutCents,
			Currency:            currency,
			UsesMerchantAccount: req.UsesMerchantAccount,
			ForfeitOnClosure:    true,
		}
		if req.ForfeitOnClosure != nil {
			policy.ForfeitOnClosure = *req.ForfeitOnClosure
		}

		if err := repo.Create(r.Context(), &policy); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, policy)
	}
}
