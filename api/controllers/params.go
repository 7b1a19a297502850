package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

func parseSellerID(r *http.Request) (uuid.UUID, error) {
	return parseUUIDParam(r, "sellerId", "seller id")
}

func parsePayoutID(r *http.Request) (uuid.UUID, error) {
	return parseUUIDParam(r, "payoutId", "payout id")
}

func parseUUIDParam(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
