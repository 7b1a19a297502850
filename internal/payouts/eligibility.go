package payouts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/logger"
)

// EligibilityChecker answers whether a seller qualifies for the instant
// payout track on a given date. Supplied by an external risk service.
type EligibilityChecker interface {
	IsInstantEligible(ctx context.Context, sellerID uuid.UUID, date time.Time) (bool, error)
}

// NeverEligible is the default when no eligibility service is configured:
// every seller stays on the standard recurrence schedule.
type NeverEligible struct{}

func (NeverEligible) IsInstantEligible(ctx context.Context, sellerID uuid.UUID, date time.Time) (bool, error) {
	return false, nil
}

// HTTPEligibilityChecker queries the risk service over HTTP. Failures are
// returned to the caller, which treats the seller as not eligible and logs
// the dependency error rather than blocking the scheduled track.
type HTTPEligibilityChecker struct {
	baseURL string
	client  *http.Client
	logg    *logger.Logger
}

// NewHTTPEligibilityChecker constructs a checker against the risk service.
func NewHTTPEligibilityChecker(baseURL string, logg *logger.Logger) (*HTTPEligibilityChecker, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("eligibility base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid eligibility base url: %w", err)
	}
	return &HTTPEligibilityChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logg:    logg,
	}, nil
}

func (c *HTTPEligibilityChecker) IsInstantEligible(ctx context.Context, sellerID uuid.UUID, date time.Time) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/instant-eligibility/%s?date=%s", c.baseURL, sellerID, date.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building eligibility request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling eligibility service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("eligibility service returned %d", resp.StatusCode))
	}

	var payload struct {
		Eligible bool `json:"eligible"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding eligibility response")
	}
	return payload.Eligible, nil
}
