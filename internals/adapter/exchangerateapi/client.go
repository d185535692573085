package exchangerateapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/helpers"

	"go.uber.org/zap"
)

var (
	// ErrPlanUpgradeRequired means the key's plan has no historical access; every date fails alike.
	ErrPlanUpgradeRequired = errors.New("plan upgrade required")
	ErrNoDataAvailable     = errors.New("no data available")
	ErrRateMissing         = errors.New("target rate missing from response")
)

// APIError is an application-level error the client does not recognise.
type APIError struct {
	Type string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return "API returned error: Unknown error"
	}
	return fmt.Sprintf("API returned error: %s", e.Type)
}

// RateAPIClient defines the interface for fetching exchange rates.
type RateAPIClient interface {
	FetchLatestRates(ctx context.Context, base domain.Currency) (*domain.RatesResponse, error)
	FetchHistoricalRate(ctx context.Context, date time.Time, base, target domain.Currency) (float64, error)
}

type client struct {
	api helpers.ExchangeRateAPI
	log *zap.Logger
}

func NewClient(api helpers.ExchangeRateAPI, log *zap.Logger) RateAPIClient {
	return &client{api: api, log: log}
}

// FetchLatestRates returns the full conversion table, or an error when the call or the API result failed.
func (c *client) FetchLatestRates(ctx context.Context, base domain.Currency) (*domain.RatesResponse, error) {
	resp, err := c.api.GetLatest(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest rates from external API: %w", err)
	}
	if !resp.Succeeded() {
		c.log.Error("API returned error result",
			zap.String("base", string(base)),
			zap.String("error", resp.ErrorDetail()),
		)
		return nil, classify(resp.ErrorDetail())
	}
	return resp, nil
}

// FetchHistoricalRate returns one day's target rate. Application errors map to
// ErrPlanUpgradeRequired, ErrNoDataAvailable or *APIError.
func (c *client) FetchHistoricalRate(ctx context.Context, date time.Time, base, target domain.Currency) (float64, error) {
	resp, err := c.api.GetHistory(ctx, base, date)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch historical rates from external API: %w", err)
	}
	if !resp.Succeeded() {
		return 0, classify(resp.ErrorDetail())
	}
	rate, ok := resp.Rate(target)
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s", ErrRateMissing, target, date.Format("2006-01-02"))
	}
	return rate, nil
}

func classify(errorType string) error {
	switch errorType {
	case domain.ErrorTypePlanUpgradeRequired:
		return ErrPlanUpgradeRequired
	case domain.ErrorTypeNoDataAvailable:
		return ErrNoDataAvailable
	default:
		return &APIError{Type: errorType}
	}
}

// IsApplicationError reports whether err came from a decoded API error envelope.
func IsApplicationError(err error) bool {
	var apiErr *APIError
	return errors.Is(err, ErrPlanUpgradeRequired) || errors.Is(err, ErrNoDataAvailable) || errors.As(err, &apiErr)
}

// UserMessage returns the text shown to the user for err: the upstream status or
// API error when one is in the chain, otherwise err without the client's prefix.
func UserMessage(err error) string {
	var httpErr *helpers.HTTPError
	var apiErr *APIError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.Is(err, ErrPlanUpgradeRequired):
		return (&APIError{Type: domain.ErrorTypePlanUpgradeRequired}).Error()
	case errors.Is(err, ErrNoDataAvailable):
		return (&APIError{Type: domain.ErrorTypeNoDataAvailable}).Error()
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}
