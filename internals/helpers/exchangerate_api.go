package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"exchange-widget/internals/core/domain"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://v6.exchangerate-api.com/v6/"

// HTTPError is a non-2xx upstream response whose body is not an API error envelope.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error: %s", e.Status)
}

// ExchangeRateAPI talks to the exchangerate-api.com v6 endpoints.
type ExchangeRateAPI interface {
	GetLatest(ctx context.Context, base domain.Currency) (*domain.RatesResponse, error)
	GetHistory(ctx context.Context, base domain.Currency, date time.Time) (*domain.RatesResponse, error)
}

type exchangeRateAPI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

func NewExchangeRateAPI(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) ExchangeRateAPI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &exchangeRateAPI{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (a *exchangeRateAPI) GetLatest(ctx context.Context, base domain.Currency) (*domain.RatesResponse, error) {
	url := fmt.Sprintf("%s%s/latest/%s", a.baseURL, a.apiKey, base)
	a.log.Debug("Fetching latest rates", zap.String("base", string(base)))
	return a.doRequest(ctx, url)
}

// GetHistory requests one calendar day; month and day are not zero padded.
func (a *exchangeRateAPI) GetHistory(ctx context.Context, base domain.Currency, date time.Time) (*domain.RatesResponse, error) {
	year, month, day := date.Date()
	url := fmt.Sprintf("%s%s/history/%s/%d/%d/%d", a.baseURL, a.apiKey, base, year, int(month), day)
	a.log.Debug("Fetching historical rates",
		zap.String("base", string(base)),
		zap.String("date", date.Format("2006-01-02")),
	)
	return a.doRequest(ctx, url)
}

func (a *exchangeRateAPI) doRequest(ctx context.Context, url string) (*domain.RatesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out domain.RatesResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The API also reports plan and key problems with 4xx codes; keep those classifiable.
		if decodeErr == nil && out.Result == domain.ResultError && out.ErrorDetail() != "" {
			return &out, nil
		}
		a.log.Warn("Upstream returned non-2xx status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 256)),
		)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return &out, nil
}

// IsHTTPError reports whether err is a transport-level status failure.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
