package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"exchange-widget/internals/adapter/cache"
	"exchange-widget/internals/adapter/exchangerateapi"
	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/core/sampling"
	"exchange-widget/internals/helpers"
	"exchange-widget/internals/metrics"

	"go.uber.org/zap"
)

const (
	endpointLatest  = "latest"
	endpointHistory = "history"

	cacheTypeLatest     = "latest"
	cacheTypeHistorical = "historical"
)

type RateRepository interface {
	// GetLatestRate returns the latest envelope and when it was fetched. fresh is
	// true only when this call went to the network.
	GetLatestRate(ctx context.Context, now time.Time) (resp *domain.RatesResponse, fetchedAt time.Time, fresh bool, err error)
	// GetHistoricalSeries never fails; an empty series is the fallback.
	GetHistoricalSeries(ctx context.Context, key domain.RangeKey, now time.Time) domain.HistoricalSeries
	InvalidateLatest()
	InvalidateHistorical(key domain.RangeKey)
}

type cachedRateRepository struct {
	apiClient exchangerateapi.RateAPIClient
	cache     cache.Cache
	metrics   *metrics.Metrics
	pacing    time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	log       *zap.Logger

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// NewCachedRateRepository wires the cache-then-fetch flows. pacing is the wait
// after each successful historical fetch; production passes domain.PacingDelay.
func NewCachedRateRepository(apiClient exchangerateapi.RateAPIClient, cache cache.Cache, m *metrics.Metrics, pacing time.Duration, log *zap.Logger) RateRepository {
	return &cachedRateRepository{
		apiClient: apiClient,
		cache:     cache,
		metrics:   m,
		pacing:    pacing,
		sleep:     sleepContext,
		log:       log,
		inFlight:  make(map[string]*sync.Mutex),
	}
}

// lockKey serialises check, fetch and store for one cache key.
func (r *cachedRateRepository) lockKey(key string) func() {
	r.mu.Lock()
	m, ok := r.inFlight[key]
	if !ok {
		m = &sync.Mutex{}
		r.inFlight[key] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (r *cachedRateRepository) GetLatestRate(ctx context.Context, now time.Time) (*domain.RatesResponse, time.Time, bool, error) {
	unlock := r.lockKey(cacheTypeLatest)
	defer unlock()

	if resp, fetchedAt, found := r.cache.GetLatest(now); found {
		r.metrics.CacheHitsTotal.WithLabelValues(cacheTypeLatest).Inc()
		return resp, fetchedAt, false, nil
	}
	r.metrics.CacheMissesTotal.WithLabelValues(cacheTypeLatest).Inc()

	resp, err := r.apiClient.FetchLatestRates(ctx, domain.BaseCurrency)
	if err != nil {
		r.metrics.UpstreamRequestsTotal.WithLabelValues(endpointLatest, outcome(err)).Inc()
		return nil, time.Time{}, false, err
	}
	if _, ok := resp.Rate(domain.TargetCurrency); !ok {
		r.metrics.UpstreamRequestsTotal.WithLabelValues(endpointLatest, outcome(exchangerateapi.ErrRateMissing)).Inc()
		return nil, time.Time{}, false, fmt.Errorf("%w: %s", exchangerateapi.ErrRateMissing, domain.TargetCurrency)
	}
	r.metrics.UpstreamRequestsTotal.WithLabelValues(endpointLatest, "success").Inc()

	r.cache.SetLatest(resp, now)
	return resp, now, true, nil
}

func (r *cachedRateRepository) GetHistoricalSeries(ctx context.Context, key domain.RangeKey, now time.Time) domain.HistoricalSeries {
	unlock := r.lockKey(cacheTypeHistorical + ":" + string(key))
	defer unlock()

	if series, found := r.cache.GetHistorical(key, now); found {
		r.metrics.CacheHitsTotal.WithLabelValues(cacheTypeHistorical).Inc()
		return series
	}
	r.metrics.CacheMissesTotal.WithLabelValues(cacheTypeHistorical).Inc()

	start := key.StartDate(now)
	dates := sampling.Plan(start, now, key)
	r.log.Info("Fetching historical series",
		zap.String("range", string(key)),
		zap.Int("dates", len(dates)),
	)

	points, complete := r.fetchDates(ctx, dates)
	if len(points) == 0 {
		r.log.Warn("No historical data points obtained, using empty fallback", zap.String("range", string(key)))
		r.metrics.HistoricalFallbacksTotal.WithLabelValues(string(key)).Inc()
		points = domain.HistoricalSeries{}
	} else {
		sort.Slice(points, func(i, j int) bool {
			return points[i].Date.ToTime().Before(points[j].Date.ToTime())
		})
	}

	if !complete {
		r.log.Warn("Historical fetch interrupted, result not cached",
			zap.String("range", string(key)),
			zap.Error(ctx.Err()),
		)
		return points
	}

	r.metrics.HistoricalSamplePoints.WithLabelValues(string(key)).Observe(float64(len(points)))
	r.cache.SetHistorical(key, points, now)
	return points
}

// fetchDates queries one date at a time. complete is false when ctx ended the loop.
func (r *cachedRateRepository) fetchDates(ctx context.Context, dates []time.Time) (domain.HistoricalSeries, bool) {
	points := make(domain.HistoricalSeries, 0, len(dates))

loop:
	for _, date := range dates {
		if ctx.Err() != nil {
			return points, false
		}

		day := date.Format("2006-01-02")
		rate, err := r.apiClient.FetchHistoricalRate(ctx, date, domain.BaseCurrency, domain.TargetCurrency)
		r.metrics.UpstreamRequestsTotal.WithLabelValues(endpointHistory, outcome(err)).Inc()

		switch {
		case err == nil:
			points = append(points, domain.NewRatePoint(date, rate))
		case errors.Is(err, exchangerateapi.ErrPlanUpgradeRequired):
			r.log.Warn("Historical data requires a paid plan, stopping", zap.String("date", day))
			break loop
		case errors.Is(err, exchangerateapi.ErrNoDataAvailable):
			r.log.Warn("No data available", zap.String("date", day))
			continue
		case errors.Is(err, exchangerateapi.ErrRateMissing):
			// Successful envelope without the target; still paced.
			r.log.Debug("Target rate missing", zap.String("date", day))
		default:
			r.log.Error("Error fetching historical rate", zap.String("date", day), zap.Error(err))
			continue
		}

		if err := r.sleep(ctx, r.pacing); err != nil {
			return points, false
		}
	}
	return points, true
}

func (r *cachedRateRepository) InvalidateLatest() {
	r.cache.InvalidateLatest()
}

func (r *cachedRateRepository) InvalidateHistorical(key domain.RangeKey) {
	r.cache.InvalidateHistorical(key)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outcome(err error) string {
	var apiErr *exchangerateapi.APIError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, exchangerateapi.ErrPlanUpgradeRequired):
		return "plan_upgrade_required"
	case errors.Is(err, exchangerateapi.ErrNoDataAvailable):
		return "no_data"
	case errors.Is(err, exchangerateapi.ErrRateMissing):
		return "rate_missing"
	case errors.As(err, &apiErr):
		return "api_error"
	case helpers.IsHTTPError(err):
		return "http_error"
	default:
		return "transport_error"
	}
}
