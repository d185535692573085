package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"exchange-widget/internals/adapter/cache"
	"exchange-widget/internals/adapter/exchangerateapi"
	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/helpers"
	"exchange-widget/internals/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

type histResult struct {
	rate float64
	err  error
}

// --- Mock API Client ---
type mockAPIClient struct {
	mu sync.Mutex

	latestResp  *domain.RatesResponse
	latestErr   error
	latestDelay time.Duration
	latestCalls int

	// histScript is consumed in call order; calls past its end report no data.
	histScript []histResult
	histDates  []time.Time
}

func (m *mockAPIClient) FetchLatestRates(ctx context.Context, base domain.Currency) (*domain.RatesResponse, error) {
	m.mu.Lock()
	m.latestCalls++
	m.mu.Unlock()
	if m.latestDelay > 0 {
		time.Sleep(m.latestDelay)
	}
	return m.latestResp, m.latestErr
}

func (m *mockAPIClient) FetchHistoricalRate(ctx context.Context, date time.Time, base, target domain.Currency) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.histDates)
	m.histDates = append(m.histDates, date)
	if i < len(m.histScript) {
		return m.histScript[i].rate, m.histScript[i].err
	}
	return 0, exchangerateapi.ErrNoDataAvailable
}

func (m *mockAPIClient) historicalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.histDates)
}

// pauseLog records each pacing wait instead of sleeping.
type pauseLog struct {
	after []int // historical calls made before the pause
	waits []time.Duration
}

func newTestRepo(client *mockAPIClient) (*cachedRateRepository, *pauseLog) {
	repo := NewCachedRateRepository(
		client,
		cache.NewRateCache(domain.CacheDuration, zap.NewNop()),
		metrics.NewMetrics(prometheus.NewRegistry()),
		domain.PacingDelay,
		zap.NewNop(),
	).(*cachedRateRepository)

	pauses := &pauseLog{}
	repo.sleep = func(ctx context.Context, d time.Duration) error {
		pauses.after = append(pauses.after, client.historicalCalls())
		pauses.waits = append(pauses.waits, d)
		return ctx.Err()
	}
	return repo, pauses
}

func successResp(rate float64) *domain.RatesResponse {
	return &domain.RatesResponse{
		Result:          domain.ResultSuccess,
		ConversionRates: map[domain.Currency]float64{"IDR": rate, "USD": 1},
	}
}

func TestGetLatestRate_CacheMiss_APISuccess(t *testing.T) {
	client := &mockAPIClient{latestResp: successResp(15234.567)}
	repo, _ := newTestRepo(client)

	resp, fetchedAt, fresh, err := repo.GetLatestRate(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, now, fetchedAt)
	rate, _ := resp.Rate("IDR")
	assert.Equal(t, 15234.567, rate)
}

func TestGetLatestRate_CacheHitWithinWindow(t *testing.T) {
	client := &mockAPIClient{latestResp: successResp(15000)}
	repo, _ := newTestRepo(client)

	_, _, _, err := repo.GetLatestRate(context.Background(), now)
	require.NoError(t, err)

	resp, fetchedAt, fresh, err := repo.GetLatestRate(context.Background(), now.Add(29*time.Minute))
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, now, fetchedAt)
	assert.NotNil(t, resp)
	assert.Equal(t, 1, client.latestCalls)

	_, _, fresh, err = repo.GetLatestRate(context.Background(), now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, 2, client.latestCalls)
}

func TestGetLatestRate_APIError(t *testing.T) {
	client := &mockAPIClient{latestErr: &helpers.HTTPError{StatusCode: 500, Status: "500 Internal Server Error"}}
	repo, _ := newTestRepo(client)

	resp, _, fresh, err := repo.GetLatestRate(context.Background(), now)
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.False(t, fresh)
	assert.True(t, helpers.IsHTTPError(err))

	_, _, found := repo.cache.GetLatest(now)
	assert.False(t, found, "failures are not cached")
}

func TestGetLatestRate_TargetMissing(t *testing.T) {
	client := &mockAPIClient{latestResp: &domain.RatesResponse{
		Result:          domain.ResultSuccess,
		ConversionRates: map[domain.Currency]float64{"EUR": 0.92},
	}}
	repo, _ := newTestRepo(client)

	_, _, _, err := repo.GetLatestRate(context.Background(), now)
	assert.ErrorIs(t, err, exchangerateapi.ErrRateMissing)
	_, _, found := repo.cache.GetLatest(now)
	assert.False(t, found)
}

func TestGetLatestRate_ConcurrentCallersShareOneFetch(t *testing.T) {
	client := &mockAPIClient{latestResp: successResp(15000), latestDelay: 50 * time.Millisecond}
	repo, _ := newTestRepo(client)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, err := repo.GetLatestRate(context.Background(), now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, client.latestCalls)
}

func TestGetHistoricalSeries_PlanUpgradeAbortsAndCachesEmpty(t *testing.T) {
	client := &mockAPIClient{histScript: []histResult{
		{err: exchangerateapi.ErrPlanUpgradeRequired},
		{rate: 15000},
	}}
	repo, pauses := newTestRepo(client)

	series := repo.GetHistoricalSeries(context.Background(), domain.Range1y, now)
	assert.NotNil(t, series)
	assert.Empty(t, series)
	assert.Equal(t, 1, client.historicalCalls(), "loop stops at the first plan-upgrade-required")
	assert.Empty(t, pauses.after)

	cached, found := repo.cache.GetHistorical(domain.Range1y, now.Add(time.Minute))
	assert.True(t, found)
	assert.Empty(t, cached)

	again := repo.GetHistoricalSeries(context.Background(), domain.Range1y, now.Add(10*time.Minute))
	assert.Empty(t, again)
	assert.Equal(t, 1, client.historicalCalls())
}

func TestGetHistoricalSeries_SkipsNoDataAndKeepsOrder(t *testing.T) {
	client := &mockAPIClient{histScript: []histResult{
		{err: exchangerateapi.ErrNoDataAvailable},
		{rate: 15000},
		{rate: 15200},
	}}
	repo, pauses := newTestRepo(client)

	series := repo.GetHistoricalSeries(context.Background(), domain.Range7d, now)
	require.Len(t, series, 2)
	assert.Equal(t, domain.Day(client.histDates[1]), series[0].Date.ToTime())
	assert.Equal(t, 15000.0, series[0].Rate)
	assert.Equal(t, domain.Day(client.histDates[2]), series[1].Date.ToTime())
	assert.Equal(t, 15200.0, series[1].Rate)

	// 7d samples eight days; pauses follow only the two successes.
	assert.Equal(t, 8, client.historicalCalls())
	assert.Equal(t, []int{2, 3}, pauses.after)
	assert.Equal(t, []time.Duration{domain.PacingDelay, domain.PacingDelay}, pauses.waits)
}

func TestGetHistoricalSeries_FailuresAreSkipped(t *testing.T) {
	client := &mockAPIClient{histScript: []histResult{
		{err: &helpers.HTTPError{StatusCode: 502, Status: "502 Bad Gateway"}},
		{err: &exchangerateapi.APIError{Type: "quota-reached"}},
		{err: errors.New("connection reset")},
		{rate: 15100},
		{err: exchangerateapi.ErrRateMissing},
	}}
	repo, pauses := newTestRepo(client)

	series := repo.GetHistoricalSeries(context.Background(), domain.Range7d, now)
	require.Len(t, series, 1)
	assert.Equal(t, 15100.0, series[0].Rate)
	assert.Equal(t, 8, client.historicalCalls(), "unrecognised errors do not abort the batch")
	// A success envelope without the target still counts as a success for pacing.
	assert.Equal(t, []int{4, 5}, pauses.after)
	require.Len(t, pauses.waits, 2)
	for _, d := range pauses.waits {
		assert.Equal(t, 500*time.Millisecond, d)
	}
}

func TestGetHistoricalSeries_SamplesAscendingAndEndLast(t *testing.T) {
	client := &mockAPIClient{}
	repo, _ := newTestRepo(client)

	repo.GetHistoricalSeries(context.Background(), domain.RangeMax, now)
	dates := client.histDates
	require.Len(t, dates, 21)
	assert.Equal(t, now, dates[len(dates)-1])
	for i := 1; i < len(dates); i++ {
		assert.True(t, dates[i].After(dates[i-1]))
	}
}

func TestGetHistoricalSeries_24hFetchesOnlyToday(t *testing.T) {
	client := &mockAPIClient{histScript: []histResult{{rate: 15300}}}
	repo, _ := newTestRepo(client)

	series := repo.GetHistoricalSeries(context.Background(), domain.Range24h, now)
	require.Len(t, series, 1)
	assert.Equal(t, []time.Time{now}, client.histDates)
}

func TestGetHistoricalSeries_IdempotentWithinWindow(t *testing.T) {
	client := &mockAPIClient{histScript: []histResult{{rate: 15000}}}
	repo, _ := newTestRepo(client)

	first := repo.GetHistoricalSeries(context.Background(), domain.Range7d, now)
	calls := client.historicalCalls()
	second := repo.GetHistoricalSeries(context.Background(), domain.Range7d, now.Add(20*time.Minute))
	assert.Equal(t, first, second)
	assert.Equal(t, calls, client.historicalCalls())
}

func TestGetHistoricalSeries_InvalidateForcesRefetch(t *testing.T) {
	client := &mockAPIClient{}
	repo, _ := newTestRepo(client)

	repo.GetHistoricalSeries(context.Background(), domain.Range7d, now)
	repo.InvalidateHistorical(domain.Range7d)
	repo.GetHistoricalSeries(context.Background(), domain.Range7d, now)
	assert.Equal(t, 16, client.historicalCalls())
}

func TestGetHistoricalSeries_CancelledMidLoopIsNotCached(t *testing.T) {
	client := &mockAPIClient{histScript: []histResult{{rate: 15000}, {rate: 15100}}}
	repo, _ := newTestRepo(client)

	ctx, cancel := context.WithCancel(context.Background())
	repo.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	series := repo.GetHistoricalSeries(ctx, domain.Range7d, now)
	require.Len(t, series, 1)
	assert.Equal(t, 1, client.historicalCalls())

	_, found := repo.cache.GetHistorical(domain.Range7d, now)
	assert.False(t, found)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "plan_upgrade_required", outcome(exchangerateapi.ErrPlanUpgradeRequired))
	assert.Equal(t, "no_data", outcome(exchangerateapi.ErrNoDataAvailable))
	assert.Equal(t, "api_error", outcome(&exchangerateapi.APIError{Type: "x"}))
	assert.Equal(t, "http_error", outcome(&helpers.HTTPError{StatusCode: 500}))
	assert.Equal(t, "transport_error", outcome(errors.New("dial tcp")))
}
