package cache

import (
	"sync"
	"time"

	"exchange-widget/internals/core/domain"

	"go.uber.org/zap"
)

// Cache holds the latest envelope and one historical series per range. An entry
// is a hit while now - fetchedAt < domain.CacheDuration. Expired entries stay
// stored until overwritten.
type Cache interface {
	GetLatest(now time.Time) (*domain.RatesResponse, time.Time, bool)
	SetLatest(resp *domain.RatesResponse, fetchedAt time.Time)
	InvalidateLatest()
	GetHistorical(key domain.RangeKey, now time.Time) (domain.HistoricalSeries, bool)
	SetHistorical(key domain.RangeKey, series domain.HistoricalSeries, fetchedAt time.Time)
	InvalidateHistorical(key domain.RangeKey)
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

func (e entry[T]) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.fetchedAt) < ttl
}

type rateCache struct {
	mu         sync.RWMutex
	ttl        time.Duration
	latest     *entry[*domain.RatesResponse]
	historical map[domain.RangeKey]entry[domain.HistoricalSeries]
	log        *zap.Logger
}

func NewRateCache(ttl time.Duration, log *zap.Logger) Cache {
	if ttl <= 0 {
		ttl = domain.CacheDuration
	}
	return &rateCache{
		ttl:        ttl,
		historical: make(map[domain.RangeKey]entry[domain.HistoricalSeries]),
		log:        log,
	}
}

func (c *rateCache) GetLatest(now time.Time) (*domain.RatesResponse, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.latest == nil || !c.latest.fresh(now, c.ttl) {
		c.log.Debug("Cache miss", zap.String("key", "latest"))
		return nil, time.Time{}, false
	}
	c.log.Debug("Cache hit", zap.String("key", "latest"))
	return c.latest.value, c.latest.fetchedAt, true
}

func (c *rateCache) SetLatest(resp *domain.RatesResponse, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest = &entry[*domain.RatesResponse]{value: resp, fetchedAt: fetchedAt}
	c.log.Debug("Cached latest rates", zap.Time("fetched_at", fetchedAt))
}

func (c *rateCache) InvalidateLatest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = nil
}

// GetHistorical returns a copy so callers cannot mutate the stored series.
func (c *rateCache) GetHistorical(key domain.RangeKey, now time.Time) (domain.HistoricalSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.historical[key]
	if !ok || !e.fresh(now, c.ttl) {
		c.log.Debug("Cache miss", zap.String("key", historicalKey(key)))
		return nil, false
	}
	c.log.Debug("Cache hit", zap.String("key", historicalKey(key)), zap.Int("points", len(e.value)))
	return append(domain.HistoricalSeries{}, e.value...), true
}

func (c *rateCache) SetHistorical(key domain.RangeKey, series domain.HistoricalSeries, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.historical[key] = entry[domain.HistoricalSeries]{
		value:     append(domain.HistoricalSeries{}, series...),
		fetchedAt: fetchedAt,
	}
	c.log.Debug("Cached historical series",
		zap.String("key", historicalKey(key)),
		zap.Int("points", len(series)),
	)
}

func (c *rateCache) InvalidateHistorical(key domain.RangeKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.historical, key)
}

func historicalKey(key domain.RangeKey) string {
	return "historical:" + string(key)
}
