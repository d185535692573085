package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "exchange_widget"

// Metrics holds the Prometheus collectors for the widget server.
type Metrics struct {
	// HTTP surface
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream calls, labelled by endpoint (latest, history) and outcome
	UpstreamRequestsTotal *prometheus.CounterVec

	// Cache metrics, labelled by entry type (latest, historical)
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	HistoricalFallbacksTotal *prometheus.CounterVec
	HistoricalSamplePoints   *prometheus.HistogramVec

	BackgroundRefreshesTotal *prometheus.CounterVec
}

// NewMetrics registers every collector on reg. Tests pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of exchange rate API requests",
			},
			[]string{"endpoint", "outcome"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"type"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"type"},
		),

		HistoricalFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "historical_fallbacks_total",
				Help:      "Historical loads that produced an empty series",
			},
			[]string{"range"},
		),

		HistoricalSamplePoints: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "historical_sample_points",
				Help:      "Number of points in freshly fetched historical series",
				Buckets:   prometheus.LinearBuckets(0, 3, 8),
			},
			[]string{"range"},
		),

		BackgroundRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "background_refreshes_total",
				Help:      "Timer-driven widget reloads by result",
			},
			[]string{"result"},
		),
	}
}
