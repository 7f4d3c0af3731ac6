// Package metrics holds the Prometheus collectors shared by handlers, services
// and workers. Collectors exist from package init so callers never nil-check;
// Register exposes them on the default registry.
package metrics

import (
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ModerationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidshare_moderation_actions_total",
			Help: "Moderator actions, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	ModerationRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidshare_moderation_cas_retries_total",
			Help: "Moderation writes retried after losing a version race.",
		},
	)

	RatingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidshare_ratings_total",
			Help: "Total ratings submitted.",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidshare_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidshare_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidshare_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidshare_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	QualityRecalcDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidshare_quality_recalculation_duration_seconds",
			Help:    "Duration of quality score recalculations.",
			Buckets: prometheus.DefBuckets,
		},
	)

	DurationFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidshare_external_duration_fetches_total",
			Help: "Watch page duration lookups, by result.",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry, plus connection pool
// gauges when pool is non-nil. Later calls are no-ops.
func Register(pool *pgxpool.Pool) {
	registerOnce.Do(func() {
		if pool != nil {
			prometheus.MustRegister(
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "vidshare_db_connection_pool_active",
						Help: "Number of active database connections.",
					},
					func() float64 { return float64(pool.Stat().AcquiredConns()) },
				),
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Name: "vidshare_db_connection_pool_idle",
						Help: "Number of idle database connections.",
					},
					func() float64 { return float64(pool.Stat().IdleConns()) },
				),
			)
		}

		prometheus.MustRegister(
			ModerationActions,
			ModerationRetries,
			RatingsTotal,
			RequestDuration,
			RequestsInFlight,
			CacheHits,
			CacheMisses,
			QualityRecalcDuration,
			DurationFetches,
		)
	})
}
