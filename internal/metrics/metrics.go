// Package metrics exposes Prometheus counters and histograms for the
// translator, backend pool and session layers, in the same style tqdbproxy
// used for its own query/cache metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TranslationLatency tracks SQL translation time by classification.
	TranslationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "irispgwire_translation_latency_seconds",
			Help:    "Time to translate a SQL statement into IRIS SQL",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
		},
		[]string{"classification"},
	)

	// TranslationSLAViolations counts translations that exceeded the 5ms budget.
	TranslationSLAViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "irispgwire_translation_sla_violations_total",
			Help: "Number of translations that exceeded the 5ms latency budget",
		},
	)

	// TranslationCacheHits / Misses track the translator's LRU cache.
	TranslationCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "irispgwire_translation_cache_hits_total",
		Help: "Translator cache hits",
	})
	TranslationCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "irispgwire_translation_cache_misses_total",
		Help: "Translator cache misses",
	})

	// PoolAcquireLatency tracks time to lease a backend connection.
	PoolAcquireLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "irispgwire_pool_acquire_latency_seconds",
			Help:    "Time to acquire a backend connection lease",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PoolInUse / PoolIdle gauges mirror the invariant in_use+idle<=size+overflow.
	PoolInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "irispgwire_pool_in_use",
		Help: "Backend connections currently leased",
	})
	PoolIdle = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "irispgwire_pool_idle",
		Help: "Backend connections idle in the pool",
	})
	PoolExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "irispgwire_pool_exhausted_total",
		Help: "Number of times a lease request failed with ResourceExhausted",
	})
	PoolHealthDegraded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "irispgwire_pool_degraded",
		Help: "1 when the pool health state is Degraded, else 0",
	})

	// SessionsActive counts live PostgreSQL-facing sessions.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "irispgwire_sessions_active",
		Help: "Number of currently connected sessions",
	})

	// QueryTotal counts statements executed by classification and outcome.
	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irispgwire_query_total",
			Help: "Total statements routed through the gateway",
		},
		[]string{"classification", "outcome"},
	)

	// CopyRows counts rows transferred by COPY direction.
	CopyRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irispgwire_copy_rows_total",
			Help: "Rows transferred via COPY",
		},
		[]string{"direction"},
	)

	// CancelRequests counts out-of-band cancellation requests by outcome.
	CancelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irispgwire_cancel_requests_total",
			Help: "Cancellation requests received, by outcome",
		},
		[]string{"outcome"},
	)

	once sync.Once
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			TranslationLatency,
			TranslationSLAViolations,
			TranslationCacheHits,
			TranslationCacheMisses,
			PoolAcquireLatency,
			PoolInUse,
			PoolIdle,
			PoolExhausted,
			PoolHealthDegraded,
			SessionsActive,
			QueryTotal,
			CopyRows,
			CancelRequests,
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
