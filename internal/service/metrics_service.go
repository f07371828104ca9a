package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for HTTP traffic, the draft cache, snapshot loads
// and scheduling outcomes. All methods are safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheLatency  prometheus.Histogram
	cacheWrite    prometheus.Histogram
	cacheHitRatio prometheus.Gauge
	cacheLookups  *prometheus.CounterVec
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64

	dbQueryDuration *prometheus.HistogramVec

	rejections *prometheus.CounterVec
	fallbacks  prometheus.Counter
	commits    *prometheus.CounterVec
}

// NewMetricsService registers the service collectors plus the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "draft_cache_read_seconds",
			Help:    "Latency of draft cache reads",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "draft_cache_write_seconds",
			Help:    "Latency of draft cache writes",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "draft_cache_hit_ratio",
			Help: "Share of draft cache lookups that found an entry",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draft_cache_lookups_total",
			Help: "Draft cache lookups by result",
		}, []string{"result"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduling_rejections_total",
			Help: "Scheduling operations rejected by the engine, by error kind",
		}, []string{"kind"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timezone_projection_fallbacks_total",
			Help: "Projections that fell back to the reference timezone because the target zone was unknown",
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_commits_total",
			Help: "Batch commit attempts by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheLookups,
		m.dbQueryDuration,
		m.rejections, m.fallbacks, m.commits,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics under the route template.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation records a draft cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Add(1)
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheMisses.Add(1)
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	m.cacheHitRatio.Set(float64(hits) / float64(hits+misses))
}

// ObserveCacheWrite tracks draft cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordRejection counts an engine rejection by kind.
func (m *MetricsService) RecordRejection(kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(kind).Inc()
}

// RecordProjectionFallback counts a projection into an unknown timezone.
func (m *MetricsService) RecordProjectionFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// RecordCommit counts a commit attempt; outcome is "committed", "rejected", "stale" or "error".
func (m *MetricsService) RecordCommit(outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
}
