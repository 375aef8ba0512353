package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

const metricsNamespace = "leads_portal"

// MetricsService owns the Prometheus registry and keeps running totals for the health payload.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration  *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	cacheLatency  *prometheus.HistogramVec
	googleCalls   *prometheus.CounterVec
	rowsProcessed *prometheus.CounterVec

	requests      atomic.Uint64
	requestNanos  atomic.Uint64
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	googleTotal   atomic.Uint64
	googleFailure atomic.Uint64
}

// NewMetricsService registers the portal collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by entry kind and result.",
		}, []string{"kind", "result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_operation_seconds",
			Help:      "Redis round trip per cache operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"op"}),
		googleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "google_api_calls_total",
			Help:      "Google Drive and Sheets calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		rowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "spreadsheet_rows_processed_total",
			Help:      "Source rows consumed by the entry workflow.",
		}, []string{"action"}),
	}

	m.registry.MustRegister(
		m.httpDuration,
		m.cacheLookups,
		m.cacheLatency,
		m.googleCalls,
		m.rowsProcessed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one finished request under its route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheLookup counts a read against one kind of cache entry.
func (m *MetricsService) RecordCacheLookup(kind string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
}

// ObserveCacheWrite tracks set and delete round trips.
func (m *MetricsService) ObserveCacheWrite(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordGoogleCall counts a provider call. outcome is "ok" or an error reason.
func (m *MetricsService) RecordGoogleCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.googleCalls.WithLabelValues(operation, outcome).Inc()
	m.googleTotal.Add(1)
	if outcome != "ok" {
		m.googleFailure.Add(1)
	}
}

// RecordRow counts rows moving through the entry workflow.
func (m *MetricsService) RecordRow(action string) {
	if m == nil {
		return
	}
	m.rowsProcessed.WithLabelValues(action).Inc()
}

// Snapshot summarises the running totals for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	snap := models.SystemMetrics{Goroutines: runtime.NumGoroutine(), GeneratedAt: time.Now().UTC()}
	if m == nil {
		return snap
	}

	snap.CacheHits = m.cacheHits.Load()
	snap.CacheMisses = m.cacheMisses.Load()
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRatio = float64(snap.CacheHits) / float64(lookups)
	}
	snap.RequestsTotal = m.requests.Load()
	if snap.RequestsTotal > 0 {
		snap.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(snap.RequestsTotal) / float64(time.Millisecond)
	}
	snap.GoogleCallsTotal = m.googleTotal.Load()
	snap.GoogleCallFailures = m.googleFailure.Load()
	return snap
}
