// Package metrics provides the Prometheus metrics exported by vkgeo.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics contains the counters and histograms for API calls, cache lookups and
// locate outcomes. All methods are safe to call on a nil receiver.
type Metrics struct {
	APIRequests    *prometheus.CounterVec
	APIDuration    *prometheus.HistogramVec
	PagesFetched   *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	CacheWrites    *prometheus.CounterVec
	Outcomes       *prometheus.CounterVec
	LocateDuration prometheus.Histogram
	RecordsBuilt   prometheus.Counter
	registry       *prometheus.Registry
}

// New creates the metrics and registers them with registry.
// A nil registry gets a fresh one.
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register vkgeo metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vkgeo_api_requests_total",
		Help: "Total number of VK API calls by method and result.",
	}, []string{"method", "result"})

	m.APIDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vkgeo_api_request_duration_seconds",
		Help:    "Duration of VK API calls in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"method"})

	m.PagesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vkgeo_pages_fetched_total",
		Help: "Total number of pages received from paginated methods.",
	}, []string{"method"})

	m.CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vkgeo_cache_lookups_total",
		Help: "Total number of cache lookups by result.",
	}, []string{"result"})

	m.CacheWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vkgeo_cache_writes_total",
		Help: "Total number of cache writes by result.",
	}, []string{"result"})

	m.Outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vkgeo_locate_outcomes_total",
		Help: "Total number of locate requests by outcome status.",
	}, []string{"status"})

	m.LocateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vkgeo_locate_duration_seconds",
		Help:    "Duration of locate requests in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	m.RecordsBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vkgeo_records_built_total",
		Help: "Total number of location records built from enriched photos.",
	})
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAPIRequest records one VK API call
func (m *Metrics) ObserveAPIRequest(method string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.APIRequests.WithLabelValues(method, result).Inc()
	m.APIDuration.WithLabelValues(method).Observe(d.Seconds())
}

// IncrementPages increases the page counter for method by one
func (m *Metrics) IncrementPages(method string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(method).Inc()
}

// ObserveCacheLookup records a cache lookup result (CacheHit, CacheMiss or CacheError)
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite records a cache write
func (m *Metrics) ObserveCacheWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CacheWrites.WithLabelValues(result).Inc()
}

// ObserveOutcome records the final status of a locate request
func (m *Metrics) ObserveOutcome(status string, records int, d time.Duration) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(status).Inc()
	m.LocateDuration.Observe(d.Seconds())
	m.RecordsBuilt.Add(float64(records))
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.APIRequests.Collect(ch)
	m.APIDuration.Collect(ch)
	m.PagesFetched.Collect(ch)
	m.CacheLookups.Collect(ch)
	m.CacheWrites.Collect(ch)
	m.Outcomes.Collect(ch)
	ch <- m.LocateDuration
	ch <- m.RecordsBuilt
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.APIRequests.Describe(ch)
	m.APIDuration.Describe(ch)
	m.PagesFetched.Describe(ch)
	m.CacheLookups.Describe(ch)
	m.CacheWrites.Describe(ch)
	m.Outcomes.Describe(ch)
	ch <- m.LocateDuration.Desc()
	ch <- m.RecordsBuilt.Desc()
}
