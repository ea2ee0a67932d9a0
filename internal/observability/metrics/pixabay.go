package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PixabayMetrics tracks calls made to the Pixabay API.
type PixabayMetrics struct {
	Requests            *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	ResponseCacheHits   prometheus.Counter
	ResponseCacheMisses prometheus.Counter
}

// NewPixabayMetrics creates and registers the Pixabay collectors.
func NewPixabayMetrics(registry prometheus.Registerer) (*PixabayMetrics, error) {
	m := &PixabayMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pixabay metrics: %w", err)
	}
	return m, nil
}

func (m *PixabayMetrics) initMetrics() {
	m.Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pixalb_pixabay_requests_total",
		Help: "Pixabay API requests by HTTP status, or \"error\" for transport failures.",
	}, []string{"status"})

	m.RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pixalb_pixabay_request_duration_seconds",
		Help:    "Pixabay API round-trip latency.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	m.ResponseCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pixalb_pixabay_response_cache_hits_total",
		Help: "Requests answered from the in-memory response cache.",
	})

	m.ResponseCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pixalb_pixabay_response_cache_misses_total",
		Help: "Requests that had to call the API.",
	})
}

// RecordRequest counts a finished request. statusCode 0 means a transport failure.
func (m *PixabayMetrics) RecordRequest(statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	status := ResultError
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.Requests.WithLabelValues(status).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

func (m *PixabayMetrics) IncrementResponseCacheHits() {
	if m == nil {
		return
	}
	m.ResponseCacheHits.Inc()
}

func (m *PixabayMetrics) IncrementResponseCacheMisses() {
	if m == nil {
		return
	}
	m.ResponseCacheMisses.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *PixabayMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
	ch <- m.RequestDuration
	ch <- m.ResponseCacheHits
	ch <- m.ResponseCacheMisses
}

// Describe implements the prometheus.Collector interface.
func (m *PixabayMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
	ch <- m.RequestDuration.Desc()
	ch <- m.ResponseCacheHits.Desc()
	ch <- m.ResponseCacheMisses.Desc()
}
