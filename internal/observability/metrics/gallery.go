package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GalleryMetrics tracks cache decisions and request outcomes of the gallery store.
// All methods are safe on a nil receiver.
type GalleryMetrics struct {
	CacheLookups      *prometheus.CounterVec
	RemoteFetches     *prometheus.CounterVec
	WritebackFailures prometheus.Counter
	StaleResults      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	InFlight          prometheus.Gauge
}

// NewGalleryMetrics creates and registers the gallery collectors.
func NewGalleryMetrics(registry prometheus.Registerer) (*GalleryMetrics, error) {
	m := &GalleryMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register gallery metrics: %w", err)
	}
	return m, nil
}

func (m *GalleryMetrics) initMetrics() {
	m.CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pixalb_gallery_cache_lookups_total",
		Help: "Local cache lookups by channel and outcome.",
	}, []string{"channel", "result"})

	m.RemoteFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pixalb_gallery_remote_fetches_total",
		Help: "Remote fallbacks triggered by cache misses.",
	}, []string{"result"})

	m.WritebackFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pixalb_gallery_writeback_failures_total",
		Help: "Remote results that could not be written to the local cache.",
	})

	m.StaleResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pixalb_gallery_stale_results_total",
		Help: "Results dropped because a newer request was started on the channel.",
	}, []string{"channel"})

	m.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pixalb_gallery_request_duration_seconds",
		Help:    "Time from request start to terminal state.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"channel"})

	m.InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pixalb_gallery_requests_in_flight",
		Help: "Requests whose worker has not finished.",
	})
}

// RecordCacheLookup counts one lookup outcome (see the Lookup constants).
func (m *GalleryMetrics) RecordCacheLookup(channel, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(channel, result).Inc()
}

// RecordRemoteFetch counts one remote fallback.
func (m *GalleryMetrics) RecordRemoteFetch(err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.RemoteFetches.WithLabelValues(result).Inc()
}

func (m *GalleryMetrics) IncrementWritebackFailures() {
	if m == nil {
		return
	}
	m.WritebackFailures.Inc()
}

func (m *GalleryMetrics) IncrementStaleResults(channel string) {
	if m == nil {
		return
	}
	m.StaleResults.WithLabelValues(channel).Inc()
}

func (m *GalleryMetrics) ObserveRequestDuration(channel string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *GalleryMetrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// Collect implements the prometheus.Collector interface.
func (m *GalleryMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CacheLookups.Collect(ch)
	m.RemoteFetches.Collect(ch)
	ch <- m.WritebackFailures
	m.StaleResults.Collect(ch)
	m.RequestDuration.Collect(ch)
	ch <- m.InFlight
}

// Describe implements the prometheus.Collector interface.
func (m *GalleryMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CacheLookups.Describe(ch)
	m.RemoteFetches.Describe(ch)
	ch <- m.WritebackFailures.Desc()
	m.StaleResults.Describe(ch)
	m.RequestDuration.Describe(ch)
	ch <- m.InFlight.Desc()
}
