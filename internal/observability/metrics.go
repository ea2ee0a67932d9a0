// Package observability wires the Prometheus registry shared by pixalb components.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/pixalb/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Gallery  *metrics.GalleryMetrics
	Pixabay  *metrics.PixabayMetrics
	MQTT     *metrics.MQTTMetrics
}

// NewMetrics creates a private registry with process and Go runtime collectors
// plus every pixalb collector.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	galleryMetrics, err := metrics.NewGalleryMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create gallery metrics: %w", err)
	}
	pixabayMetrics, err := metrics.NewPixabayMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pixabay metrics: %w", err)
	}
	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Gallery:  galleryMetrics,
		Pixabay:  pixabayMetrics,
		MQTT:     mqttMetrics,
	}, nil
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
