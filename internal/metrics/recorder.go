// Package metrics records generation and tracker sync outcomes with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics sink used by the services
type Recorder interface {
	ObserveGeneration(kind, status string, items int, duration time.Duration)
	ObserveSync(kind, status string)
	ObserveRequest(method, route string, status int, duration time.Duration)
}

// PrometheusRecorder implements Recorder on a private registry
type PrometheusRecorder struct {
	registry           *prometheus.Registry
	generationsTotal   *prometheus.CounterVec
	generatedItems     *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	syncTotal          *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with its own registry
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requirement_analyzer_generations_total",
				Help: "Generation requests by artifact kind and outcome",
			},
			[]string{"kind", "status"},
		),
		generatedItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requirement_analyzer_generated_items_total",
				Help: "Artifacts returned by successful generation requests",
			},
			[]string{"kind"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "requirement_analyzer_generation_duration_seconds",
				Help:    "Duration of generation requests in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		syncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requirement_analyzer_tracker_sync_total",
				Help: "Tracker sync attempts by artifact kind and outcome",
			},
			[]string{"kind", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "requirement_analyzer_http_request_duration_seconds",
				Help:    "Duration of backend requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "code"},
		),
	}
}

// ObserveGeneration records a finished generation request
func (p *PrometheusRecorder) ObserveGeneration(kind, status string, items int, duration time.Duration) {
	p.generationsTotal.WithLabelValues(kind, status).Inc()
	p.generationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if items > 0 {
		p.generatedItems.WithLabelValues(kind).Add(float64(items))
	}
}

// ObserveSync records one per-item tracker sync outcome
func (p *PrometheusRecorder) ObserveSync(kind, status string) {
	p.syncTotal.WithLabelValues(kind, status).Inc()
}

// ObserveRequest records one backend round trip
func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, route, statusLabel(status)).Observe(duration.Seconds())
}

// WriteTextfile writes all metrics to path in the text exposition format
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

func statusLabel(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Nop discards everything
type Nop struct{}

func (Nop) ObserveGeneration(string, string, int, time.Duration) {}
func (Nop) ObserveSync(string, string)                            {}
func (Nop) ObserveRequest(string, string, int, time.Duration)     {}
