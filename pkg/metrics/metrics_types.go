package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every flowviz metric on its own Prometheus registry
type Registry struct {
	// Engine metrics
	EngineTicksTotal        *prometheus.CounterVec
	EngineTickDuration      prometheus.Histogram
	EngineAlpha             prometheus.Gauge
	EngineKineticEnergy     prometheus.Gauge
	EngineDrawCommands      prometheus.Gauge
	EngineNodes             prometheus.Gauge
	EngineLinks             prometheus.Gauge
	EngineNumericRecoveries prometheus.Counter
	EnginesActive           prometheus.Gauge

	// Graph construction metrics
	GraphConstructionErrors *prometheus.CounterVec
	GraphsBuiltTotal        prometheus.Counter

	// Interaction metrics
	InteractionEventsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initEngineMetrics()
	r.initInteractionMetrics()
	r.initHostMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
