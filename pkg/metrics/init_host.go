package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flowviz"

// Rendered bodies range from a tiny validate report to multi-megabyte PNGs.
var responseSizeBuckets = prometheus.ExponentialBuckets(256, 4, 8)

// initHostMetrics registers the metrics owned by the serving process rather
// than by an engine: request accounting and runtime samples.
func (r *Registry) initHostMetrics() {
	factory := promauto.With(r.registry)
	requestLabels := []string{"method", "route", "status"}

	r.HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Requests served, by route pattern and status code",
	}, requestLabels)
	r.HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time from request start until the handler returned",
		Buckets:   prometheus.DefBuckets,
	}, requestLabels)
	r.HTTPRequestsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently inside a handler",
	})
	r.HTTPResponseSizeBytes = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "Bytes written in the response body",
		Buckets:   responseSizeBuckets,
	}, []string{"method", "route"})

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	r.UptimeSeconds = gauge("uptime_seconds", "Seconds since the process started")
	r.GoRoutines = gauge("goroutines", "Goroutines alive at the last sample")
	r.MemoryAllocBytes = gauge("memory_alloc_bytes", "Heap bytes allocated and not yet freed")
	r.MemorySysBytes = gauge("memory_sys_bytes", "Bytes of memory obtained from the OS")
}
