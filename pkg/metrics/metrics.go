// Package metrics exposes engine, interaction, HTTP and process metrics
// through Prometheus.
package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"time"
)

// TickSample is what one engine tick reports
type TickSample struct {
	Active        bool
	Duration      time.Duration
	Alpha         float64
	KineticEnergy float64
	DrawCommands  int
	Recoveries    int
}

// RecordTick records one engine tick
func (r *Registry) RecordTick(s TickSample) {
	phase := "idle"
	if s.Active {
		phase = "active"
	}
	r.EngineTicksTotal.WithLabelValues(phase).Inc()
	r.EngineTickDuration.Observe(s.Duration.Seconds())
	r.EngineAlpha.Set(s.Alpha)
	r.EngineKineticEnergy.Set(s.KineticEnergy)
	r.EngineDrawCommands.Set(float64(s.DrawCommands))
	if s.Recoveries > 0 {
		r.EngineNumericRecoveries.Add(float64(s.Recoveries))
	}
}

// RecordGraphBuilt records an accepted graph and marks an engine active
func (r *Registry) RecordGraphBuilt(nodes, links int) {
	r.GraphsBuiltTotal.Inc()
	r.EngineNodes.Set(float64(nodes))
	r.EngineLinks.Set(float64(links))
	r.EnginesActive.Inc()
}

// RecordEngineDisposed marks an engine torn down
func (r *Registry) RecordEngineDisposed() {
	r.EnginesActive.Dec()
}

// RecordConstructionErrors counts each rejected defect by reason
func (r *Registry) RecordConstructionErrors(reasons []string) {
	for _, reason := range reasons {
		r.GraphConstructionErrors.WithLabelValues(reason).Inc()
	}
}

// RecordInteractionEvent counts an interaction transition
func (r *Registry) RecordInteractionEvent(event string) {
	r.InteractionEventsTotal.WithLabelValues(event).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// routeLabel is the ServeMux pattern that matched the request. Requests
// that matched nothing share one label so stray paths cannot grow the
// series count.
func routeLabel(req *http.Request) string {
	if req.Pattern == "" {
		return "unmatched"
	}
	return req.Pattern
}

// UpdateSystemMetrics samples uptime and Go runtime statistics
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// Middleware records request accounting for next. It must wrap the
// ServeMux itself so the matched pattern is visible after dispatch.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		r.HTTPRequestsInFlight.Inc()
		defer r.HTTPRequestsInFlight.Dec()

		wrapper := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, req)

		route := routeLabel(req)
		r.RecordHTTPRequest(req.Method, route, strconv.Itoa(wrapper.statusCode), time.Since(start))
		r.HTTPResponseSizeBytes.WithLabelValues(req.Method, route).Observe(float64(wrapper.bytesWritten))
	})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *responseRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}
