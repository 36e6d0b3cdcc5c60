package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.EngineTicksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowviz_engine_ticks_total",
			Help: "Engine ticks by solver phase (active or idle)",
		},
		[]string{"phase"},
	)

	r.EngineTickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowviz_engine_tick_duration_seconds",
			Help:    "Wall time of one engine tick",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1},
		},
	)

	r.EngineAlpha = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowviz_engine_alpha",
			Help: "Solver temperature after the last tick",
		},
	)

	r.EngineKineticEnergy = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowviz_engine_kinetic_energy",
			Help: "Sum of squared node velocities after the last tick",
		},
	)

	r.EngineDrawCommands = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowviz_engine_draw_commands",
			Help: "Draw commands in the last emitted frame",
		},
	)

	r.EngineNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowviz_engine_nodes",
			Help: "Nodes in the most recently built graph",
		},
	)

	r.EngineLinks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowviz_engine_links",
			Help: "Links in the most recently built graph",
		},
	)

	r.EngineNumericRecoveries = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flowviz_engine_numeric_recoveries_total",
			Help: "Nodes rolled back after a non-finite position or velocity",
		},
	)

	r.EnginesActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowviz_engines_active",
			Help: "Engines constructed and not yet disposed",
		},
	)

	r.GraphConstructionErrors = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowviz_graph_construction_errors_total",
			Help: "Rejected graph defects by reason",
		},
		[]string{"reason"},
	)

	r.GraphsBuiltTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flowviz_graphs_built_total",
			Help: "Graphs accepted at construction",
		},
	)
}

func (r *Registry) initInteractionMetrics() {
	r.InteractionEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowviz_interaction_events_total",
			Help: "Interaction state machine transitions by event",
		},
		[]string{"event"},
	)
}
