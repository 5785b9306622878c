// Package metrics registers the Prometheus collectors that observe a
// nesting session on a private registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector a running session reports to.
type Metrics struct {
	Registry *prometheus.Registry

	sessionsStarted   prometheus.Counter
	sessionsFailed    prometheus.Counter
	shapesUnplaced    prometheus.Counter
	generationsRun    prometheus.Counter
	bestFitness       prometheus.Gauge
	generationLatency prometheus.Histogram
	sessionLatency    prometheus.Histogram
}

// New creates and registers the nesting engine's metrics against a
// fresh registry, rather than the global default one, so a process
// embedding multiple sessions (or a test binary constructing Metrics
// repeatedly) never hits promauto's duplicate-registration panic.
func New() *Metrics {
	const namespace = "nester"
	const subsystem = "session"

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_started_total", Help: "Total number of run_nest sessions started",
		}),
		sessionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_failed_total", Help: "Total number of run_nest sessions that returned an error",
		}),
		shapesUnplaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "shapes_unplaced_total", Help: "Total number of shapes left unplaced across all sessions",
		}),
		generationsRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "generations_run_total", Help: "Total number of GA generations evaluated",
		}),
		bestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "best_fitness", Help: "Fitness of the best solution in the most recently completed session",
		}),
		generationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "generation_duration_seconds", Help: "Wall time spent per GA generation",
			Buckets: prometheus.DefBuckets,
		}),
		sessionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "session_duration_seconds", Help: "Wall time spent per completed run_nest call",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// ObserveSessionStart records a new session beginning.
func (m *Metrics) ObserveSessionStart() { m.sessionsStarted.Inc() }

// ObserveSessionEnd records a session's outcome and duration.
func (m *Metrics) ObserveSessionEnd(err error, unplaced int, fitness float64, elapsed time.Duration) {
	if err != nil {
		m.sessionsFailed.Inc()
		return
	}
	m.shapesUnplaced.Add(float64(unplaced))
	m.bestFitness.Set(fitness)
	m.sessionLatency.Observe(elapsed.Seconds())
}

// ObserveGeneration records one completed GA generation.
func (m *Metrics) ObserveGeneration(elapsed time.Duration) {
	m.generationsRun.Inc()
	m.generationLatency.Observe(elapsed.Seconds())
}
