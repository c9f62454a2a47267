package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
)

const namespace = "persona_panel"

// Metrics records analysis activity in its own prometheus registry
type Metrics struct {
	registry *prometheus.Registry

	personaCalls    *prometheus.CounterVec
	personaDuration prometheus.Histogram
	jobsFinished    *prometheus.CounterVec
	jobsActive      prometheus.Gauge
}

// New creates the collectors and registers them along with the process and Go runtime collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		personaCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persona_calls_total",
			Help:      "Personas processed, by outcome.",
		}, []string{"outcome"}),
		personaDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persona_duration_seconds",
			Help:      "Time spent obtaining one persona's answers.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Analysis jobs that reached a terminal state.",
		}, []string{"state"}),
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Analysis jobs currently running.",
		}),
	}

	m.registry.MustRegister(
		m.personaCalls,
		m.personaDuration,
		m.jobsFinished,
		m.jobsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePersona counts one persona by outcome
func (m *Metrics) ObservePersona(outcome string, elapsed time.Duration) {
	m.personaCalls.WithLabelValues(outcome).Inc()
	m.personaDuration.Observe(elapsed.Seconds())
}

// ObserveJob tracks job state transitions
func (m *Metrics) ObserveJob(state entities.JobState) {
	switch {
	case state == entities.JobStateRunning:
		m.jobsActive.Inc()
	case state.Finished():
		m.jobsActive.Dec()
		m.jobsFinished.WithLabelValues(string(state)).Inc()
	}
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
