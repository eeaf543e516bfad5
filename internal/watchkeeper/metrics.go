package watchkeeper

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "watchkeeper"

// Metrics holds the Prometheus collectors for the poll loop.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal      *prometheus.CounterVec
	skippedTotal     *prometheus.CounterVec
	correctionsTotal *prometheus.CounterVec
	droppedTotal     *prometheus.CounterVec
	outcomesTotal    *prometheus.CounterVec
	cycleDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_total",
			Help:      "Completed reconciliation cycles",
		}, []string{"vessel", "mode", "advice"}),

		skippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_skipped_total",
			Help:      "Cycles skipped because the snapshot was unavailable",
		}, []string{"vessel"}),

		correctionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "corrections_total",
			Help:      "Actions generated by the safety rules",
		}, []string{"vessel"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_total",
			Help:      "Proposed actions removed during reconciliation",
		}, []string{"vessel", "reason"}),

		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_outcomes_total",
			Help:      "Dispatched actions by result",
		}, []string{"vessel", "status"}),

		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a reconciliation cycle",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"vessel"}),
	}

	m.registry.MustRegister(
		m.cyclesTotal,
		m.skippedTotal,
		m.correctionsTotal,
		m.droppedTotal,
		m.outcomesTotal,
		m.cycleDuration,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(rep *Report) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(rep.VesselID, string(rep.Mode), rep.Advice).Inc()
	m.correctionsTotal.WithLabelValues(rep.VesselID).Add(float64(len(rep.Result.Corrections())))
	for _, d := range rep.Dropped {
		m.droppedTotal.WithLabelValues(rep.VesselID, string(d.Reason)).Inc()
	}
	for _, o := range rep.Outcomes {
		m.outcomesTotal.WithLabelValues(rep.VesselID, string(o.Status)).Inc()
	}
	m.cycleDuration.WithLabelValues(rep.VesselID).Observe(rep.Duration.Seconds())
}

func (m *Metrics) skipped(vesselID string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(vesselID).Inc()
}

