package analytics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's cumulative, process-lifetime Prometheus
// collectors, per SPEC_FULL.md §4.9 — "complementing the windowed KPIs",
// grounded on the same temporal-wms-wms-platform/shared/pkg/metrics shape
// used by internal/eventbus's Metrics.
type Metrics struct {
	events *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roibot",
			Subsystem: "analytics",
			Name:      "events_observed_total",
			Help:      "Total events observed by the analytics engine, by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}
