package eventbus

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the bus's Prometheus collectors, grounded on the
// per-service Metrics struct shape used for latency/throughput tracking in
// the retrieved pack's WMS platform, scaled down to the bus's own
// concerns: per-type counts and total latency (spec.md §4.3's "The bus
// records per-type counts and total latency for analytics").
type Metrics struct {
	queued          *prometheus.CounterVec
	dispatched      *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roibot",
			Subsystem: "eventbus",
			Name:      "events_queued_total",
			Help:      "Total events enqueued, by type.",
		}, []string{"type"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roibot",
			Subsystem: "eventbus",
			Name:      "events_dispatched_total",
			Help:      "Total events dispatched to at least zero subscribers, by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roibot",
			Subsystem: "eventbus",
			Name:      "events_dropped_total",
			Help:      "Total events dropped by middleware, by type and reason.",
		}, []string{"type", "reason"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roibot",
			Subsystem: "eventbus",
			Name:      "handler_failures_total",
			Help:      "Total subscriber handler panics caught, by event type.",
		}, []string{"type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roibot",
			Subsystem: "eventbus",
			Name:      "dispatch_latency_seconds",
			Help:      "Dispatch latency per event (middleware + all matching handlers), by type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.queued, m.dispatched, m.dropped, m.handlerFailures, m.latency)
	}
	return m
}
