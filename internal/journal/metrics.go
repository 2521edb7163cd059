package journal

import "github.com/prometheus/client_golang/prometheus"

// Metrics registers the journal's Prometheus counters, following the
// teacher's registration-at-construction style rather than package-level
// globals so tests can build an isolated registry.
type Metrics struct {
	eventsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns a Metrics bound to reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scalper",
			Subsystem: "journal",
			Name:      "events_total",
			Help:      "Count of journal events written, by event type and severity.",
		}, []string{"event_type", "severity"}),
	}
	reg.MustRegister(m.eventsTotal)
	return m
}

// ObserveEvent increments the events_total counter for eventType/severity.
func (m *Metrics) ObserveEvent(eventType, severity string) {
	m.eventsTotal.WithLabelValues(eventType, severity).Inc()
}
