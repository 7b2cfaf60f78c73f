package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the engine. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry bookkeeping.
type Metrics struct {
	triggered   *prometheus.CounterVec
	escalations prometheus.Counter
	active      prometheus.Gauge
}

// NewMetrics creates and registers engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		triggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alerting_alerts_triggered_total",
			Help: "Alerts created, by type and severity.",
		}, []string{"type", "severity"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alerting_escalations_total",
			Help: "Escalation levels fired.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alerting_active_alerts",
			Help: "Alerts currently in a non-terminal status.",
		}),
	}
	reg.MustRegister(m.triggered, m.escalations, m.active)
	return m
}

func (m *Metrics) alertTriggered(t AlertType, s Severity) {
	if m == nil {
		return
	}
	m.triggered.WithLabelValues(string(t), string(s)).Inc()
	m.active.Inc()
}

func (m *Metrics) alertClosed() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Metrics) escalationFired() {
	if m == nil {
		return
	}
	m.escalations.Inc()
}
