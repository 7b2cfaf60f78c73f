package notify

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/driveloop/driveloop/internal/alerting"
)

// Metrics counts delivery outcomes per channel. A nil *Metrics records
// nothing.
type Metrics struct {
	sent   *prometheus.CounterVec
	failed *prometheus.CounterVec
}

// NewMetrics creates and registers delivery metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_deliveries_total",
			Help: "Successful notification deliveries, by channel.",
		}, []string{"channel"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_delivery_failures_total",
			Help: "Failed notification deliveries, by channel.",
		}, []string{"channel"}),
	}
	reg.MustRegister(m.sent, m.failed)
	return m
}

func (m *Metrics) deliverySent(ch alerting.Channel) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(string(ch)).Inc()
}

func (m *Metrics) deliveryFailed(ch alerting.Channel) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(string(ch)).Inc()
}
