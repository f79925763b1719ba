package live

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts countdown sockets. A nil *Metrics records nothing.
type Metrics struct {
	connections *prometheus.GaugeVec
	messages    *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		connections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "igacmun_live_connections",
			Help: "Number of open countdown WebSocket connections",
		}, []string{"section"}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "igacmun_live_messages_total",
			Help: "Total number of countdown messages queued for clients",
		}, []string{"section"}),
	}
}

func (m *Metrics) connectionOpened(section string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(section).Inc()
}

func (m *Metrics) connectionClosed(section string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(section).Dec()
}

func (m *Metrics) messageSent(section string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(section).Inc()
}
