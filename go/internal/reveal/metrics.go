package reveal

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects gate activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	activeGates prometheus.Gauge
	ticks       *prometheus.CounterVec
	updates     *prometheus.CounterVec
	reveals     *prometheus.CounterVec

	registerOnce sync.Once
}

// NewMetrics creates a collector and registers it with registry.
// A nil registry leaves the collectors unregistered, which tests rely on.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.Register(registry)
	return m
}

// Register creates the collectors on registry. Only the first call has any effect.
func (m *Metrics) Register(registry prometheus.Registerer) {
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)
		m.activeGates = factory.NewGauge(prometheus.GaugeOpts{
			Name: "igacmun_reveal_active_gates",
			Help: "Number of reveal gates currently polling",
		})
		m.ticks = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "igacmun_reveal_ticks_total",
			Help: "Total number of countdown evaluations performed by gates",
		}, []string{"section"})
		m.updates = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "igacmun_reveal_snapshot_updates_total",
			Help: "Total number of ticks that produced a changed snapshot",
		}, []string{"section"})
		m.reveals = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "igacmun_reveal_transitions_total",
			Help: "Total number of gates that transitioned to revealed",
		}, []string{"section"})
	})
}

func (m *Metrics) gateStarted() {
	if m == nil || m.activeGates == nil {
		return
	}
	m.activeGates.Inc()
}

func (m *Metrics) gateStopped() {
	if m == nil || m.activeGates == nil {
		return
	}
	m.activeGates.Dec()
}

func (m *Metrics) tick(section string, changed bool) {
	if m == nil || m.ticks == nil {
		return
	}
	m.ticks.WithLabelValues(section).Inc()
	if changed {
		m.updates.WithLabelValues(section).Inc()
	}
}

func (m *Metrics) revealed(section string) {
	if m == nil || m.reveals == nil {
		return
	}
	m.reveals.WithLabelValues(section).Inc()
}
