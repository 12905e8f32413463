package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains process-level lifecycle metrics shared by every cache
// and signal source in the process.
type Metrics struct {
	SignalsReceived  *prometheus.CounterVec
	SignalsPublished *prometheus.CounterVec
	CachePurges      *prometheus.CounterVec
	MemoryPressure   prometheus.Gauge
	NATSConnected    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		SignalsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcache",
				Subsystem: "lifecycle",
				Name:      "signals_received_total",
				Help:      "Total number of lifecycle signals received",
			},
			[]string{"source", "signal"},
		),
		SignalsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcache",
				Subsystem: "lifecycle",
				Name:      "signals_published_total",
				Help:      "Total number of lifecycle signals published to NATS",
			},
			[]string{"signal"},
		),
		CachePurges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcache",
				Subsystem: "lifecycle",
				Name:      "cache_purges_total",
				Help:      "Total number of whole-cache purges triggered by lifecycle signals",
			},
			[]string{"signal"},
		),
		MemoryPressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "semcache",
			Subsystem: "lifecycle",
			Name:      "memory_pressure_avg10",
			Help:      "Last observed PSI memory 'some avg10' value",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "semcache",
			Subsystem: "nats",
			Name:      "connected",
			Help:      "NATS connection status (0=disconnected, 1=connected)",
		}),
	}
}

// RecordSignal counts a signal received from the named source.
func (m *Metrics) RecordSignal(source, signal string) {
	m.SignalsReceived.WithLabelValues(source, signal).Inc()
}

// RecordPublish counts a signal published to NATS.
func (m *Metrics) RecordPublish(signal string) {
	m.SignalsPublished.WithLabelValues(signal).Inc()
}

// RecordPurge counts a cache purge triggered by a signal.
func (m *Metrics) RecordPurge(signal string) {
	m.CachePurges.WithLabelValues(signal).Inc()
}

// SetNATSConnected records the NATS connection state.
func (m *Metrics) SetNATSConnected(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
		return
	}
	m.NATSConnected.Set(0)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SignalsReceived,
		m.SignalsPublished,
		m.CachePurges,
		m.MemoryPressure,
		m.NATSConnected,
	}
}
