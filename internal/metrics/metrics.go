// Package metrics exposes launcher counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the launcher's collectors on a private registry.
type Metrics struct {
	r               *prometheus.Registry
	Passes          prometheus.Counter
	TopologyChanges prometheus.Counter
	Spawns          *prometheus.CounterVec
	Selected        *prometheus.GaugeVec
	Monitors        prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		r: r,
		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monlaunch_passes_total",
			Help: "resolution passes over a monitor snapshot",
		}),
		TopologyChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monlaunch_topology_changes_total",
			Help: "snapshots that differed from the previous pass",
		}),
		Spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monlaunch_spawns_total",
			Help: "process launches by rule and result",
		}, []string{"rule", "result"}),
		Selected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "monlaunch_selected_monitors",
			Help: "monitors selected by each rule in the last pass",
		}, []string{"rule"}),
		Monitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monlaunch_monitors",
			Help: "monitors in the last snapshot",
		}),
	}
	r.MustRegister(m.Passes, m.TopologyChanges, m.Spawns, m.Selected, m.Monitors)
	return m
}

// Gatherer returns the registry for reading.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.r
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{
		Registry:          m.r,
		EnableOpenMetrics: true,
	})
}
