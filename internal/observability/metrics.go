// Package observability exposes Prometheus metrics for long simulation
// runs. A multi-year replay takes hours; the metrics endpoint is how you
// watch it from outside without touching the output folder.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulation counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	MinutesProcessed prometheus.Counter
	PositionsOpened  *prometheus.CounterVec
	PositionsClosed  *prometheus.CounterVec
	Bankroll         prometheus.Gauge
	OpenPositions    prometheus.Gauge
}

// NewMetrics creates and registers the simulation metrics on a private
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		MinutesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_minutes_processed_total",
			Help: "Simulated minutes processed.",
		}),
		PositionsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_positions_opened_total",
			Help: "Positions opened, by direction.",
		}, []string{"direction"}),
		PositionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_positions_closed_total",
			Help: "Positions closed, by close reason.",
		}, []string{"reason"}),
		Bankroll: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sim_total_bankroll",
			Help: "Current mark-to-market bankroll.",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sim_open_positions",
			Help: "Currently open position count.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
