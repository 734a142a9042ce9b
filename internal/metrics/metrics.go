// Package metrics exposes the simulation's runway, violation, and
// cargo-presence counters as Prometheus collectors (spec §2 supplemented
// observability surface — the core's ambient stack still needs metrics
// even though the interactive dashboard itself is out of scope).
package metrics

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atcsim/atcsim/internal/monitor"
)

// Registry bundles every collector the simulation reports against. Each
// is registered against the provided *prometheus.Registry at
// construction so callers can use either an app-owned registry or an
// isolated one in tests; the concrete type (rather than the Registerer
// interface) also lets Registry serve as a prometheus.Gatherer for the
// status CLI's --metrics flag.
type Registry struct {
	reg *prometheus.Registry

	RunwayUsageTotal    *prometheus.CounterVec
	RunwayOccupancySecs *prometheus.CounterVec
	ViolationsTotal     *prometheus.CounterVec
	DeniedFlightsTotal  prometheus.Counter
	ActiveCargoFlights  prometheus.Gauge
	AVNsIssuedTotal     *prometheus.CounterVec
}

// New constructs and registers every collector against reg.
func New(reg *prometheus.Registry) *Registry {
	m := &Registry{
		reg: reg,
		RunwayUsageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atcsim",
			Subsystem: "runway",
			Name:      "usage_total",
			Help:      "Cumulative number of successful runway assignments, by runway id.",
		}, []string{"runway"}),
		RunwayOccupancySecs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atcsim",
			Subsystem: "runway",
			Name:      "occupancy_seconds_total",
			Help:      "Cumulative runway occupancy time, by runway id.",
		}, []string{"runway"}),
		ViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atcsim",
			Subsystem: "monitor",
			Name:      "violations_total",
			Help:      "Cumulative AVN count, by airline.",
		}, []string{"airline"}),
		DeniedFlightsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atcsim",
			Subsystem: "arbiter",
			Name:      "denied_flights_total",
			Help:      "Cumulative number of flights pushed to the denied-flights queue.",
		}),
		ActiveCargoFlights: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "atcsim",
			Subsystem: "controller",
			Name:      "active_cargo_flights",
			Help:      "Current count of non-terminal Cargo flights.",
		}),
		AVNsIssuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atcsim",
			Subsystem: "monitor",
			Name:      "avns_issued_total",
			Help:      "Cumulative AVN count, by aircraft kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.RunwayUsageTotal,
		m.RunwayOccupancySecs,
		m.ViolationsTotal,
		m.DeniedFlightsTotal,
		m.ActiveCargoFlights,
		m.AVNsIssuedTotal,
	)
	return m
}

// PushAVN updates the per-airline and per-kind violation counters for a
// newly-issued AVN. Implements the same shape the control package's
// AVNSink expects, so a Registry can sit directly in a sink fan-out list.
func (m *Registry) PushAVN(avn *monitor.AVN) error {
	m.ViolationsTotal.WithLabelValues(avn.AirlineName).Inc()
	m.AVNsIssuedTotal.WithLabelValues(avn.Kind.String()).Inc()
	return nil
}

// RecordDenied increments the denied-flights counter.
func (m *Registry) RecordDenied() { m.DeniedFlightsTotal.Inc() }

// SetActiveCargoFlights sets the active-cargo-flights gauge to n.
func (m *Registry) SetActiveCargoFlights(n int) { m.ActiveCargoFlights.Set(float64(n)) }

// RecordRunwayAssignment bumps the usage counter for runway id.
func (m *Registry) RecordRunwayAssignment(runwayID string) {
	m.RunwayUsageTotal.WithLabelValues(runwayID).Inc()
}

// AddRunwayOccupancy adds seconds of occupancy time for runway id.
func (m *Registry) AddRunwayOccupancy(runwayID string, seconds float64) {
	m.RunwayOccupancySecs.WithLabelValues(runwayID).Add(seconds)
}

// Gather implements prometheus.Gatherer, letting a Registry be wired
// directly into the status CLI's --metrics flag.
func (m *Registry) Gather() ([]*dto.MetricFamily, error) {
	return m.reg.Gather()
}
