package monitor

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
)

// sampleWindow is the number of recent speed samples kept per aircraft for
// the rapid-change check (spec §4.5: "last 10 samples").
const sampleWindow = 10

// rapidChangeThreshold is the mean-absolute-delta, in km/h, above which a
// rapid speed change is itself a violation (spec §4.5).
const rapidChangeThreshold = 50.0

// violator is the per-aircraft sample history and per-phase duplicate
// suppression state.
type violator struct {
	samples        []float64
	violatedPhases map[aircraft.Phase]bool
}

func newViolator() *violator {
	return &violator{violatedPhases: make(map[aircraft.Phase]bool)}
}

func (v *violator) push(speed float64) {
	v.samples = append(v.samples, speed)
	if len(v.samples) > sampleWindow {
		v.samples = v.samples[len(v.samples)-sampleWindow:]
	}
}

// meanAbsDelta returns the mean absolute difference between consecutive
// samples in the current window, or 0 if fewer than two samples exist.
func (v *violator) meanAbsDelta() float64 {
	if len(v.samples) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(v.samples); i++ {
		sum += math.Abs(v.samples[i] - v.samples[i-1])
	}
	return sum / float64(len(v.samples)-1)
}

// SpeedMonitor watches every active aircraft's speed against its current
// phase's bound, issuing an AVN on the first violation of a given phase per
// aircraft (duplicate suppression), plus a separate rapid-change check
// (spec §4.5). Adapted from the teacher's single-responsibility calculator
// pass, generalized from a stateless aggregate formula to a stateful,
// per-aircraft watcher with its own issued-AVN ledger.
type SpeedMonitor struct {
	mu sync.Mutex

	nextID     int
	violators  map[string]*violator
	avns       map[int]*AVN
	byFlightID map[string][]int

	logger *slog.Logger
}

// New constructs an empty SpeedMonitor with its AVN id sequence starting at
// 1000 (spec §4.5).
func New(logger *slog.Logger) *SpeedMonitor {
	return &SpeedMonitor{
		nextID:     1000,
		violators:  make(map[string]*violator),
		avns:       make(map[int]*AVN),
		byFlightID: make(map[string][]int),
		logger:     logger,
	}
}

func (m *SpeedMonitor) violatorFor(aircraftID string) *violator {
	v, ok := m.violators[aircraftID]
	if !ok {
		v = newViolator()
		m.violators[aircraftID] = v
	}
	return v
}

// Monitor samples the aircraft's current speed against its current phase's
// bound. It issues at most one AVN per call: a bound violation takes
// precedence over a rapid-change violation, and a given (aircraft, phase)
// pair is only ever billed once (spec §4.5 duplicate suppression).
// Returns the newly-issued AVN, or nil if no violation warranted one.
func (m *SpeedMonitor) Monitor(ac *aircraft.Aircraft, airlineName string, flightID string, now time.Time) *AVN {
	phase := ac.Phase()
	speed := ac.Speed()
	bound := aircraft.BoundFor(phase)

	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.violatorFor(ac.ID())
	v.push(speed)

	if v.violatedPhases[phase] {
		return nil
	}

	var reason string
	switch {
	case speed < bound.Min || speed > bound.Max:
		reason = "out-of-bound speed"
	case v.meanAbsDelta() > rapidChangeThreshold:
		reason = "rapid speed change"
	default:
		return nil
	}

	v.violatedPhases[phase] = true

	id := m.nextID
	m.nextID++

	fine := fineFor(ac.Kind())
	fee := fine * serviceFeeRate
	avn := &AVN{
		ID:            id,
		AirlineName:   airlineName,
		FlightID:      flightID,
		Kind:          ac.Kind(),
		RecordedSpeed: speed,
		PermittedMin:  bound.Min,
		PermittedMax:  bound.Max,
		IssuedAt:      now,
		DueAt:         now.Add(dueWindow),
		Fine:          fine,
		ServiceFee:    fee,
		Total:         fine + fee,
		Status:        Unpaid,
	}
	m.avns[id] = avn
	m.byFlightID[flightID] = append(m.byFlightID[flightID], id)

	ac.IssueAVN(reason)

	m.logger.Info("avn issued",
		"avn_id", id,
		"airline", airlineName,
		"flight", flightID,
		"phase", phase.String(),
		"speed", speed,
		"reason", reason,
		"total", avn.Total,
	)
	return avn
}

// Get returns the AVN with the given id, or nil if unknown.
func (m *SpeedMonitor) Get(id int) *AVN {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avns[id]
}

// ForFlight returns every AVN issued against the given flight id.
func (m *SpeedMonitor) ForFlight(flightID string) []*AVN {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.byFlightID[flightID]
	out := make([]*AVN, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.avns[id])
	}
	return out
}

// All returns every AVN ever issued, in ascending id order.
func (m *SpeedMonitor) All() []*AVN {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*AVN, 0, len(m.avns))
	for id := 1000; id < m.nextID; id++ {
		if avn, ok := m.avns[id]; ok {
			out = append(out, avn)
		}
	}
	return out
}

// Pay marks the AVN with the given id as Paid.
func (m *SpeedMonitor) Pay(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	avn, ok := m.avns[id]
	if !ok {
		return ErrNotUnpaid
	}
	return avn.MarkPaid()
}

// RefreshOverdue flips every Unpaid AVN past its due date to Overdue. Run
// periodically by the monitoring task.
func (m *SpeedMonitor) RefreshOverdue(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, avn := range m.avns {
		avn.RefreshOverdue(now)
	}
}
