// Package airline models the fixed airline roster, fleet caps, per-
// direction scheduling cadence, and the aircraft/flight factory methods
// that feed the simulation's flight generator (spec §3 Airline, §4.4).
package airline

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
)

// scheduleInterval is the fixed per-direction cadence at which a Airline
// may spawn a new flight (spec §4.4).
var scheduleInterval = map[aircraft.Direction]time.Duration{
	aircraft.North: 180 * time.Second,
	aircraft.South: 120 * time.Second,
	aircraft.East:  150 * time.Second,
	aircraft.West:  240 * time.Second,
}

// emergencyProbability is the fixed per-direction chance a newly scheduled
// flight is forced to emergency status (spec §4.4).
var emergencyProbability = map[aircraft.Direction]float64{
	aircraft.North: 0.10,
	aircraft.South: 0.05,
	aircraft.East:  0.15,
	aircraft.West:  0.20,
}

// cargoOverrideProbability is the chance a Commercial-primary airline's
// scheduled aircraft is instead built as Cargo (spec §4.4).
const cargoOverrideProbability = 0.05

// RosterEntry is one airline of the fixed roster from spec §3: FleetSize is
// the total fleet size and ActiveCap the concurrent-active capacity.
type RosterEntry struct {
	Name        string
	Primary     aircraft.Kind
	FleetSize   int
	ActiveCap   int
}

// Roster is the compiled-in airline fleet. Order and values must be
// preserved bit-exactly per spec §3.
var Roster = []RosterEntry{
	{Name: "PIA", Primary: aircraft.Commercial, FleetSize: 6, ActiveCap: 4},
	{Name: "AirBlue", Primary: aircraft.Commercial, FleetSize: 4, ActiveCap: 4},
	{Name: "FedEx", Primary: aircraft.Cargo, FleetSize: 3, ActiveCap: 2},
	{Name: "Pakistan Airforce", Primary: aircraft.Emergency, FleetSize: 2, ActiveCap: 1},
	{Name: "Blue Dart", Primary: aircraft.Cargo, FleetSize: 2, ActiveCap: 2},
	{Name: "AghaKhan Air", Primary: aircraft.Emergency, FleetSize: 2, ActiveCap: 1},
}

// initials returns the airline's flight/aircraft id prefix: the uppercase
// initials of each word for multi-word names, or the name itself
// uppercased for single-word names (spec §4.4: "uppercase initials of the
// airline name").
func initials(name string) string {
	words := strings.Fields(name)
	if len(words) == 1 {
		return strings.ToUpper(words[0])
	}
	var b strings.Builder
	for _, w := range words {
		if w != "" {
			b.WriteString(strings.ToUpper(w[:1]))
		}
	}
	return b.String()
}

// Airline is a fixed fleet operator: a fleet cap, per-direction schedule
// cadence, and an aircraft factory. Aircraft are owned by their Flight for
// the flight's lifetime; Airline tracks them by id only (spec §9 redesign:
// indexed map instead of strong ownership).
type Airline struct {
	mu sync.Mutex

	name      string
	primary   aircraft.Kind
	fleetSize int
	activeCap int

	activeCount      int
	lastSchedule     map[aircraft.Direction]time.Time
	activeByFlightID map[string]*aircraft.Aircraft
	violationCount   int

	rng *rand.Rand
}

// New constructs an Airline from a roster entry, with its own seeded RNG
// (spec §9: each task/entity owns its own RNG seeded from a master seed,
// rather than sharing one process-wide mutable generator).
func New(entry RosterEntry, rng *rand.Rand) *Airline {
	return &Airline{
		name:             entry.Name,
		primary:          entry.Primary,
		fleetSize:        entry.FleetSize,
		activeCap:        entry.ActiveCap,
		lastSchedule:     make(map[aircraft.Direction]time.Time),
		activeByFlightID: make(map[string]*aircraft.Aircraft),
		rng:              rng,
	}
}

// Name returns the airline's name.
func (a *Airline) Name() string { return a.name }

// Primary returns the airline's primary aircraft kind.
func (a *Airline) Primary() aircraft.Kind { return a.primary }

// FleetSize returns the airline's total fleet size.
func (a *Airline) FleetSize() int { return a.fleetSize }

// ActiveCap returns the airline's maximum concurrent active aircraft.
func (a *Airline) ActiveCap() int { return a.activeCap }

// ActiveCount returns the number of currently active aircraft.
func (a *Airline) ActiveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeCount
}

// ViolationCount returns the cumulative number of AVNs recorded against
// this airline.
func (a *Airline) ViolationCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.violationCount
}

// RecordViolation bumps the airline's cumulative violation counter
// (called by the speed monitor on AVN issuance, spec §4.5).
func (a *Airline) RecordViolation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.violationCount++
}

// RollEmergency rolls the per-direction emergency probability and reports
// whether a newly scheduled flight in that direction should be forced to
// emergency status (spec §4.4).
func (a *Airline) RollEmergency(direction aircraft.Direction) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64() < emergencyProbability[direction]
}

// ShouldSchedule reports whether schedule cadence and capacity allow a new
// flight in the given direction at time now, without side effects.
func (a *Airline) ShouldSchedule(now time.Time, direction aircraft.Direction) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.shouldScheduleLocked(now, direction)
}

func (a *Airline) shouldScheduleLocked(now time.Time, direction aircraft.Direction) bool {
	last, ok := a.lastSchedule[direction]
	if ok && now.Sub(last) < scheduleInterval[direction] {
		return false
	}
	return a.activeCount < a.activeCap
}

// deriveKind applies the kind-derivation rule from spec §4.4.
func (a *Airline) deriveKind(forceEmergency bool) aircraft.Kind {
	if forceEmergency {
		return aircraft.Emergency
	}
	if a.primary == aircraft.Cargo || a.primary == aircraft.Emergency {
		return a.primary
	}
	if a.rng.Float64() < cargoOverrideProbability {
		return aircraft.Cargo
	}
	return aircraft.Commercial
}

// nextID returns a fresh id: uppercase airline initials plus a random
// integer in [100, 9999] (spec §4.4). The same format serves both the
// aircraft id and its owning flight id, since a Flight's id is defined to
// equal its aircraft's id (spec §3) — there is only one id per airframe,
// not two independently-generated ones.
func (a *Airline) nextID() string {
	n := 100 + a.rng.Intn(9999-100+1)
	return initials(a.name) + itoa(n)
}

// CreateAircraft builds a new Aircraft for the given direction, applying
// the kind-derivation rule and generating its id (spec §4.4). It does not
// itself register the aircraft as active — call RegisterActive once the
// owning Flight exists.
func (a *Airline) CreateAircraft(direction aircraft.Direction, forceEmergency bool) *aircraft.Aircraft {
	a.mu.Lock()
	kind := a.deriveKind(forceEmergency)
	id := a.nextID()
	acRng := rand.New(rand.NewSource(a.rng.Int63()))
	a.mu.Unlock()

	return aircraft.New(id, kind, direction, a.name, acRng)
}

// CreateCargoAircraft builds a new Cargo-kind Aircraft regardless of the
// airline's primary kind, for the cargo-presence invariant's fallback path
// (spec §4.7: "fallback Commercial, requesting Cargo kind").
func (a *Airline) CreateCargoAircraft(direction aircraft.Direction) *aircraft.Aircraft {
	a.mu.Lock()
	id := a.nextID()
	acRng := rand.New(rand.NewSource(a.rng.Int63()))
	a.mu.Unlock()

	return aircraft.New(id, aircraft.Cargo, direction, a.name, acRng)
}

// ForceRegisterActive records a newly-created aircraft/flight as active
// without checking cadence or capacity, used only by cargo-presence
// invariant enforcement which must guarantee a flight exists regardless of
// the airline's normal scheduling limits (spec §4.7).
func (a *Airline) ForceRegisterActive(now time.Time, direction aircraft.Direction, flightID string, ac *aircraft.Aircraft) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSchedule[direction] = now
	a.activeCount++
	a.activeByFlightID[flightID] = ac
}

// RegisterActive records a newly-scheduled aircraft/flight as active and
// stamps lastSchedule for the direction, completing schedule_if_needed's
// side effects (spec §4.4). Returns false if capacity/cadence no longer
// allows it (re-checked under lock to avoid races with concurrent
// scheduling attempts).
func (a *Airline) RegisterActive(now time.Time, direction aircraft.Direction, flightID string, ac *aircraft.Aircraft) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.shouldScheduleLocked(now, direction) {
		return false
	}
	a.lastSchedule[direction] = now
	a.activeCount++
	a.activeByFlightID[flightID] = ac
	return true
}

// ReleaseActive removes a completed/canceled/diverted flight's aircraft
// from the active set (called once the owning Flight reaches a terminal
// status).
func (a *Airline) ReleaseActive(flightID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.activeByFlightID[flightID]; ok {
		delete(a.activeByFlightID, flightID)
		a.activeCount--
	}
}

// itoa avoids pulling in strconv for this one call site's worth of use;
// kept tiny and local since it only needs to format small positive ints.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
