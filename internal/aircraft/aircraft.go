package aircraft

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ErrNoSuccessorPhase is returned by AdvancePhase when the current phase is
// terminal and has no statically-defined successor.
var ErrNoSuccessorPhase = errors.New("aircraft: phase has no successor")

// groundFaultProbability is the per-call chance SimulateGroundFault sets the
// fault flag while the aircraft is in an eligible ground phase (spec §4.1).
const groundFaultProbability = 0.05

// driftFaultRate is the per-second probability of spontaneously setting a
// ground fault while idling on the ground with no fault yet recorded
// (spec §4.1 update(dt): probability 0.001*dt).
const driftFaultRate = 0.001

// speedPerturbationStdDev is the standard deviation, in km/h, of the small
// Gaussian speed perturbation applied on every Update tick.
const speedPerturbationStdDev = 2.0

// Aircraft is a single simulated airframe. Cross-references to its owning
// Airline are by id (weak), following the redesign in spec §9: the Airline
// outlives the Aircraft and is resolved through the Controller/Airline
// registry rather than a strong back-pointer.
type Aircraft struct {
	mu sync.Mutex

	id         string
	kind       Kind
	direction  Direction
	airlineID  string
	phase      Phase
	speed      float64
	runwayID   string // empty when unassigned
	groundFault bool
	avns       []string

	rng *rand.Rand
}

// New constructs an Aircraft in its initial phase for the given direction,
// seeded from rng so sampling is reproducible from a deterministic master
// seed per spec §9 (each owning task seeds its own RNG; the Aircraft's RNG
// is seeded once at creation from the Airline's task RNG).
func New(id string, kind Kind, direction Direction, airlineID string, rng *rand.Rand) *Aircraft {
	phase := InitialPhase(direction)
	bound := BoundFor(phase)
	a := &Aircraft{
		id:        id,
		kind:      kind,
		direction: direction,
		airlineID: airlineID,
		phase:     phase,
		rng:       rng,
	}
	a.speed = bound.Min + rng.Float64()*(bound.Max-bound.Min)
	return a
}

// ID returns the aircraft's unique identifier (airline prefix + suffix).
func (a *Aircraft) ID() string { return a.id }

// Kind returns the aircraft's fixed kind.
func (a *Aircraft) Kind() Kind { return a.kind }

// Direction returns the aircraft's fixed direction.
func (a *Aircraft) Direction() Direction { return a.direction }

// AirlineID returns the id of the owning airline (weak reference).
func (a *Aircraft) AirlineID() string { return a.airlineID }

// Phase returns the aircraft's current phase.
func (a *Aircraft) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Speed returns the aircraft's current speed in km/h.
func (a *Aircraft) Speed() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speed
}

// RunwayID returns the id of the currently-assigned runway, or "" if none.
func (a *Aircraft) RunwayID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runwayID
}

// SetRunwayID records which runway this aircraft currently holds. An empty
// string clears the assignment. Invariant: an aircraft holds at most one
// runway at a time (spec §3).
func (a *Aircraft) SetRunwayID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runwayID = id
}

// GroundFault reports whether the ground-fault flag is currently set.
func (a *Aircraft) GroundFault() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.groundFault
}

// AVNs returns a copy of the human-readable AVN descriptors issued to this
// aircraft.
func (a *Aircraft) AVNs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.avns))
	copy(out, a.avns)
	return out
}

// AdvancePhase transitions the aircraft to its statically-defined next
// phase and samples a new speed uniformly from that phase's bound. It
// fails with ErrNoSuccessorPhase if the current phase is terminal.
func (a *Aircraft) AdvancePhase() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, ok := a.phase.Next()
	if !ok {
		return fmt.Errorf("%w: phase=%s", ErrNoSuccessorPhase, a.phase)
	}
	a.phase = next
	bound := BoundFor(next)
	a.speed = bound.Min + a.rng.Float64()*(bound.Max-bound.Min)
	return nil
}

// SetSpeed sets the speed to v without validation. Used by flight-plan
// transition steps and the speed monitor to force an observed speed.
func (a *Aircraft) SetSpeed(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.speed = v
}

// IssueAVN appends a human-readable violation reason to the aircraft's AVN
// list.
func (a *Aircraft) IssueAVN(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.avns = append(a.avns, reason)
}

// SimulateGroundFault is only effective while the aircraft is in one of the
// ground phases {TaxiIn, AtGateArrival, AtGateDeparture, TaxiOut}; with 5%
// probability it sets the ground-fault flag. Returns whether the fault was
// (newly) set.
func (a *Aircraft) SimulateGroundFault() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.phase.IsGroundPhase() {
		return false
	}
	if a.rng.Float64() < groundFaultProbability {
		a.groundFault = true
		return true
	}
	return false
}

// Update adds a small Gaussian speed perturbation (mean 0, sd 2 km/h) and,
// while on the ground with no fault yet recorded, sets the fault with
// probability 0.001*dt (dt in seconds).
func (a *Aircraft) Update(dtSeconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.speed += a.rng.NormFloat64() * speedPerturbationStdDev
	if a.speed < 0 {
		a.speed = 0
	}

	if a.phase.IsGroundPhase() && !a.groundFault {
		if a.rng.Float64() < driftFaultRate*dtSeconds {
			a.groundFault = true
		}
	}
}
