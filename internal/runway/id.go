// Package runway models the three shared runways — their status and
// eligibility rules (spec §3 Runway, §4.2) — and the RunwayArbiter that
// schedules pending flights onto them under priority and exclusivity
// constraints (spec §4.6).
package runway

import "github.com/atcsim/atcsim/internal/aircraft"

// ID identifies one of the three physical runways.
type ID int

const (
	A ID = iota
	B
	C
)

// String returns the runway's designation letter.
func (id ID) String() string {
	switch id {
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	default:
		return "?"
	}
}

// All lists every runway id, in fixed scan order A, B, C — the order the
// arbiter tries remaining eligible runways in (spec §4.6).
var All = []ID{A, B, C}

// Eligible reports whether runway id may serve a flight of the given
// direction and kind (spec §4.2 Eligibility):
//
//   - A: direction must be North or South (arrivals); any kind.
//   - B: direction must be East or West (departures); any kind.
//   - C: any direction; kind must be Cargo or Emergency. RWY-C exclusivity
//     is a hard invariant — no Commercial aircraft is ever eligible here.
func Eligible(id ID, direction aircraft.Direction, kind aircraft.Kind) bool {
	switch id {
	case A:
		return direction.IsArrival()
	case B:
		return direction.IsDeparture()
	case C:
		return kind == aircraft.Cargo || kind == aircraft.Emergency
	default:
		return false
	}
}

// Preferred returns the runway a flight of the given direction/kind should
// attempt first: cargo/emergency flights try RWY-C first, falling back to
// the direction-preferred runway (RWY-A for arrivals, RWY-B for
// departures) if RWY-C cannot take them. This governs assignment order
// only — it has no bearing on which queue a pending flight waits in; see
// QueueFor.
func Preferred(direction aircraft.Direction, kind aircraft.Kind) ID {
	if kind == aircraft.Cargo || kind == aircraft.Emergency {
		return C
	}
	if direction.IsArrival() {
		return A
	}
	return B
}

// QueueFor returns the runway whose pending-flight queue a flight of the
// given direction waits in: arrivals file into RWY-A's queue, departures
// into RWY-B's queue, independent of kind. Cargo/Emergency flights still
// queue alongside same-direction Commercial flights so they can preempt
// them by priority class (spec §8 scenario 2); only at assignment time
// does Preferred route them to RWY-C first.
func QueueFor(direction aircraft.Direction) ID {
	if direction.IsArrival() {
		return A
	}
	return B
}
