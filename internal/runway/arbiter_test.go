package runway

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
	"github.com/atcsim/atcsim/internal/flight"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPendingFlight(id string, direction aircraft.Direction, kind aircraft.Kind, scheduled time.Time) *flight.Flight {
	ac := aircraft.New(id, kind, direction, "TEST", rand.New(rand.NewSource(1)))
	return flight.New(id, ac, scheduled, false, flight.PlanBuilderFor(direction.IsArrival()))
}

func TestRunAssignmentPassPlacesEligibleFlight(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	f := newPendingFlight("F1", aircraft.North, aircraft.Commercial, now)
	ar.Enqueue(f)
	ar.RunAssignmentPass(now)

	if f.RunwayID() != "A" {
		t.Fatalf("RunwayID() = %q, want A", f.RunwayID())
	}
	if ar.Runway(A).Status() != InUse {
		t.Fatalf("runway A status = %s, want InUse", ar.Runway(A).Status())
	}
}

func TestRunAssignmentPassDeniesWhenRunwayOccupied(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	first := newPendingFlight("F1", aircraft.North, aircraft.Commercial, now)
	ar.Enqueue(first)
	ar.RunAssignmentPass(now)

	second := newPendingFlight("F2", aircraft.South, aircraft.Commercial, now)
	ar.Enqueue(second)
	ar.RunAssignmentPass(now)

	if second.RunwayID() != "" {
		t.Fatalf("second flight unexpectedly assigned a runway: %q", second.RunwayID())
	}
	if ar.DeniedCount() != 1 {
		t.Fatalf("DeniedCount() = %d, want 1", ar.DeniedCount())
	}
}

func TestRetryDeniedPlacesFlightOnceRunwayFrees(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	first := newPendingFlight("F1", aircraft.North, aircraft.Commercial, now)
	ar.Enqueue(first)
	ar.RunAssignmentPass(now)

	second := newPendingFlight("F2", aircraft.South, aircraft.Commercial, now)
	ar.Enqueue(second)
	ar.RunAssignmentPass(now)
	if ar.DeniedCount() != 1 {
		t.Fatalf("DeniedCount() = %d, want 1", ar.DeniedCount())
	}

	first.Activate(now)
	if err := first.Complete(); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	ar.RetryDenied(now)
	if second.RunwayID() != "A" {
		t.Fatalf("RunwayID() after retry = %q, want A", second.RunwayID())
	}
}

func TestRetryDeniedSkipsTerminalFlights(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	first := newPendingFlight("F1", aircraft.North, aircraft.Commercial, now)
	ar.Enqueue(first)
	ar.RunAssignmentPass(now)

	second := newPendingFlight("F2", aircraft.South, aircraft.Commercial, now)
	ar.Enqueue(second)
	ar.RunAssignmentPass(now)

	second.Activate(now)
	second.Cancel("withdrawn")

	ar.RetryDenied(now)
	if second.RunwayID() != "" {
		t.Fatalf("canceled flight was assigned a runway")
	}
}

func TestAssignDirectPlacesCargoOnRunwayCImmediately(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	f := newPendingFlight("CARGO1", aircraft.North, aircraft.Cargo, now)
	if !ar.AssignDirect(f, now) {
		t.Fatalf("AssignDirect() = false, want true for an eligible Cargo flight")
	}
	if f.RunwayID() != "C" {
		t.Fatalf("RunwayID() = %q, want C", f.RunwayID())
	}
}

func TestAssignDirectFailsForCommercial(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	f := newPendingFlight("COM1", aircraft.North, aircraft.Commercial, now)
	if ar.AssignDirect(f, now) {
		t.Fatalf("AssignDirect() = true, want false for an ineligible Commercial flight")
	}
}

func TestEmergencyPreemptsQueueOrderOverCargo(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	// Both are East departures, so they share RWY-B's queue (QueueFor routes
	// by direction); Cargo is enqueued first (earlier scheduled time) but
	// Emergency has the higher priority class and must be popped first, then
	// placed on its preferred RWY-C.
	cargo := newPendingFlight("CGO1", aircraft.East, aircraft.Cargo, now)
	emergency := newPendingFlight("EMG1", aircraft.East, aircraft.Emergency, now.Add(time.Second))

	ar.Enqueue(cargo)
	ar.Enqueue(emergency)

	ar.RunAssignmentPass(now)
	if emergency.RunwayID() != "C" {
		t.Fatalf("emergency flight RunwayID() = %q, want C (placed on the first assignment pass)", emergency.RunwayID())
	}
	if cargo.RunwayID() != "" {
		t.Fatalf("cargo flight was placed ahead of emergency: RunwayID() = %q", cargo.RunwayID())
	}
	if ar.DeniedCount() != 0 {
		t.Fatalf("DeniedCount() = %d, want 0 (cargo flight still queued, not yet popped)", ar.DeniedCount())
	}
}

func TestEmergencyPreemptsCommercialInSameDirectionQueue(t *testing.T) {
	ar := NewArbiter(discardLogger())
	now := time.Now()

	// Three Commercial North arrivals queue for RWY-A, then an Emergency
	// North arrival is filed in behind them. Emergency must pop first
	// despite sharing RWY-A's own queue with the Commercial flights, not a
	// separate RWY-C queue (spec §8 scenario 2).
	commercial1 := newPendingFlight("COM1", aircraft.North, aircraft.Commercial, now)
	commercial2 := newPendingFlight("COM2", aircraft.North, aircraft.Commercial, now.Add(time.Second))
	commercial3 := newPendingFlight("COM3", aircraft.North, aircraft.Commercial, now.Add(2*time.Second))
	emergency := newPendingFlight("EMG1", aircraft.North, aircraft.Emergency, now.Add(3*time.Second))

	ar.Enqueue(commercial1)
	ar.Enqueue(commercial2)
	ar.Enqueue(commercial3)
	ar.Enqueue(emergency)

	ar.RunAssignmentPass(now)

	if emergency.RunwayID() != "C" {
		t.Fatalf("emergency flight RunwayID() = %q, want C (still preferred at assignment time)", emergency.RunwayID())
	}
	for _, f := range []*flight.Flight{commercial1, commercial2, commercial3} {
		if f.RunwayID() != "" {
			t.Fatalf("flight %s was placed ahead of the emergency: RunwayID() = %q", f.ID(), f.RunwayID())
		}
	}
}
