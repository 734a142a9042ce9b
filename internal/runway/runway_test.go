package runway

import (
	"errors"
	"testing"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
)

func TestEligible(t *testing.T) {
	cases := []struct {
		id        ID
		direction aircraft.Direction
		kind      aircraft.Kind
		want      bool
	}{
		{A, aircraft.North, aircraft.Commercial, true},
		{A, aircraft.East, aircraft.Commercial, false},
		{B, aircraft.East, aircraft.Commercial, true},
		{B, aircraft.North, aircraft.Commercial, false},
		{C, aircraft.North, aircraft.Cargo, true},
		{C, aircraft.East, aircraft.Emergency, true},
		{C, aircraft.North, aircraft.Commercial, false},
	}
	for _, c := range cases {
		if got := Eligible(c.id, c.direction, c.kind); got != c.want {
			t.Errorf("Eligible(%s, %s, %s) = %v, want %v", c.id, c.direction, c.kind, got, c.want)
		}
	}
}

func TestPreferredPrioritizesRunwayCForCargoAndEmergency(t *testing.T) {
	if got := Preferred(aircraft.North, aircraft.Cargo); got != C {
		t.Errorf("Preferred(North, Cargo) = %s, want C", got)
	}
	if got := Preferred(aircraft.East, aircraft.Emergency); got != C {
		t.Errorf("Preferred(East, Emergency) = %s, want C", got)
	}
	if got := Preferred(aircraft.North, aircraft.Commercial); got != A {
		t.Errorf("Preferred(North, Commercial) = %s, want A", got)
	}
	if got := Preferred(aircraft.East, aircraft.Commercial); got != B {
		t.Errorf("Preferred(East, Commercial) = %s, want B", got)
	}
}

func TestAssignThenReleaseRoundTrip(t *testing.T) {
	var notified []ID
	rw := New(A, func(id ID) { notified = append(notified, id) })

	now := time.Now()
	if err := rw.Assign("AC1", aircraft.North, aircraft.Commercial, now); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if rw.Status() != InUse {
		t.Fatalf("Status() = %s, want InUse", rw.Status())
	}
	if rw.OccupantID() != "AC1" {
		t.Fatalf("OccupantID() = %q, want AC1", rw.OccupantID())
	}
	if rw.UsageCount() != 1 {
		t.Fatalf("UsageCount() = %d, want 1", rw.UsageCount())
	}

	if err := rw.Release("AC1"); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if rw.Status() != Available {
		t.Fatalf("Status() after Release() = %s, want Available", rw.Status())
	}
	if len(notified) != 1 || notified[0] != A {
		t.Fatalf("onAvailable notified = %v, want [A]", notified)
	}
}

func TestAssignFailsWhenIneligible(t *testing.T) {
	rw := New(A, nil)
	err := rw.Assign("AC1", aircraft.East, aircraft.Commercial, time.Now())
	if !errors.Is(err, ErrIneligible) {
		t.Fatalf("Assign() error = %v, want ErrIneligible", err)
	}
	if rw.Status() != Available {
		t.Fatalf("Status() after failed Assign() = %s, want unchanged Available", rw.Status())
	}
}

func TestAssignFailsWhenNotAvailable(t *testing.T) {
	rw := New(A, nil)
	rw.Assign("AC1", aircraft.North, aircraft.Commercial, time.Now())

	err := rw.Assign("AC2", aircraft.North, aircraft.Commercial, time.Now())
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("Assign() on occupied runway error = %v, want ErrNotAvailable", err)
	}
	if rw.OccupantID() != "AC1" {
		t.Fatalf("OccupantID() = %q, want unchanged AC1", rw.OccupantID())
	}
}

func TestReleaseFailsOnWrongOccupant(t *testing.T) {
	rw := New(A, nil)
	rw.Assign("AC1", aircraft.North, aircraft.Commercial, time.Now())

	err := rw.Release("AC2")
	if !errors.Is(err, ErrWrongOccupant) {
		t.Fatalf("Release() with wrong occupant error = %v, want ErrWrongOccupant", err)
	}
	if rw.Status() != InUse {
		t.Fatalf("Status() after failed Release() = %s, want unchanged InUse", rw.Status())
	}
}

func TestReleaseFailsWhenUnassigned(t *testing.T) {
	rw := New(A, nil)
	if err := rw.Release("AC1"); !errors.Is(err, ErrNoOccupant) {
		t.Fatalf("Release() on unassigned runway error = %v, want ErrNoOccupant", err)
	}
}

func TestAssignRejectsEmptyAircraftID(t *testing.T) {
	rw := New(A, nil)
	if err := rw.Assign("", aircraft.North, aircraft.Commercial, time.Now()); !errors.Is(err, ErrEmptyAircraft) {
		t.Fatalf("Assign(\"\") error = %v, want ErrEmptyAircraft", err)
	}
}

func TestSetStatusForceClosesAnOccupiedRunwayWithoutNotifying(t *testing.T) {
	notified := 0
	rw := New(A, func(ID) { notified++ })
	rw.Assign("AC1", aircraft.North, aircraft.Commercial, time.Now())

	if err := rw.SetStatus(Maintenance); err != nil {
		t.Fatalf("SetStatus() error: %v", err)
	}
	if rw.Status() != Maintenance {
		t.Fatalf("Status() = %s, want Maintenance", rw.Status())
	}
	if rw.OccupantID() != "" {
		t.Fatalf("OccupantID() after force-close = %q, want empty", rw.OccupantID())
	}
	if notified != 0 {
		t.Fatalf("onAvailable notified %d times, want 0 (force-close is not a normal release)", notified)
	}
}
