package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
)

func TestFineForCommercialAndCargoAndEmergency(t *testing.T) {
	if got := fineFor(aircraft.Commercial); got != commercialFine {
		t.Errorf("fineFor(Commercial) = %.0f, want %.0f", got, commercialFine)
	}
	if got := fineFor(aircraft.Cargo); got != cargoFine {
		t.Errorf("fineFor(Cargo) = %.0f, want %.0f", got, cargoFine)
	}
	if got := fineFor(aircraft.Emergency); got != cargoFine {
		t.Errorf("fineFor(Emergency) = %.0f, want %.0f (billed at cargo rate)", got, cargoFine)
	}
}

func TestMarkPaidFromUnpaidSucceeds(t *testing.T) {
	avn := &AVN{ID: 1000, Status: Unpaid}
	if err := avn.MarkPaid(); err != nil {
		t.Fatalf("MarkPaid() error: %v", err)
	}
	if avn.Status != Paid {
		t.Fatalf("Status = %s, want Paid", avn.Status)
	}
}

func TestMarkPaidFromOverdueSucceeds(t *testing.T) {
	avn := &AVN{ID: 1001, Status: Overdue}
	if err := avn.MarkPaid(); err != nil {
		t.Fatalf("MarkPaid() error: %v", err)
	}
	if avn.Status != Paid {
		t.Fatalf("Status = %s, want Paid", avn.Status)
	}
}

func TestMarkPaidAlreadyPaidFails(t *testing.T) {
	avn := &AVN{ID: 1002, Status: Paid}
	if err := avn.MarkPaid(); !errors.Is(err, ErrNotUnpaid) {
		t.Fatalf("MarkPaid() on already-paid AVN error = %v, want ErrNotUnpaid", err)
	}
}

func TestRefreshOverdueFlipsPastDue(t *testing.T) {
	now := time.Now()
	avn := &AVN{ID: 1003, Status: Unpaid, DueAt: now.Add(-time.Minute)}
	avn.RefreshOverdue(now)
	if avn.Status != Overdue {
		t.Fatalf("Status = %s, want Overdue", avn.Status)
	}
}

func TestRefreshOverdueLeavesNotYetDueAlone(t *testing.T) {
	now := time.Now()
	avn := &AVN{ID: 1004, Status: Unpaid, DueAt: now.Add(time.Hour)}
	avn.RefreshOverdue(now)
	if avn.Status != Unpaid {
		t.Fatalf("Status = %s, want unchanged Unpaid", avn.Status)
	}
}

func TestRefreshOverdueDoesNotTouchPaid(t *testing.T) {
	now := time.Now()
	avn := &AVN{ID: 1005, Status: Paid, DueAt: now.Add(-time.Hour)}
	avn.RefreshOverdue(now)
	if avn.Status != Paid {
		t.Fatalf("Status = %s, want unchanged Paid", avn.Status)
	}
}
