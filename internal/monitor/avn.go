// Package monitor implements the speed monitor: per-aircraft speed
// sampling, bound/rapid-change violation detection, and AVN (Airspace
// Violation Notice) issuance and lifecycle tracking (spec §3 AVN, §4.5).
package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
)

// AVNStatus is the billing lifecycle state of an AVN.
type AVNStatus int

const (
	Unpaid AVNStatus = iota
	Paid
	Overdue
)

// String returns the human-readable name of the status.
func (s AVNStatus) String() string {
	switch s {
	case Unpaid:
		return "Unpaid"
	case Paid:
		return "Paid"
	case Overdue:
		return "Overdue"
	default:
		return "Unknown"
	}
}

// dueWindow is the payment window from issuance (spec §4.5: due = issue + 3
// days).
const dueWindow = 72 * time.Hour

// Fine amounts by aircraft kind (spec §4.5). Emergency aircraft are billed
// at the cargo rate — an intentional, observed quirk preserved from the
// original billing table rather than "corrected" (see design notes).
const (
	commercialFine = 500_000.0
	cargoFine      = 700_000.0
)

// serviceFeeRate is the surcharge applied on top of the base fine (spec
// §4.5: total = fine * 1.15).
const serviceFeeRate = 0.15

// AVN is an issued Airspace Violation Notice.
type AVN struct {
	ID          int
	AirlineName string
	FlightID    string
	Kind        aircraft.Kind
	RecordedSpeed float64
	PermittedMin  float64
	PermittedMax  float64
	IssuedAt    time.Time
	DueAt       time.Time
	Fine        float64
	ServiceFee  float64
	Total       float64
	Status      AVNStatus
}

// fineFor returns the base fine for a kind; Cargo and Emergency are billed
// identically (spec §4.5 note).
func fineFor(kind aircraft.Kind) float64 {
	if kind == aircraft.Commercial {
		return commercialFine
	}
	return cargoFine
}

// ErrNotUnpaid is returned by MarkPaid when the AVN is not currently Unpaid
// or Overdue.
var ErrNotUnpaid = errors.New("monitor: avn is not in a payable status")

// MarkPaid transitions the AVN to Paid. Payable from Unpaid or Overdue
// only.
func (a *AVN) MarkPaid() error {
	if a.Status != Unpaid && a.Status != Overdue {
		return fmt.Errorf("%w: avn=%d status=%s", ErrNotUnpaid, a.ID, a.Status)
	}
	a.Status = Paid
	return nil
}

// RefreshOverdue flips an Unpaid AVN to Overdue once now has passed DueAt.
func (a *AVN) RefreshOverdue(now time.Time) {
	if a.Status == Unpaid && !now.Before(a.DueAt) {
		a.Status = Overdue
	}
}

