// Package flight implements the per-flight status machine and its ordered
// plan of timed phase-transition steps (spec §3 Flight, §4.3).
package flight

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
)

// Status is the flight's lifecycle state.
type Status int

const (
	Scheduled Status = iota
	Active
	Completed
	Canceled
	Diverted
	Emergency
)

// String returns the human-readable name of the status.
func (s Status) String() string {
	switch s {
	case Scheduled:
		return "Scheduled"
	case Active:
		return "Active"
	case Completed:
		return "Completed"
	case Canceled:
		return "Canceled"
	case Diverted:
		return "Diverted"
	case Emergency:
		return "Emergency"
	default:
		return "Unknown"
	}
}

// validTransitions encodes the status transition graph from spec §3.
var validTransitions = map[Status]map[Status]bool{
	Scheduled: {Active: true, Emergency: true, Canceled: true},
	Active:    {Emergency: true, Completed: true, Canceled: true, Diverted: true},
	Emergency: {Completed: true, Canceled: true, Diverted: true},
}

// IsTerminal reports whether s is one of the terminal statuses.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Canceled || s == Diverted
}

func (s Status) canTransitionTo(next Status) bool {
	allowed, ok := validTransitions[s]
	return ok && allowed[next]
}

// Errors raised by precondition violations (spec §7 PreconditionViolation).
var (
	ErrInvalidTransition = errors.New("flight: invalid status transition")
	ErrAlreadyTerminal   = errors.New("flight: already in a terminal status")
	ErrNoRunway          = errors.New("flight: no runway currently assigned")
)

// RunwayReleaser is the weak back-reference a Flight holds to the runway it
// currently occupies. Flight never owns a Runway; it only knows how to ask
// one to release this aircraft (spec §9 redesign note: ids/handles instead
// of owning pointers, to eliminate Aircraft/Runway/Flight reference cycles).
type RunwayReleaser interface {
	Release(aircraftID string) error
}

// Step is one entry in a FlightPlan: an offset from activation time and the
// transition operation to run once that offset has elapsed.
type Step struct {
	Offset time.Duration
	Name   string
	Run    func(f *Flight) error
}

// Plan is an ordered list of timed transition steps.
type Plan struct {
	Steps []Step
}

// Flight is the status machine owning an Aircraft for the flight's
// lifetime. The runway reference is weak (an id plus a releaser handle),
// never an owning pointer, per the redesign in spec §9.
type Flight struct {
	mu sync.Mutex

	id                  string
	aircraft            *aircraft.Aircraft
	scheduledTime       time.Time
	activationTime      time.Time
	estimatedCompletion time.Time
	isEmergency         bool
	status              Status
	reason              string

	runwayID       string
	runwayReleaser RunwayReleaser

	plan      Plan
	stepIndex int
	buildPlan func(emergency bool) Plan
}

// New constructs a Scheduled flight for the given aircraft. buildPlan
// produces the regular or emergency plan variant on demand (spec §4.3
// set_emergency regenerates the plan).
func New(id string, ac *aircraft.Aircraft, scheduledTime time.Time, isEmergency bool, buildPlan func(emergency bool) Plan) *Flight {
	f := &Flight{
		id:            id,
		aircraft:      ac,
		scheduledTime: scheduledTime,
		isEmergency:   isEmergency,
		status:        Scheduled,
		buildPlan:     buildPlan,
	}
	f.plan = buildPlan(isEmergency)
	return f
}

// ID returns the flight id (equal to the aircraft id).
func (f *Flight) ID() string { return f.id }

// Aircraft returns the owned aircraft.
func (f *Flight) Aircraft() *aircraft.Aircraft { return f.aircraft }

// ScheduledTime returns the flight's scheduled time.
func (f *Flight) ScheduledTime() time.Time { return f.scheduledTime }

// Status returns the current status.
func (f *Flight) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Reason returns the recorded status reason (cancel/divert explanation).
func (f *Flight) Reason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}

// IsEmergency reports whether the flight currently runs the emergency plan.
func (f *Flight) IsEmergency() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isEmergency
}

// RunwayID returns the id of the currently-assigned runway, or "" if none.
func (f *Flight) RunwayID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runwayID
}

// AssignRunway records the runway this flight now occupies, along with the
// weak releaser handle used to give it back later.
func (f *Flight) AssignRunway(runwayID string, releaser RunwayReleaser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runwayID = runwayID
	f.runwayReleaser = releaser
	f.aircraft.SetRunwayID(runwayID)
}

// ReleaseRunway releases the currently-assigned runway, if any. The actual
// release call happens after the flight's own lock is dropped, using only
// the weak releaser reference (spec §5 lock-ordering note).
func (f *Flight) ReleaseRunway() error {
	f.mu.Lock()
	releaser := f.runwayReleaser
	runwayID := f.runwayID
	f.mu.Unlock()

	if releaser == nil || runwayID == "" {
		return nil
	}

	err := releaser.Release(f.aircraft.ID())

	f.mu.Lock()
	f.runwayID = ""
	f.runwayReleaser = nil
	f.mu.Unlock()
	f.aircraft.SetRunwayID("")

	return err
}

// Activate transitions a Scheduled flight to Active (or Emergency if
// isEmergency), sets the activation time, and refreshes the estimated
// completion time from the plan's final step offset.
func (f *Flight) Activate(now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != Scheduled {
		return fmt.Errorf("%w: activate from %s", ErrInvalidTransition, f.status)
	}

	target := Active
	if f.isEmergency {
		target = Emergency
	}
	f.status = target
	f.activationTime = now
	f.refreshEstimatedCompletionLocked()
	return nil
}

func (f *Flight) refreshEstimatedCompletionLocked() {
	if len(f.plan.Steps) == 0 {
		f.estimatedCompletion = f.activationTime
		return
	}
	last := f.plan.Steps[len(f.plan.Steps)-1]
	f.estimatedCompletion = f.activationTime.Add(last.Offset)
}

// ActivationTime returns the time Activate was called, zero if not yet
// activated.
func (f *Flight) ActivationTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activationTime
}

// EstimatedCompletion returns the current estimated completion time.
func (f *Flight) EstimatedCompletion() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.estimatedCompletion
}

// Complete releases the runway (if any) and enters Completed. Repeated
// calls on an already-terminal flight are a no-op returning
// ErrAlreadyTerminal and leave status unchanged (spec §8 idempotence).
func (f *Flight) Complete() error {
	return f.terminate(Completed, "")
}

// Cancel releases the runway (if any), records reason, and enters Canceled.
func (f *Flight) Cancel(reason string) error {
	return f.terminate(Canceled, reason)
}

// Divert releases the runway (if any), records reason, and enters
// Diverted.
func (f *Flight) Divert(reason string) error {
	return f.terminate(Diverted, reason)
}

func (f *Flight) terminate(target Status, reason string) error {
	f.mu.Lock()
	if f.status.IsTerminal() {
		f.mu.Unlock()
		return ErrAlreadyTerminal
	}
	if !f.status.canTransitionTo(target) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.status, target)
	}
	f.status = target
	f.reason = reason
	f.mu.Unlock()

	return f.ReleaseRunway()
}

// SetEmergency toggles emergency status. Setting true on an Active flight
// switches its status to Emergency; on a Scheduled flight it only sets the
// emergency flag and the status stays Scheduled until Activate, which then
// enters Emergency. In both cases the plan is regenerated with emergency
// offsets. Reverting (false) clears the flag, returns an Emergency flight to
// Active, and restores the regular plan. On an already-terminal flight it
// changes nothing and returns ErrAlreadyTerminal.
func (f *Flight) SetEmergency(flag bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	if flag && !f.isEmergency {
		if f.status != Scheduled && f.status != Active {
			return fmt.Errorf("%w: set_emergency from %s", ErrInvalidTransition, f.status)
		}
		f.isEmergency = true
		if f.status == Active {
			f.status = Emergency
		}
		f.regeneratePlanLocked()
	} else if !flag && f.isEmergency {
		f.isEmergency = false
		if f.status == Emergency {
			f.status = Active
		}
		f.regeneratePlanLocked()
	}
	return nil
}

func (f *Flight) regeneratePlanLocked() {
	f.plan = f.buildPlan(f.isEmergency)
	f.stepIndex = 0
	if !f.activationTime.IsZero() {
		f.refreshEstimatedCompletionLocked()
	}
}

// Update is a no-op unless status is Active or Emergency. It ticks the
// aircraft, checks for a ground fault (canceling on fault), and executes
// the next plan step once enough time has elapsed since activation.
func (f *Flight) Update(dtSeconds float64, now time.Time) error {
	f.mu.Lock()
	status := f.status
	f.mu.Unlock()

	if status != Active && status != Emergency {
		return nil
	}

	f.aircraft.Update(dtSeconds)
	f.aircraft.SimulateGroundFault()

	if f.aircraft.GroundFault() {
		return f.Cancel("ground fault")
	}

	return f.ExecuteNextPlanStep(now)
}

// ExecuteNextPlanStep runs the next pending plan step if now - activation
// has reached its offset. After the last step it completes the flight.
func (f *Flight) ExecuteNextPlanStep(now time.Time) error {
	f.mu.Lock()
	if f.status.IsTerminal() {
		f.mu.Unlock()
		return nil
	}
	if f.stepIndex >= len(f.plan.Steps) {
		f.mu.Unlock()
		return f.Complete()
	}

	step := f.plan.Steps[f.stepIndex]
	elapsed := now.Sub(f.activationTime)
	if elapsed < step.Offset {
		f.mu.Unlock()
		return nil
	}
	f.stepIndex++
	isLast := f.stepIndex >= len(f.plan.Steps)
	f.mu.Unlock()

	if err := step.Run(f); err != nil {
		return err
	}

	if isLast {
		return f.Complete()
	}
	return nil
}

// StepIndex returns the index of the next pending plan step.
func (f *Flight) StepIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stepIndex
}
