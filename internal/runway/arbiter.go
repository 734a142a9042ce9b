package runway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
	"github.com/atcsim/atcsim/internal/flight"
	"github.com/atcsim/atcsim/internal/queue"
)

// maxDeniedRetriesPerCycle bounds how many denied flights the rescheduling
// task retries per cycle, to avoid starving the main loop (spec §4.6).
const maxDeniedRetriesPerCycle = 5

// priorityClass maps an aircraft kind to its scheduling priority class
// (spec §4.6): 3 for Emergency, 2 for Cargo, 1 for Commercial. Higher wins.
func priorityClass(kind aircraft.Kind) int {
	switch kind {
	case aircraft.Emergency:
		return 3
	case aircraft.Cargo:
		return 2
	default:
		return 1
	}
}

// pendingFlight wraps a *flight.Flight as a queue.Item ordered by
// (priority_class desc, scheduledTime asc) per spec §4.6.
type pendingFlight struct {
	f *flight.Flight
}

func (p pendingFlight) Less(other queue.Item) bool {
	o := other.(pendingFlight)
	pc, oc := priorityClass(p.f.Aircraft().Kind()), priorityClass(o.f.Aircraft().Kind())
	if pc != oc {
		return pc > oc
	}
	return p.f.ScheduledTime().Before(o.f.ScheduledTime())
}

// Arbiter owns the three runways and the per-runway priority queues of
// pending flights, plus the bounded-retry denied-flights queue (spec §4.6).
// Adapted from the teacher's RunwayManager: an RWMutex-guarded notification
// hub (OnRunwayAvailable etc.), generalized from "recompute active
// configuration" to "retry the next queued flight".
type Arbiter struct {
	mu sync.Mutex

	runways map[ID]*Runway
	queues  map[ID]*queue.PriorityQueue
	denied  *queue.PriorityQueue

	deniedTotal int
	logger      *slog.Logger
	metrics     MetricsSink
}

// ArbiterOption configures an Arbiter at construction.
type ArbiterOption func(*Arbiter)

// WithMetrics wires a metrics sink into the arbiter and every runway it
// owns, so assignment, occupancy, and denial events are all observable
// (SPEC_FULL.md §6).
func WithMetrics(m MetricsSink) ArbiterOption {
	return func(ar *Arbiter) { ar.metrics = m }
}

// NewArbiter constructs an Arbiter owning freshly-created A/B/C runways.
func NewArbiter(logger *slog.Logger, opts ...ArbiterOption) *Arbiter {
	ar := &Arbiter{
		runways: make(map[ID]*Runway, len(All)),
		queues:  make(map[ID]*queue.PriorityQueue, len(All)),
		denied:  queue.New(),
		logger:  logger,
		metrics: noopMetricsSink{},
	}
	for _, opt := range opts {
		opt(ar)
	}
	for _, id := range All {
		id := id
		ar.runways[id] = New(id, ar.onRunwayAvailable)
		ar.runways[id].metrics = ar.metrics
		ar.queues[id] = queue.New()
	}
	return ar
}

// Runway returns the runway with the given id.
func (ar *Arbiter) Runway(id ID) *Runway { return ar.runways[id] }

// onRunwayAvailable is the Runway.onAvailable callback: it does not itself
// retry a flight (that only happens on the arbiter's own tick, to keep
// runway-lock scope minimal per spec §5), it just logs the notification.
func (ar *Arbiter) onRunwayAvailable(id ID) {
	ar.logger.Debug("runway available", "runway", id.String())
}

// Enqueue places a flight onto the priority queue for its direction (spec
// §8 scenario 2: an Emergency flight must compete inside its own
// direction's queue, not a kind-routed one — see QueueFor).
func (ar *Arbiter) Enqueue(f *flight.Flight) {
	id := QueueFor(f.Aircraft().Direction())
	ar.queues[id].Push(pendingFlight{f: f})
}

// DeniedCount returns the cumulative number of flights that were ever
// pushed to the denied-flights queue.
func (ar *Arbiter) DeniedCount() int {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.deniedTotal
}

// eligibleOrder is the fixed fallback scan order (spec §4.6: "try remaining
// eligible runways in order A, B, C").
var eligibleOrder = []ID{A, B, C}

// tryAssign attempts to place f on runway id, honoring eligibility and the
// RWY-C exclusivity invariant. Returns true on success.
func (ar *Arbiter) tryAssign(f *flight.Flight, id ID, now time.Time) bool {
	ac := f.Aircraft()
	if !Eligible(id, ac.Direction(), ac.Kind()) {
		return false
	}
	rw := ar.runways[id]
	if err := rw.Assign(ac.ID(), ac.Direction(), ac.Kind(), now); err != nil {
		return false
	}
	f.AssignRunway(id.String(), rw)
	return true
}

// assignOne attempts preferred-then-fallback placement for a single
// pending flight. Returns true if it was placed on some runway.
func (ar *Arbiter) assignOne(f *flight.Flight, now time.Time) bool {
	ac := f.Aircraft()
	preferred := Preferred(ac.Direction(), ac.Kind())
	if ar.tryAssign(f, preferred, now) {
		return true
	}
	for _, id := range eligibleOrder {
		if id == preferred {
			continue
		}
		if ar.tryAssign(f, id, now) {
			return true
		}
	}
	return false
}

// AssignDirect attempts to place f on RWY-C immediately, bypassing the
// normal priority queue. Used by cargo-presence invariant enforcement,
// which must try to seat its flight on RWY-C right away rather than wait
// for the next assignment pass (spec §4.7).
func (ar *Arbiter) AssignDirect(f *flight.Flight, now time.Time) bool {
	return ar.tryAssign(f, C, now)
}

// RunAssignmentPass runs one scheduler tick: for each runway's queue, pop
// the top-priority flight and attempt to place it. Flights that cannot be
// placed anywhere eligible go to the denied-flights queue.
func (ar *Arbiter) RunAssignmentPass(now time.Time) {
	for _, id := range All {
		item := ar.queues[id].Pop()
		if item == nil {
			continue
		}
		pf := item.(pendingFlight)
		if !ar.assignOne(pf.f, now) {
			ar.mu.Lock()
			ar.deniedTotal++
			ar.mu.Unlock()
			ar.denied.Push(pf)
			ar.metrics.RecordDenied()
			ar.logger.Info("flight denied runway assignment", "flight", pf.f.ID())
		}
	}
}

// RetryDenied retries up to maxDeniedRetriesPerCycle denied flights (spec
// §4.6, run by the denied-flight task every ~500ms).
func (ar *Arbiter) RetryDenied(now time.Time) {
	items := ar.denied.Drain(maxDeniedRetriesPerCycle)
	for _, item := range items {
		pf := item.(pendingFlight)
		if f := pf.f; f.Status().IsTerminal() {
			continue
		}
		if !ar.assignOne(pf.f, now) {
			ar.denied.Push(pf)
		}
	}
}
