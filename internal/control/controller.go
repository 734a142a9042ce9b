package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/atcsim/atcsim/internal/aircraft"
	"github.com/atcsim/atcsim/internal/airline"
	"github.com/atcsim/atcsim/internal/flight"
	"github.com/atcsim/atcsim/internal/monitor"
	"github.com/atcsim/atcsim/internal/runway"
)

// simTick is the simulation task's fixed timestep, capped at 100ms (spec
// §5).
const simTick = 100 * time.Millisecond

// generatorTick is the flight-generator task's cadence (spec §5).
const generatorTick = 100 * time.Millisecond

// monitoringTick is the monitoring task's cadence (spec §5).
const monitoringTick = 200 * time.Millisecond

// deniedRetryTick is the denied-flight task's cadence (spec §5).
const deniedRetryTick = 500 * time.Millisecond

// allDirections is the fixed scan order the generator walks per airline
// per cycle.
var allDirections = []aircraft.Direction{aircraft.North, aircraft.South, aircraft.East, aircraft.West}

// AVNSink receives every AVN as it is issued, decoupling the monitoring
// task from however the AVN eventually leaves the process (IPC bridge,
// dashboard, metrics) — the core only ever talks to this interface (spec
// §9 design note: sink abstraction instead of direct emission).
type AVNSink interface {
	PushAVN(avn *monitor.AVN) error
}

// noopSink discards AVNs; used when the controller is constructed without
// an explicit sink (e.g. in tests).
type noopSink struct{}

func (noopSink) PushAVN(*monitor.AVN) error { return nil }

// MetricsSink receives every scheduling/occupancy/cargo-gauge event the
// simulation produces (SPEC_FULL.md §6 metrics exposition), declared
// independently of the metrics package to avoid an import cycle. Its
// method set is a superset of runway.MetricsSink so a single value can be
// forwarded straight into the Arbiter this Controller owns. Satisfied
// structurally by *metrics.Registry.
type MetricsSink interface {
	SetActiveCargoFlights(n int)
	RecordDenied()
	RecordRunwayAssignment(runwayID string)
	AddRunwayOccupancy(runwayID string, seconds float64)
}

// noopMetricsSink discards every event; the default when no sink is wired.
type noopMetricsSink struct{}

func (noopMetricsSink) SetActiveCargoFlights(int)                {}
func (noopMetricsSink) RecordDenied()                            {}
func (noopMetricsSink) RecordRunwayAssignment(string)            {}
func (noopMetricsSink) AddRunwayOccupancy(string, float64)       {}

// ErrAlreadyRunning is returned by Start if called more than once.
var ErrAlreadyRunning = errors.New("control: simulation already running")

// ErrUnknownAVN is returned when an AVN id has no matching record.
var ErrUnknownAVN = errors.New("control: unknown avn id")

// ErrUnknownAirline is returned when an airline name has no matching
// roster entry.
var ErrUnknownAirline = errors.New("control: unknown airline")

// StatusReport is the snapshot returned by the `status` CLI command (spec
// §6).
type StatusReport struct {
	SessionID         string
	Running           bool
	CurrentTime       time.Duration
	RemainingTime     time.Duration
	ActiveFlights     int
	ActiveCargoFlights int
	RunwayOccupancy   map[string]string
	DeniedFlights     int
	TotalViolations   int
}

// Controller is the SimulationController: owns the clock, the runway
// arbiter, the speed monitor, the airline roster, and the four worker
// tasks that drive the whole simulation forward (spec §4.7, §5). Adapted
// from the teacher's ticker-driven Engine (internal/simulation/engine.go
// and the rest of the pack's ticker+mutex pattern), generalized from a
// single synchronous Calculate pass into four independently-paced
// goroutines coordinated through one shared Clock.
type Controller struct {
	mu sync.RWMutex

	sessionID uuid.UUID
	logger    *slog.Logger
	sink      AVNSink
	metrics   MetricsSink

	clock   *Clock
	arbiter *runway.Arbiter
	monitor *monitor.SpeedMonitor

	airlines   []*airline.Airline
	airlineIdx map[string]*airline.Airline
	flights    map[string]*flight.Flight

	activeCargoFlights int64
	deniedLogged       int64

	wg      sync.WaitGroup
	started bool
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithSink overrides the default no-op AVN sink.
func WithSink(sink AVNSink) Option {
	return func(c *Controller) { c.sink = sink }
}

// WithMetrics overrides the default no-op metrics sink, forwarded to the
// Arbiter this Controller constructs so runway assignment/occupancy/denial
// events are observable alongside the cargo-presence gauge.
func WithMetrics(m MetricsSink) Option {
	return func(c *Controller) { c.metrics = m }
}

// New constructs a Controller for the given duration, seeded
// deterministically from seed so every task's RNG is reproducible from a
// single master seed (spec §9 design note).
func New(duration time.Duration, seed int64, logger *slog.Logger, opts ...Option) *Controller {
	if duration <= 0 {
		duration = DefaultDuration
	}
	master := rand.New(rand.NewSource(seed))

	c := &Controller{
		sessionID:  uuid.New(),
		logger:     logger,
		sink:       noopSink{},
		metrics:    noopMetricsSink{},
		clock:      NewClock(duration),
		monitor:    monitor.New(logger),
		airlineIdx: make(map[string]*airline.Airline),
		flights:    make(map[string]*flight.Flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.arbiter = runway.NewArbiter(logger, runway.WithMetrics(c.metrics))

	for _, entry := range airline.Roster {
		rng := rand.New(rand.NewSource(master.Int63()))
		al := airline.New(entry, rng)
		c.airlines = append(c.airlines, al)
		c.airlineIdx[al.Name()] = al
	}
	return c
}

// SessionID returns the controller's correlation id, included in status
// reports and IPC session setup.
func (c *Controller) SessionID() uuid.UUID { return c.sessionID }

// Start launches the four worker tasks and marks the clock running. It
// returns immediately. The simulation task exits once the configured
// duration elapses; the generator, monitoring and denied-flight tasks keep
// running until Stop is called or ctx is canceled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.started = true
	c.mu.Unlock()

	c.clock.Start()

	c.wg.Add(4)
	go c.runSimulationTask(ctx)
	go c.runGeneratorTask(ctx)
	go c.runMonitoringTask(ctx)
	go c.runDeniedFlightTask(ctx)

	c.logger.InfoContext(ctx, "simulation started", "session", c.sessionID, "duration", c.clock.duration)
	return nil
}

// Pause toggles the shared pause condition, blocking all four workers at
// their next loop boundary.
func (c *Controller) Pause() { c.clock.Pause() }

// Resume releases workers blocked on pause.
func (c *Controller) Resume() { c.clock.Resume() }

// Stop sets the termination flag, wakes every blocked worker, and waits
// for all four to exit before returning (spec §5: "joins all workers
// within the call's lifetime").
func (c *Controller) Stop() {
	c.clock.Stop()
	c.wg.Wait()
}

// Reset clears the clock back to zero. Must be called after Stop.
func (c *Controller) Reset() { c.clock.Reset() }

// IsRunning reports whether the simulation is actively ticking.
func (c *Controller) IsRunning() bool { return c.clock.IsRunning() }

// CurrentTime returns the elapsed simulation duration.
func (c *Controller) CurrentTime() time.Duration { return c.clock.CurrentTime() }

// RemainingTime returns the time left before the configured duration
// elapses.
func (c *Controller) RemainingTime() time.Duration { return c.clock.RemainingTime() }

func (c *Controller) addFlight(f *flight.Flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flights[f.ID()] = f
	if f.Aircraft().Kind() == aircraft.Cargo {
		atomic.AddInt64(&c.activeCargoFlights, 1)
	}
}

func (c *Controller) snapshotFlights() []*flight.Flight {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*flight.Flight, 0, len(c.flights))
	for _, f := range c.flights {
		out = append(out, f)
	}
	return out
}

func (c *Controller) countNonTerminalCargo() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, f := range c.flights {
		if f.Aircraft().Kind() == aircraft.Cargo && !f.Status().IsTerminal() {
			n++
		}
	}
	return n
}

// Status returns a snapshot of the simulation's current state (spec §6
// `status`).
func (c *Controller) Status() StatusReport {
	flights := c.snapshotFlights()
	active := 0
	for _, f := range flights {
		if !f.Status().IsTerminal() {
			active++
		}
	}

	occ := make(map[string]string, len(runway.All))
	for _, id := range runway.All {
		occ[id.String()] = c.arbiter.Runway(id).Status().String()
	}

	totalViolations := 0
	for _, al := range c.airlines {
		totalViolations += al.ViolationCount()
	}

	return StatusReport{
		SessionID:          c.sessionID.String(),
		Running:            c.IsRunning(),
		CurrentTime:        c.CurrentTime(),
		RemainingTime:      c.RemainingTime(),
		ActiveFlights:      active,
		ActiveCargoFlights: int(atomic.LoadInt64(&c.activeCargoFlights)),
		RunwayOccupancy:    occ,
		DeniedFlights:      c.arbiter.DeniedCount(),
		TotalViolations:    totalViolations,
	}
}

// ListUnpaidAVNs returns every AVN not currently Paid (spec §6
// `list-avns`).
func (c *Controller) ListUnpaidAVNs() []*monitor.AVN {
	c.monitor.RefreshOverdue(time.Now())
	all := c.monitor.All()
	out := make([]*monitor.AVN, 0, len(all))
	for _, avn := range all {
		if avn.Status != monitor.Paid {
			out = append(out, avn)
		}
	}
	return out
}

// RequestPayment submits a payment request for the given AVN: it pushes a
// PAYMENT_REQUEST record to the sink but leaves the AVN Unpaid until the
// external collaborator's PAYMENT_CONFIRMATION arrives via
// ConfirmPayment (spec §6 `pay-avn`, §8 scenario 6).
func (c *Controller) RequestPayment(id int, amount float64) error {
	avn := c.monitor.Get(id)
	if avn == nil {
		return fmt.Errorf("%w: %d", ErrUnknownAVN, id)
	}
	if avn.Status == monitor.Paid {
		return fmt.Errorf("monitor: %w", monitor.ErrNotUnpaid)
	}
	return c.sink.PushAVN(avn)
}

// ConfirmPayment marks the given AVN Paid once the external collaborator
// confirms payment over IPC (spec §8 scenario 6).
func (c *Controller) ConfirmPayment(id int) error {
	return c.monitor.Pay(id)
}

// QueryAirline returns every AVN issued against the named airline (spec
// §6 `query-airline`).
func (c *Controller) QueryAirline(name string) ([]*monitor.AVN, error) {
	c.mu.RLock()
	_, ok := c.airlineIdx[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAirline, name)
	}

	var out []*monitor.AVN
	for _, avn := range c.monitor.All() {
		if avn.AirlineName == name {
			out = append(out, avn)
		}
	}
	return out, nil
}
