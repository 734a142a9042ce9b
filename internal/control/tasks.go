package control

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/atcsim/atcsim/internal/aircraft"
	"github.com/atcsim/atcsim/internal/airline"
	"github.com/atcsim/atcsim/internal/flight"
)

// runSimulationTask advances every non-terminal flight on a fixed 100ms
// timestep and runs one arbiter assignment pass per tick (spec §5
// Simulation task).
func (c *Controller) runSimulationTask(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(simTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.clock.IsStopped() {
				return
			}
			c.clock.WaitWhilePaused()
			if c.clock.IsStopped() {
				return
			}

			now := time.Now()
			c.clock.Advance(simTick)
			dt := simTick.Seconds()

			for _, f := range c.snapshotFlights() {
				if err := f.Update(dt, now); err != nil {
					c.logger.ErrorContext(ctx, "flight update failed", "flight", f.ID(), "error", err)
				}
			}
			c.arbiter.RunAssignmentPass(now)

			if c.clock.Elapsed() {
				c.logger.InfoContext(ctx, "simulation duration elapsed", "session", c.sessionID)
				return
			}
		}
	}
}

// runGeneratorTask walks every airline × direction pair every ~100ms,
// invoking schedule_if_needed, then enforces the cargo-presence invariant
// once per cycle (spec §4.7, §5 Flight-generator task).
func (c *Controller) runGeneratorTask(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(generatorTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.clock.IsStopped() {
				return
			}
			c.clock.WaitWhilePaused()
			if c.clock.IsStopped() {
				return
			}

			now := time.Now()
			for _, al := range c.airlines {
				for _, dir := range allDirections {
					c.scheduleIfNeeded(al, dir, now)
				}
			}
			c.enforceCargoPresence(now)
		}
	}
}

// scheduleIfNeeded implements Airline.schedule_if_needed's controller-side
// half: build the aircraft/flight, enqueue it with the arbiter, and
// activate it immediately (spec §4.4; the spec names no separate
// activation trigger, so a newly generated flight activates as soon as it
// exists).
func (c *Controller) scheduleIfNeeded(al *airline.Airline, dir aircraft.Direction, now time.Time) {
	if !al.ShouldSchedule(now, dir) {
		return
	}
	forceEmergency := al.RollEmergency(dir)
	ac := al.CreateAircraft(dir, forceEmergency)
	id := ac.ID()

	if !al.RegisterActive(now, dir, id, ac) {
		return
	}

	f := flight.New(id, ac, now, forceEmergency, flight.PlanBuilderFor(dir.IsArrival()))
	c.addFlight(f)
	c.arbiter.Enqueue(f)
	if err := f.Activate(now); err != nil {
		c.logger.ErrorContext(context.Background(), "flight activation failed", "flight", id, "error", err)
	}
}

// enforceCargoPresence guarantees at least one non-terminal Cargo flight
// exists, per spec §4.7: search airlines in order for a Cargo-primary
// operator; fall back to the first Commercial operator, requesting Cargo
// kind explicitly.
func (c *Controller) enforceCargoPresence(now time.Time) {
	if c.countNonTerminalCargo() > 0 {
		return
	}

	for _, al := range c.airlines {
		if al.Primary() == aircraft.Cargo {
			c.spawnInvariantCargoFlight(al, now)
			return
		}
	}
	for _, al := range c.airlines {
		if al.Primary() == aircraft.Commercial {
			c.spawnInvariantCargoFlight(al, now)
			return
		}
	}
}

// spawnInvariantCargoFlight creates a Cargo-kind flight from al regardless
// of its primary kind, tries to place it on RWY-C immediately, and
// activates it (spec §4.7).
func (c *Controller) spawnInvariantCargoFlight(al *airline.Airline, now time.Time) {
	const dir = aircraft.North

	ac := al.CreateCargoAircraft(dir)
	id := ac.ID()
	al.ForceRegisterActive(now, dir, id, ac)

	f := flight.New(id, ac, now, false, flight.PlanBuilderFor(dir.IsArrival()))
	c.addFlight(f)

	if !c.arbiter.AssignDirect(f, now) {
		c.arbiter.Enqueue(f)
	}
	if err := f.Activate(now); err != nil {
		c.logger.Error("cargo-invariant flight activation failed", "flight", id, "error", err)
	}
	c.logger.Info("cargo-presence invariant enforced", "flight", id, "airline", al.Name())
}

// runMonitoringTask samples every active aircraft's speed against its
// current phase bound every ~200ms, pushes any issued AVN to the sink,
// and reconciles the active-cargo-flights counter (spec §4.5, §4.7, §5
// Monitoring task).
func (c *Controller) runMonitoringTask(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(monitoringTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.clock.IsStopped() {
				return
			}
			c.clock.WaitWhilePaused()
			if c.clock.IsStopped() {
				return
			}

			now := time.Now()
			flights := c.snapshotFlights()

			actualCargo := 0
			for _, f := range flights {
				if f.Status().IsTerminal() {
					continue
				}
				if f.Aircraft().Kind() == aircraft.Cargo {
					actualCargo++
				}

				airlineName := f.Aircraft().AirlineID()
				avn := c.monitor.Monitor(f.Aircraft(), airlineName, f.ID(), now)
				if avn == nil {
					continue
				}
				if al, ok := c.airlineIdx[airlineName]; ok {
					al.RecordViolation()
				}
				if err := c.sink.PushAVN(avn); err != nil {
					c.logger.ErrorContext(ctx, "avn push failed, retained for retry", "avn_id", avn.ID, "error", err)
				}
			}

			if prev := atomic.SwapInt64(&c.activeCargoFlights, int64(actualCargo)); prev != int64(actualCargo) {
				c.logger.DebugContext(ctx, "active_cargo_flights reconciled", "previous", prev, "actual", actualCargo)
			}
			c.metrics.SetActiveCargoFlights(actualCargo)
			c.monitor.RefreshOverdue(now)
		}
	}
}

// runDeniedFlightTask retries up to five denied flights every ~500ms
// (spec §4.6, §5 Denied-flight task).
func (c *Controller) runDeniedFlightTask(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(deniedRetryTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.clock.IsStopped() {
				return
			}
			c.clock.WaitWhilePaused()
			if c.clock.IsStopped() {
				return
			}
			c.arbiter.RetryDenied(time.Now())
		}
	}
}
