package flight

import "time"

// Regular arrival/departure offsets (spec §3 FlightPlanStep). Emergency
// plans use exactly half of each regular offset.
var (
	arrivalOffsets   = []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second, 120 * time.Second, 150 * time.Second}
	departureOffsets = []time.Duration{30 * time.Second, 60 * time.Second, 75 * time.Second, 90 * time.Second, 120 * time.Second}
)

func halved(offsets []time.Duration) []time.Duration {
	out := make([]time.Duration, len(offsets))
	for i, o := range offsets {
		out[i] = o / 2
	}
	return out
}

func advance(f *Flight) error {
	return f.aircraft.AdvancePhase()
}

func advanceAndRelease(f *Flight) error {
	if err := f.aircraft.AdvancePhase(); err != nil {
		return err
	}
	return f.ReleaseRunway()
}

func dwell(*Flight) error { return nil }

// BuildArrivalPlan returns the arrival FlightPlan: Holding->Approach->
// Landing->TaxiIn (runway released here)->AtGateArrival, with a final
// dwell step before completion. Emergency halves every offset.
func BuildArrivalPlan(emergency bool) Plan {
	offsets := arrivalOffsets
	if emergency {
		offsets = halved(arrivalOffsets)
	}
	return Plan{Steps: []Step{
		{Offset: offsets[0], Name: "holding->approach", Run: advance},
		{Offset: offsets[1], Name: "approach->landing", Run: advance},
		{Offset: offsets[2], Name: "landing->taxi-in", Run: advanceAndRelease},
		{Offset: offsets[3], Name: "taxi-in->at-gate-arrival", Run: advance},
		{Offset: offsets[4], Name: "gate-dwell", Run: dwell},
	}}
}

// BuildDeparturePlan returns the departure FlightPlan: AtGateDeparture->
// TaxiOut->TakeoffRoll->Climb (runway released here)->Cruise, with a final
// dwell step before completion. Emergency halves every offset.
func BuildDeparturePlan(emergency bool) Plan {
	offsets := departureOffsets
	if emergency {
		offsets = halved(departureOffsets)
	}
	return Plan{Steps: []Step{
		{Offset: offsets[0], Name: "at-gate-departure->taxi-out", Run: advance},
		{Offset: offsets[1], Name: "taxi-out->takeoff-roll", Run: advance},
		{Offset: offsets[2], Name: "takeoff-roll->climb", Run: advanceAndRelease},
		{Offset: offsets[3], Name: "climb->cruise", Run: advance},
		{Offset: offsets[4], Name: "cruise-dwell", Run: dwell},
	}}
}

// PlanBuilderFor returns the regular plan builder appropriate for the given
// arrival/departure direction, for use as a Flight's buildPlan callback.
func PlanBuilderFor(isArrival bool) func(emergency bool) Plan {
	if isArrival {
		return BuildArrivalPlan
	}
	return BuildDeparturePlan
}
