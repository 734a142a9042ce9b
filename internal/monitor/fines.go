package monitor

// CalculateFine is a standalone analytics helper distinct from AVN billing
// amounts (spec §4.5 note): a severity-scaled figure used for reporting,
// not the fine actually charged to the airline. Base 1000, escalating to
// 5000 if the worse of the two deviations exceeds 100 km/h.
func CalculateFine(speed, permittedMin, permittedMax float64) float64 {
	overspeed := speed - permittedMax
	underspeed := permittedMin - speed

	worst := overspeed
	if underspeed > worst {
		worst = underspeed
	}
	if worst > 100 {
		return 5000
	}
	return 1000
}
