package model

import "time"

// DensityReport is one drone observation: the aggregate particle mass the
// drone saw around its position, tagged with where and when it was taken.
// Reports for a step are always sampled from the field state as it existed
// at the start of that step.
type DensityReport struct {
	ActorID string
	XKm     float64
	YKm     float64
	Density float64
	Step    int
	At      time.Time // simulated time
}
