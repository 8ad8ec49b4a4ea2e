package core

import "math"

// Circular drones fly fixed circles ahead of the catching system rather than
// orbits around it, so the collector steams into freshly scanned water. The
// fleet staggers circle radius, forward distance and phase per drone to keep
// the paths from overlapping.
const (
	// circleAngularRateRadH advances a drone's phase angle per hour.
	circleAngularRateRadH = 1.5
	// circleFollowRateKmh caps how fast the remembered circle center chases
	// the collector. Slightly above the collector's speed so the formation
	// never falls behind, far below a jump that would look like teleporting.
	circleFollowRateKmh = 3.0
	// circleMaxSpeedKmh caps a drone's net displacement in one step.
	circleMaxSpeedKmh = 100.0
)

// CircularDrone orbits a point projected ahead of the catching system. It
// ignores any scan strategy; its geometry is fixed at construction.
type CircularDrone struct {
	droneBase

	center       Vec2 // followed collector position, lags by the follow rate
	circleRadius float64
	forwardKm    float64
	angleRad     float64
}

// NewCircularDrone builds the idx-th drone of a fleet of total, launched at
// the collector's position. Radius, forward distance and initial phase are
// staggered by index.
func NewCircularDrone(id string, idx, total int, start Vec2) *CircularDrone {
	d := &CircularDrone{
		droneBase:    droneBase{id: id, pos: start},
		center:       start,
		circleRadius: 2.0 + 0.5*float64((idx+1)/2) + 2.0*float64(idx),
		forwardKm:    forwardDistanceKm(idx),
		angleRad:     initialPhase(idx, total),
	}
	return d
}

// forwardDistanceKm places drone 0 closest to the collector, drones 1-2 on a
// middle row and everything after on the back row.
func forwardDistanceKm(idx int) float64 {
	switch {
	case idx == 0:
		return 6.0
	case idx <= 2:
		return 9.0
	default:
		return 12.0
	}
}

// initialPhase spreads the first five drones into a fixed formation; larger
// fleets fall back to an even split of the circle.
func initialPhase(idx, total int) float64 {
	switch idx {
	case 0:
		return 0
	case 1:
		return math.Pi / 2
	case 2:
		return 3 * math.Pi / 2
	case 3:
		return math.Pi / 3
	case 4:
		return 5 * math.Pi / 3
	}
	if total <= 0 {
		total = 1
	}
	return 2 * math.Pi * float64(idx) / float64(total)
}

func (d *CircularDrone) Pattern() Pattern { return PatternCircular }

// Step drags the circle center toward the collector, advances the phase angle
// and recomputes the position on the circle projected ahead of the collector.
// The net displacement is capped so a fast-turning collector cannot fling the
// drone across the map.
func (d *CircularDrone) Step(env *Environment, dtHours float64) {
	// Follow the collector without teleporting.
	delta := env.System.Position.Sub(d.center)
	if dist := delta.Norm(); dist > circleFollowRateKmh*dtHours {
		delta = delta.Scale(circleFollowRateKmh * dtHours / dist)
	}
	d.center = d.center.Add(delta)

	d.angleRad = math.Mod(d.angleRad+circleAngularRateRadH*dtHours, 2*math.Pi)

	circleCenter := d.center.Add(HeadingVector(env.System.HeadingDeg).Scale(d.forwardKm))
	sin, cos := math.Sincos(d.angleRad)
	next := circleCenter.Add(Vec2{X: d.circleRadius * sin, Y: d.circleRadius * cos})

	if maxStep := circleMaxSpeedKmh * dtHours; d.pos.DistanceTo(next) > maxStep {
		dir := next.Sub(d.pos)
		next = d.pos.Add(dir.Scale(maxStep / dir.Norm()))
	}

	d.moveTo(env, next)
}
