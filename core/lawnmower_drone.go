package core

import (
	"math"

	"github.com/signalsfoundry/cleanup-simulator/model"
)

// LawnmowerDrone sweeps parallel rows across the map: H kilometres along x,
// then a V-kilometre advance along y and a reversal. Row geometry and speed
// come from the active scan strategy; the coverage ratios Kw and Kp are
// published data and never influence motion.
type LawnmowerDrone struct {
	droneBase

	strat model.Strategy

	dirX      float64 // +1 sweeping east, -1 west
	dirY      float64 // +1 advancing north, -1 south
	rowStartX float64
	rowsDone  int
}

// NewLawnmowerDrone builds the idx-th drone of a sweep fleet, launched at the
// collector's position. Even and odd indices sweep in opposite direction
// pairs so two drones cover both halves of the map.
func NewLawnmowerDrone(id string, idx int, start Vec2, strat model.Strategy) *LawnmowerDrone {
	dir := 1.0
	heading := 90.0
	if idx%2 == 1 {
		dir = -1.0
		heading = 270.0
	}
	return &LawnmowerDrone{
		droneBase: droneBase{id: id, pos: start, heading: heading},
		strat:     strat,
		dirX:      dir,
		dirY:      dir,
		rowStartX: start.X,
	}
}

func (d *LawnmowerDrone) Pattern() Pattern { return PatternLawnmower }

// Strategy returns the scan strategy driving this drone.
func (d *LawnmowerDrone) Strategy() model.Strategy { return d.strat }

// RowsCompleted returns how many row reversals the drone has performed.
func (d *LawnmowerDrone) RowsCompleted() int { return d.rowsDone }

// Step advances speed·dt along the current row. A row ends after H kilometres
// of travel or at the map bound, whichever comes first; the drone then steps
// V kilometres along y and reverses its x-direction.
func (d *LawnmowerDrone) Step(env *Environment, dtHours float64) {
	x := d.pos.X + d.dirX*d.strat.SpeedKmh*dtHours
	rowEnd := false

	if math.Abs(x-d.rowStartX) >= d.strat.HKm {
		x = d.rowStartX + d.dirX*d.strat.HKm
		rowEnd = true
	}
	if x <= 0 {
		x = 0
		rowEnd = d.dirX < 0
	} else if x >= env.Bounds.WidthKm {
		x = env.Bounds.WidthKm
		rowEnd = d.dirX > 0
	}

	y := d.pos.Y
	if rowEnd {
		y += d.dirY * d.strat.VKm
		d.dirX = -d.dirX
		d.rowStartX = x
		d.rowsDone++
	}

	d.moveTo(env, Vec2{X: x, Y: y})
}
