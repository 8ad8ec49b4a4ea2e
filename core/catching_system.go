package core

import (
	"github.com/signalsfoundry/cleanup-simulator/model"
)

// Collector kinematics. The catching system tows its boom at 2.78 km/h and
// can swing its heading 45 degrees over three simulated hours; the boom spans
// 1.4 km.
const (
	SystemSpeedKmh    = 2.78
	SystemMaxTurnDegH = 45.0 / 3.0
	SystemSpanKm      = 1.4

	// SystemActorID names the collector in trajectory logs and reports.
	SystemActorID = "catching_system"
)

// CatchingSystem is the kinematically constrained collector. Each step it
// greedily steers toward the densest drone report and removes density once
// the chosen sample is within reach of the boom.
type CatchingSystem struct {
	pos     Vec2
	heading float64

	totalProcessed float64
}

// NewCatchingSystem builds a collector at start, heading north.
func NewCatchingSystem(start Vec2) *CatchingSystem {
	return &CatchingSystem{pos: start}
}

// ID implements the actor naming used by the run log.
func (c *CatchingSystem) ID() string { return SystemActorID }

// Pose returns the collector's current position and heading.
func (c *CatchingSystem) Pose() Pose {
	return Pose{Position: c.pos, HeadingDeg: c.heading}
}

// TotalProcessed returns the cumulative density removed over the run.
func (c *CatchingSystem) TotalProcessed() float64 { return c.totalProcessed }

// Step selects this step's target from the gathered reports, turns toward it
// no faster than the turn limit, advances speed·dt along the new heading and,
// if the target sample is within half a span of the new position, removes up
// to the sample's density there. It returns the amount actually removed and
// the amount requested; removed < requested means the removal was clamped to
// the available mass. With no reports the collector holds its heading and
// continues straight.
func (c *CatchingSystem) Step(env *Environment, field *OceanField, dtHours float64, reports []model.DensityReport) (removed, requested float64) {
	target, hasTarget := c.selectTarget(reports)

	if hasTarget {
		desired := HeadingTo(c.pos, Vec2{X: target.XKm, Y: target.YKm})
		turn := HeadingDiff(c.heading, desired)
		maxTurn := SystemMaxTurnDegH * dtHours
		if turn > maxTurn {
			turn = maxTurn
		} else if turn < -maxTurn {
			turn = -maxTurn
		}
		c.heading = normalizeHeading(c.heading + turn)
	}

	next := c.pos.Add(HeadingVector(c.heading).Scale(SystemSpeedKmh * dtHours))
	c.pos = env.clamp(SystemActorID, next)

	if !hasTarget {
		return 0, 0
	}
	if c.pos.DistanceTo(Vec2{X: target.XKm, Y: target.YKm}) > SystemSpanKm/2 {
		return 0, 0
	}
	removed = field.RemoveDensity(c.pos, SystemSpanKm/2, target.Density)
	c.totalProcessed += removed
	return removed, target.Density
}

// selectTarget picks the report with the highest density. Ties fall to the
// report closest to the collector, then to the earliest report of the step.
func (c *CatchingSystem) selectTarget(reports []model.DensityReport) (model.DensityReport, bool) {
	if len(reports) == 0 {
		return model.DensityReport{}, false
	}

	best := reports[0]
	bestDist := c.pos.DistanceTo(Vec2{X: best.XKm, Y: best.YKm})
	for _, r := range reports[1:] {
		dist := c.pos.DistanceTo(Vec2{X: r.XKm, Y: r.YKm})
		if r.Density > best.Density || (r.Density == best.Density && dist < bestDist) {
			best, bestDist = r, dist
		}
	}
	return best, true
}
