package core

import (
	"math/rand"
	"time"

	"github.com/signalsfoundry/cleanup-simulator/model"
)

// Adaptive drones plan their own search path instead of flying a fixed
// pattern: candidate headings are scored each step and the best one wins.
// Straight flight earns a momentum bonus, cells already scanned are
// penalized, each drone prefers its own map quadrant, and a run of
// low-density scans forces a sharp exploratory turn. All randomness comes
// from the engine's seeded source.
const (
	adaptiveSpeedKmh      = 10.0
	adaptiveGridKm        = 1.0
	adaptiveMomentum      = 0.8
	adaptiveMaxStraight   = 10
	adaptiveRevisitWeight = 0.7
	adaptiveAreaWeight    = 0.5
	adaptiveSectorBonus   = 0.5
	adaptiveLowDensity    = 0.2
	adaptiveMaxLowScans   = 5
)

// adaptiveTurnOffsets are the candidate heading changes scored every step.
var adaptiveTurnOffsets = []float64{0, -30, 30, -60, 60, -90, 90, -135, 135, 180}

// AdaptiveDrone is the self-planning pattern variant.
type AdaptiveDrone struct {
	droneBase

	rng *rand.Rand

	visited   map[[2]int]int
	sectorMin Vec2
	sectorMax Vec2
	straight  int
	lowScans  int
}

// NewAdaptiveDrone builds the idx-th drone of an adaptive fleet. Drones are
// scattered over their preferred quadrant with a random initial heading, both
// drawn from rng.
func NewAdaptiveDrone(id string, idx int, bounds Bounds, rng *rand.Rand) *AdaptiveDrone {
	lo, hi := sectorBounds(idx, bounds)
	start := Vec2{
		X: lo.X + rng.Float64()*(hi.X-lo.X),
		Y: lo.Y + rng.Float64()*(hi.Y-lo.Y),
	}
	return &AdaptiveDrone{
		droneBase: droneBase{id: id, pos: start, heading: rng.Float64() * 360},
		rng:       rng,
		visited:   make(map[[2]int]int),
		sectorMin: lo,
		sectorMax: hi,
	}
}

// sectorBounds assigns quadrants round-robin by index: SW, SE, NW, NE.
func sectorBounds(idx int, bounds Bounds) (lo, hi Vec2) {
	mid := bounds.Center()
	switch idx % 4 {
	case 0:
		return Vec2{}, mid
	case 1:
		return Vec2{X: mid.X}, Vec2{X: bounds.WidthKm, Y: mid.Y}
	case 2:
		return Vec2{Y: mid.Y}, Vec2{X: mid.X, Y: bounds.HeightKm}
	default:
		return mid, Vec2{X: bounds.WidthKm, Y: bounds.HeightKm}
	}
}

func (d *AdaptiveDrone) Pattern() Pattern { return PatternAdaptive }

// Report samples like any drone but also feeds the planner: the scan marks
// the current cell visited and tracks the run of low-density results.
func (d *AdaptiveDrone) Report(field *OceanField, step int, at time.Time) model.DensityReport {
	rep := d.droneBase.Report(field, step, at)
	d.visited[d.cellOf(d.pos)]++
	if rep.Density < adaptiveLowDensity {
		d.lowScans++
	} else {
		d.lowScans = 0
	}
	return rep
}

// Step either forces an exploratory turn out of a dead zone or flies the
// best-scoring candidate heading.
func (d *AdaptiveDrone) Step(env *Environment, dtHours float64) {
	stepKm := adaptiveSpeedKmh * dtHours

	if d.lowScans >= adaptiveMaxLowScans {
		// Nothing here for five scans straight: turn 90-180 degrees and take
		// a longer hop out of the area.
		turn := 90 + 90*d.rng.Float64()
		if d.rng.Intn(2) == 1 {
			turn = -turn
		}
		d.heading = normalizeHeading(d.heading + turn)
		d.lowScans = 0
		d.straight = 0
		d.moveTo(env, d.pos.Add(HeadingVector(d.heading).Scale(1.5*stepKm)))
		return
	}

	bestOffset, bestScore := 0.0, -1e9
	for _, off := range adaptiveTurnOffsets {
		h := normalizeHeading(d.heading + off)
		next := d.pos.Add(HeadingVector(h).Scale(stepKm))
		if score := d.score(env, next, off); score > bestScore {
			bestScore, bestOffset = score, off
		}
	}

	if bestOffset == 0 {
		d.straight++
	} else {
		d.straight = 0
	}
	d.heading = normalizeHeading(d.heading + bestOffset)
	d.moveTo(env, d.pos.Add(HeadingVector(d.heading).Scale(stepKm)))
}

// score rates one candidate position. The jitter term keeps equally scored
// headings from always resolving the same way while staying deterministic
// under the run seed.
func (d *AdaptiveDrone) score(env *Environment, next Vec2, offset float64) float64 {
	score := 0.1 * d.rng.Float64()

	if offset == 0 && d.straight < adaptiveMaxStraight {
		score += adaptiveMomentum
	}
	if !env.Bounds.Contains(next) {
		score -= 1.0
	}

	cell := d.cellOf(next)
	if n := d.visited[cell]; n > 0 {
		score -= adaptiveRevisitWeight * float64(min(n, 3))
	}
	score -= adaptiveAreaWeight * d.visitedNeighborFraction(cell)

	if next.X >= d.sectorMin.X && next.X <= d.sectorMax.X &&
		next.Y >= d.sectorMin.Y && next.Y <= d.sectorMax.Y {
		score += adaptiveSectorBonus
	}
	return score
}

// visitedNeighborFraction returns the fraction of the eight neighbor cells
// already scanned.
func (d *AdaptiveDrone) visitedNeighborFraction(cell [2]int) float64 {
	visited := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if d.visited[[2]int{cell[0] + dx, cell[1] + dy}] > 0 {
				visited++
			}
		}
	}
	return float64(visited) / 8
}

func (d *AdaptiveDrone) cellOf(p Vec2) [2]int {
	return [2]int{int(p.X / adaptiveGridKm), int(p.Y / adaptiveGridKm)}
}
