package core

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/signalsfoundry/cleanup-simulator/model"
)

// DroneScanRadiusKm is the sampling radius of a drone's density report. The
// airframes carry a 300 m field of view.
const DroneScanRadiusKm = 0.3

// Pattern selects a drone movement behavior. The set is closed; dispatch goes
// through the Drone contract rather than inheritance.
type Pattern string

const (
	PatternCircular  Pattern = "circular"
	PatternLawnmower Pattern = "lawnmower"
	PatternAdaptive  Pattern = "adaptive"
)

// ParsePattern maps a configuration string onto a Pattern.
func ParsePattern(s string) (Pattern, error) {
	switch Pattern(strings.ToLower(strings.TrimSpace(s))) {
	case PatternCircular:
		return PatternCircular, nil
	case PatternLawnmower:
		return PatternLawnmower, nil
	case PatternAdaptive:
		return PatternAdaptive, nil
	}
	return "", fmt.Errorf("%w: unknown pattern %q", ErrConfiguration, s)
}

// DefaultDroneCount returns the fleet size used when a scenario does not set
// one.
func (p Pattern) DefaultDroneCount() int {
	switch p {
	case PatternLawnmower:
		return 2
	case PatternAdaptive:
		return 4
	default:
		return 5
	}
}

// Pose is an actor's position and heading at a step boundary.
type Pose struct {
	Position   Vec2
	HeadingDeg float64
}

// Environment is the per-step world view handed to stepping actors: map
// bounds plus the collector's pose from the start of the step. OnClamp, when
// set, observes every position that had to be pulled back inside the map.
type Environment struct {
	Bounds  Bounds
	System  Pose
	OnClamp func(actorID string, raw, clamped Vec2)
}

// clamp pulls p into bounds, reporting through OnClamp when it moved.
func (e *Environment) clamp(actorID string, p Vec2) Vec2 {
	clamped, moved := e.Bounds.Clamp(p)
	if moved && e.OnClamp != nil {
		e.OnClamp(actorID, p, clamped)
	}
	return clamped
}

// Drone is the shared contract of all movement patterns. Step advances
// position and heading by one tick of dt hours; Report samples the field at
// the drone's current position without mutating it.
type Drone interface {
	ID() string
	Pattern() Pattern
	Pose() Pose
	Step(env *Environment, dtHours float64)
	Report(field *OceanField, step int, at time.Time) model.DensityReport
}

// droneBase carries the state shared by every pattern variant.
type droneBase struct {
	id      string
	pos     Vec2
	heading float64
}

func (d *droneBase) ID() string { return d.id }

func (d *droneBase) Pose() Pose {
	return Pose{Position: d.pos, HeadingDeg: d.heading}
}

func (d *droneBase) Report(field *OceanField, step int, at time.Time) model.DensityReport {
	return model.DensityReport{
		ActorID: d.id,
		XKm:     d.pos.X,
		YKm:     d.pos.Y,
		Density: field.SampleDensity(d.pos, DroneScanRadiusKm),
		Step:    step,
		At:      at,
	}
}

// moveTo clamps the desired position into bounds, derives the new heading
// from the actual displacement and commits the move. Zero displacement keeps
// the previous heading.
func (d *droneBase) moveTo(env *Environment, p Vec2) {
	p = env.clamp(d.id, p)
	if p != d.pos {
		d.heading = HeadingTo(d.pos, p)
	}
	d.pos = p
}

// NewDroneFleet builds count drones of the given pattern with the standard
// staggering: lawnmower drones launch from the collector with alternating
// sweep directions, circular drones spread over offset circles ahead of it,
// adaptive drones scatter over their preferred map quadrants. Placement draws
// only from rng.
func NewDroneFleet(pattern Pattern, count int, start Vec2, strat model.Strategy, bounds Bounds, rng *rand.Rand) []Drone {
	drones := make([]Drone, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("drone_%d", i)
		switch pattern {
		case PatternLawnmower:
			drones = append(drones, NewLawnmowerDrone(id, i, start, strat))
		case PatternAdaptive:
			drones = append(drones, NewAdaptiveDrone(id, i, bounds, rng))
		default:
			drones = append(drones, NewCircularDrone(id, i, count, start))
		}
	}
	return drones
}
