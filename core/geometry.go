package core

import "math"

// Vec2 is a position or displacement on the ocean surface, in kilometres.
// The origin sits at the map's bottom-left corner.
type Vec2 struct {
	X, Y float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec2) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Bounds describes the rectangular map extent in kilometres. Positions are
// valid on [0, Width] x [0, Height].
type Bounds struct {
	WidthKm  float64
	HeightKm float64
}

// Contains reports whether p lies inside the map (edges included).
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= 0 && p.X <= b.WidthKm && p.Y >= 0 && p.Y <= b.HeightKm
}

// Clamp returns the nearest in-bounds point to p and whether clamping was
// needed. Out-of-bounds positions are never an error; callers log and count
// the clamp and the run continues.
func (b Bounds) Clamp(p Vec2) (Vec2, bool) {
	clamped := p
	if clamped.X < 0 {
		clamped.X = 0
	} else if clamped.X > b.WidthKm {
		clamped.X = b.WidthKm
	}
	if clamped.Y < 0 {
		clamped.Y = 0
	} else if clamped.Y > b.HeightKm {
		clamped.Y = b.HeightKm
	}
	return clamped, clamped != p
}

// Center returns the midpoint of the map.
func (b Bounds) Center() Vec2 {
	return Vec2{X: b.WidthKm / 2, Y: b.HeightKm / 2}
}

// Headings are compass degrees: 0 = north (+y), 90 = east (+x), increasing
// clockwise. All motion code goes through these helpers so the convention
// lives in one place.

// HeadingVector returns the unit displacement for a heading in degrees.
func HeadingVector(headingDeg float64) Vec2 {
	sin, cos := math.Sincos(headingDeg * math.Pi / 180)
	return Vec2{X: sin, Y: cos}
}

// HeadingTo returns the compass heading in [0, 360) from `from` toward `to`.
// Coincident points yield heading 0.
func HeadingTo(from, to Vec2) float64 {
	d := to.Sub(from)
	if d.X == 0 && d.Y == 0 {
		return 0
	}
	deg := math.Atan2(d.X, d.Y) * 180 / math.Pi
	return normalizeHeading(deg)
}

// HeadingDiff returns the signed shortest rotation from `from` to `to` in
// degrees, in (-180, 180].
func HeadingDiff(from, to float64) float64 {
	d := math.Mod(to-from+540, 360) - 180
	if d == -180 {
		return 180
	}
	return d
}

func normalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
