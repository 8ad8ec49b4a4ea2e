package core

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// FieldConfig describes the initial particle distribution of an ocean field.
type FieldConfig struct {
	// ClusterCount is the number of high-density patches seeded into the field.
	ClusterCount int
	// ClusterPeak is the density added at the center of each patch.
	ClusterPeak float64
	// ClusterRadiusKm controls the Gaussian falloff of each patch.
	ClusterRadiusKm float64
	// BaseNoise scales a low-amplitude noise layer applied across the whole map.
	BaseNoise float64
}

// OceanField is a uniform 2-D grid of particle density over the map bounds.
// Density is mass per cell, not per km²; all aggregate operations work on cell
// values directly so that total mass is exactly the sum over cells.
type OceanField struct {
	bounds  Bounds
	cellKm  float64
	nx, ny  int
	cells   []float64
	scratch []float64
}

// NewOceanField builds a field over bounds with the given cell size and seeds
// it from cfg. All randomness (cluster placement, cluster amplitude, the noise
// layer) is drawn from rng, so two fields built from equally-seeded sources
// are identical.
func NewOceanField(bounds Bounds, cellKm float64, cfg FieldConfig, rng *rand.Rand) *OceanField {
	nx := int(math.Ceil(bounds.WidthKm / cellKm))
	ny := int(math.Ceil(bounds.HeightKm / cellKm))
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}

	f := &OceanField{
		bounds:  bounds,
		cellKm:  cellKm,
		nx:      nx,
		ny:      ny,
		cells:   make([]float64, nx*ny),
		scratch: make([]float64, nx*ny),
	}

	if cfg.BaseNoise > 0 {
		noise := newValueNoise(rng.Uint32())
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				x := (float64(i) + 0.5) * cellKm
				y := (float64(j) + 0.5) * cellKm
				f.cells[j*nx+i] = cfg.BaseNoise * noise.FBM(x*0.05, y*0.05, 4, 2.0, 0.5)
			}
		}
	}

	for c := 0; c < cfg.ClusterCount; c++ {
		cx := rng.Float64() * bounds.WidthKm
		cy := rng.Float64() * bounds.HeightKm
		peak := cfg.ClusterPeak * (0.6 + 0.4*rng.Float64())
		f.addCluster(cx, cy, peak, cfg.ClusterRadiusKm)
	}

	return f
}

// addCluster deposits a Gaussian patch of density centered at (cx, cy) km.
func (f *OceanField) addCluster(cx, cy, peak, radiusKm float64) {
	if radiusKm <= 0 || peak <= 0 {
		return
	}
	// Beyond three radii the contribution is negligible.
	reach := 3 * radiusKm
	i0, i1 := f.clampIndexX(cx-reach), f.clampIndexX(cx+reach)
	j0, j1 := f.clampIndexY(cy-reach), f.clampIndexY(cy+reach)
	inv := 1 / (2 * radiusKm * radiusKm)

	for j := j0; j <= j1; j++ {
		y := (float64(j) + 0.5) * f.cellKm
		for i := i0; i <= i1; i++ {
			x := (float64(i) + 0.5) * f.cellKm
			dx := x - cx
			dy := y - cy
			f.cells[j*f.nx+i] += peak * math.Exp(-(dx*dx+dy*dy)*inv)
		}
	}
}

// Drift advects the whole field downwind by wind×dt. Every cell's mass is
// redistributed bilinearly at its displaced position; destinations outside the
// map are clamped to the nearest edge cell, so mass accumulates along the
// downwind boundary instead of leaving the field. Total mass is unchanged.
func (f *OceanField) Drift(windXKmh, windYKmh, dtHours float64) {
	sx := windXKmh * dtHours / f.cellKm
	sy := windYKmh * dtHours / f.cellKm
	if sx == 0 && sy == 0 {
		return
	}

	next := f.scratch
	for i := range next {
		next[i] = 0
	}

	for j := 0; j < f.ny; j++ {
		for i := 0; i < f.nx; i++ {
			m := f.cells[j*f.nx+i]
			if m == 0 {
				continue
			}

			x := clampFloat(float64(i)+sx, 0, float64(f.nx-1))
			y := clampFloat(float64(j)+sy, 0, float64(f.ny-1))

			i0 := int(math.Floor(x))
			j0 := int(math.Floor(y))
			i1 := i0 + 1
			j1 := j0 + 1
			if i1 > f.nx-1 {
				i1 = f.nx - 1
			}
			if j1 > f.ny-1 {
				j1 = f.ny - 1
			}
			fx := x - float64(i0)
			fy := y - float64(j0)

			next[j0*f.nx+i0] += m * (1 - fx) * (1 - fy)
			next[j0*f.nx+i1] += m * fx * (1 - fy)
			next[j1*f.nx+i0] += m * (1 - fx) * fy
			next[j1*f.nx+i1] += m * fx * fy
		}
	}

	f.cells, f.scratch = next, f.cells
}

// SampleDensity returns the total density of all cells whose centers lie
// within radiusKm of center. The cell containing the sample point is always
// included, so a sample is never blind at its own position.
func (f *OceanField) SampleDensity(center Vec2, radiusKm float64) float64 {
	sum := 0.0
	f.forEachCellIn(center, radiusKm, func(idx int) {
		sum += f.cells[idx]
	})
	return sum
}

// RemoveDensity removes up to amount of density from the cells within radiusKm
// of center, proportionally to each cell's share of the sampled total, and
// returns the amount actually removed. Requests exceeding the available
// density are clamped; no cell ever goes negative.
func (f *OceanField) RemoveDensity(center Vec2, radiusKm, amount float64) float64 {
	if amount <= 0 {
		return 0
	}

	available := f.SampleDensity(center, radiusKm)
	if available <= 0 {
		return 0
	}

	if amount >= available {
		f.forEachCellIn(center, radiusKm, func(idx int) {
			f.cells[idx] = 0
		})
		return available
	}

	factor := 1 - amount/available
	f.forEachCellIn(center, radiusKm, func(idx int) {
		f.cells[idx] *= factor
	})
	return amount
}

// forEachCellIn visits every cell whose center lies within radiusKm of center,
// plus the cell containing the center itself. Without the containing cell a
// sample taken near a cell corner would see nothing at all.
func (f *OceanField) forEachCellIn(center Vec2, radiusKm float64, fn func(idx int)) {
	ci := f.clampIndexX(center.X)
	cj := f.clampIndexY(center.Y)
	if radiusKm < f.cellKm/2 {
		radiusKm = f.cellKm / 2
	}
	i0, i1 := f.clampIndexX(center.X-radiusKm), f.clampIndexX(center.X+radiusKm)
	j0, j1 := f.clampIndexY(center.Y-radiusKm), f.clampIndexY(center.Y+radiusKm)
	r2 := radiusKm * radiusKm

	for j := j0; j <= j1; j++ {
		y := (float64(j) + 0.5) * f.cellKm
		for i := i0; i <= i1; i++ {
			x := (float64(i) + 0.5) * f.cellKm
			dx := x - center.X
			dy := y - center.Y
			if dx*dx+dy*dy <= r2 || (i == ci && j == cj) {
				fn(j*f.nx + i)
			}
		}
	}
}

// TotalMass returns the sum of all cell densities.
func (f *OceanField) TotalMass() float64 {
	return floats.Sum(f.cells)
}

// MaxCellDensity returns the largest single-cell density in the field.
func (f *OceanField) MaxCellDensity() float64 {
	if len(f.cells) == 0 {
		return 0
	}
	return floats.Max(f.cells)
}

// Bounds returns the map extent the field covers.
func (f *OceanField) Bounds() Bounds { return f.bounds }

// CellKm returns the grid cell size in km.
func (f *OceanField) CellKm() float64 { return f.cellKm }

// GridSize returns the number of cells along x and y.
func (f *OceanField) GridSize() (nx, ny int) { return f.nx, f.ny }

func (f *OceanField) clampIndexX(xKm float64) int {
	i := int(math.Floor(xKm / f.cellKm))
	if i < 0 {
		return 0
	}
	if i > f.nx-1 {
		return f.nx - 1
	}
	return i
}

func (f *OceanField) clampIndexY(yKm float64) int {
	j := int(math.Floor(yKm / f.cellKm))
	if j < 0 {
		return 0
	}
	if j > f.ny-1 {
		return f.ny - 1
	}
	return j
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
