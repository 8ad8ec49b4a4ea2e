package core

import "math"

// valueNoise is a seeded lattice value-noise generator used for the ocean
// field's background texture. Same hash-lattice construction as the usual
// fbm helpers; everything is derived from the seed, so fields built with the
// same seed are identical.
type valueNoise struct {
	seed uint32
}

func newValueNoise(seed uint32) *valueNoise {
	return &valueNoise{seed: seed}
}

// FBM sums octaves of value noise at (x, y) and returns a value in [0, 1].
func (n *valueNoise) FBM(x, y float64, octaves int, lacunarity, gain float64) float64 {
	sum := 0.0
	amp := 0.5
	freq := 1.0

	for o := 0; o < octaves; o++ {
		sum += amp * n.at(x*freq, y*freq)
		freq *= lacunarity
		amp *= gain
	}

	if sum < 0 {
		return 0
	}
	if sum > 1 {
		return 1
	}
	return sum
}

// at returns smoothed value noise at a single frequency.
func (n *valueNoise) at(x, y float64) float64 {
	ix := int(math.Floor(x))
	iy := int(math.Floor(y))
	fx := x - float64(ix)
	fy := y - float64(iy)

	a := n.hash(ix, iy)
	b := n.hash(ix+1, iy)
	c := n.hash(ix, iy+1)
	d := n.hash(ix+1, iy+1)

	ux := smoothstep(fx)
	uy := smoothstep(fy)

	ab := a + (b-a)*ux
	cd := c + (d-c)*ux
	return ab + (cd-ab)*uy
}

// hash maps integer lattice coordinates to a pseudo-random float in [0, 1).
func (n *valueNoise) hash(ix, iy int) float64 {
	x := uint32(ix)
	y := uint32(iy)
	h := x*374761393 + y*668265263 + n.seed*1442695041
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h&0x00FFFFFF) / float64(0x01000000)
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}
