package core

import "testing"

func TestValueNoiseDeterministic(t *testing.T) {
	a := newValueNoise(42)
	b := newValueNoise(42)

	for i := 0; i < 50; i++ {
		x := float64(i) * 0.37
		y := float64(i) * 0.91
		if got, want := a.FBM(x, y, 4, 2.0, 0.5), b.FBM(x, y, 4, 2.0, 0.5); got != want {
			t.Fatalf("FBM(%g, %g) differs between equal seeds: %v vs %v", x, y, got, want)
		}
	}
}

func TestValueNoiseSeedChangesField(t *testing.T) {
	a := newValueNoise(1)
	b := newValueNoise(2)

	same := true
	for i := 0; i < 50 && same; i++ {
		x := float64(i) * 0.53
		if a.FBM(x, x, 4, 2.0, 0.5) != b.FBM(x, x, 4, 2.0, 0.5) {
			same = false
		}
	}
	if same {
		t.Fatalf("noise fields identical across different seeds")
	}
}

func TestFBMStaysInUnitRange(t *testing.T) {
	n := newValueNoise(7)
	for i := 0; i < 200; i++ {
		x := float64(i%20) * 0.25
		y := float64(i/20) * 0.25
		v := n.FBM(x, y, 6, 2.0, 0.5)
		if v < 0 || v > 1 {
			t.Fatalf("FBM(%g, %g) = %v, want within [0, 1]", x, y, v)
		}
	}
}
