package filter

import (
	"errors"
	"math"
	"testing"
)

func TestNewLowPassRejectsInvalidFactor(t *testing.T) {
	for _, factor := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		if _, err := NewLowPass(factor, 0); !errors.Is(err, ErrInvalidSmoothingFactor) {
			t.Errorf("NewLowPass(%v) error = %v, expected ErrInvalidSmoothingFactor", factor, err)
		}
	}
}

func TestLowPassFilter(t *testing.T) {
	tests := []struct {
		name     string
		factor   float64
		seed     float64
		inputs   []float64
		expected []float64
	}{
		{
			name:     "constant input is a fixed point",
			factor:   0.9,
			seed:     1013,
			inputs:   []float64{1013, 1013, 1013},
			expected: []float64{1013, 1013, 1013},
		},
		{
			name:     "weighted running average",
			factor:   0.9,
			seed:     1000,
			inputs:   []float64{1010, 1010},
			expected: []float64{1001, 1001.9},
		},
		{
			name:     "light smoothing follows input",
			factor:   0.5,
			seed:     0,
			inputs:   []float64{8, 8, 0},
			expected: []float64{4, 6, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := MustLowPass(tt.factor, tt.seed)
			for i, in := range tt.inputs {
				got := f.Filter(in)
				if math.Abs(got-tt.expected[i]) > 1e-9 {
					t.Errorf("step %d: expected %.4f, got %.4f", i, tt.expected[i], got)
				}
			}
			if math.Abs(f.Value()-tt.expected[len(tt.expected)-1]) > 1e-9 {
				t.Errorf("Value() = %.4f, expected last filtered value", f.Value())
			}
		})
	}
}

func TestLowPassDeterministic(t *testing.T) {
	inputs := []float64{1012.3, 1012.9, 1011.7, 1013.4, 1012.2}
	a := MustLowPass(0.8, 1012)
	b := MustLowPass(0.8, 1012)
	for _, in := range inputs {
		if a.Filter(in) != b.Filter(in) {
			t.Fatal("filters with identical seeds and inputs diverged")
		}
	}
}

func TestGaussian(t *testing.T) {
	g := NewGaussian(4)

	if _, ok := g.StdDev(); ok {
		t.Fatal("StdDev should not be available without samples")
	}
	if g.Converged() {
		t.Fatal("empty estimator should not be converged")
	}

	g.Add(100, 5)
	g.Add(110, 5)
	g.Add(105, 5)
	if g.Converged() {
		t.Fatal("estimator converged before window was full")
	}
	g.Add(105, 5)
	if !g.Converged() {
		t.Fatal("estimator should converge once window is full")
	}

	if math.Abs(g.Mean()-105) > 1e-9 {
		t.Errorf("Mean() = %.4f, expected 105", g.Mean())
	}
	sd, _ := g.StdDev()
	if math.Abs(sd-2.5) > 1e-9 {
		t.Errorf("StdDev() = %.4f, expected 2.5 (5/sqrt(4))", sd)
	}
}

func TestGaussianWeightsPreciseSamples(t *testing.T) {
	g := NewGaussian(2)
	g.Add(100, 1)
	g.Add(200, 10)

	// weights 1 and 0.01
	expected := (100*1 + 200*0.01) / 1.01
	if math.Abs(g.Mean()-expected) > 1e-9 {
		t.Errorf("Mean() = %.4f, expected %.4f", g.Mean(), expected)
	}
}

func TestGaussianWindowRolls(t *testing.T) {
	g := NewGaussian(2)
	g.Add(10, 1)
	g.Add(20, 1)
	g.Add(30, 1)

	if math.Abs(g.Mean()-25) > 1e-9 {
		t.Errorf("Mean() = %.4f, expected 25 after oldest sample rolled out", g.Mean())
	}
	if g.Count() != 3 {
		t.Errorf("Count() = %d, expected 3", g.Count())
	}

	g.Reset()
	if g.Count() != 0 || g.Mean() != 0 {
		t.Errorf("Reset did not clear the estimator")
	}
}
