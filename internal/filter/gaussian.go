package filter

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Gaussian combines the last N noisy samples, each with its own standard
// deviation, into one normal distribution. The mean is the inverse-variance
// weighted mean and the standard deviation shrinks as consistent samples
// accumulate. It reports Converged once the window is full.
type Gaussian struct {
	size    int
	values  []float64
	weights []float64
	next    int
	count   int
}

// NewGaussian creates an estimator over a window of size samples.
// size values below 1 are treated as 1.
func NewGaussian(size int) *Gaussian {
	if size < 1 {
		size = 1
	}
	return &Gaussian{
		size:    size,
		values:  make([]float64, 0, size),
		weights: make([]float64, 0, size),
	}
}

// Add pushes a sample with standard deviation stdDev. Non-positive or
// non-finite deviations are clamped to a tiny positive value so a perfect
// sample dominates without producing infinities.
func (g *Gaussian) Add(value, stdDev float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	if !(stdDev > 1e-6) || math.IsInf(stdDev, 0) {
		stdDev = 1e-6
	}
	w := 1 / (stdDev * stdDev)

	if len(g.values) < g.size {
		g.values = append(g.values, value)
		g.weights = append(g.weights, w)
	} else {
		g.values[g.next] = value
		g.weights[g.next] = w
	}
	g.next = (g.next + 1) % g.size
	g.count++
}

// Mean returns the joint mean, or 0 with no samples.
func (g *Gaussian) Mean() float64 {
	if len(g.values) == 0 {
		return 0
	}
	return stat.Mean(g.values, g.weights)
}

// StdDev returns the joint standard deviation. ok is false with no samples.
func (g *Gaussian) StdDev() (float64, bool) {
	if len(g.weights) == 0 {
		return 0, false
	}
	var sum float64
	for _, w := range g.weights {
		sum += w
	}
	return math.Sqrt(1 / sum), true
}

// Count returns the number of samples added since the last Reset.
func (g *Gaussian) Count() int {
	return g.count
}

// Converged reports whether the window has been filled.
func (g *Gaussian) Converged() bool {
	return g.count >= g.size
}

// Reset drops all samples.
func (g *Gaussian) Reset() {
	g.values = g.values[:0]
	g.weights = g.weights[:0]
	g.next = 0
	g.count = 0
}
