// Package filter provides the smoothing primitives shared by the altimeter
// and the forecast engine: a single-value exponential low-pass filter and a
// windowed joint-Gaussian estimator.
package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidSmoothingFactor is returned when a smoothing factor is outside (0,1)
var ErrInvalidSmoothingFactor = errors.New("smoothing factor must be in (0, 1)")

// LowPass is an exponential low-pass filter:
//
//	smoothed = factor*smoothed + (1-factor)*next
//
// A larger factor keeps more of the history. LowPass is not safe for
// concurrent use.
type LowPass struct {
	factor float64
	value  float64
}

// NewLowPass creates a filter seeded with seed.
func NewLowPass(factor, seed float64) (*LowPass, error) {
	if !(factor > 0 && factor < 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSmoothingFactor, factor)
	}
	return &LowPass{factor: factor, value: seed}, nil
}

// MustLowPass is like NewLowPass but panics on an invalid factor. It is
// meant for factors that are compile-time constants.
func MustLowPass(factor, seed float64) *LowPass {
	f, err := NewLowPass(factor, seed)
	if err != nil {
		panic(err)
	}
	return f
}

// Filter feeds next into the filter and returns the new smoothed value.
func (f *LowPass) Filter(next float64) float64 {
	f.value = f.factor*f.value + (1-f.factor)*next
	return f.value
}

// Value returns the current smoothed value without feeding a sample.
func (f *LowPass) Value() float64 {
	return f.value
}

// Reset reseeds the filter.
func (f *LowPass) Reset(seed float64) {
	f.value = seed
}
