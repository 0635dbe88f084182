package altimeter

import (
	"sync"

	"github.com/chrissnell/trailsense/internal/filter"
	"github.com/chrissnell/trailsense/internal/sensors"
)

// DefaultGPSAltitudeAccuracy is the 1-sigma error assumed for fixes that
// arrive without a vertical accuracy estimate.
const DefaultGPSAltitudeAccuracy = 10.0

// GaussianAltimeter decorates a GPS, combining the last N fixed altitude
// samples into a joint estimate. It reports HasValidReading once N samples
// have been seen since Start.
type GaussianAltimeter struct {
	gps sensors.GPS

	mu        sync.Mutex
	estimator *filter.Gaussian
	gpsSub    sensors.Subscription
	running   bool

	listeners sensors.Listeners
}

// NewGaussianAltimeter wraps gps with a window of samples fixes
func NewGaussianAltimeter(gps sensors.GPS, samples int) *GaussianAltimeter {
	return &GaussianAltimeter{
		gps:       gps,
		estimator: filter.NewGaussian(samples),
	}
}

// Start subscribes onUpdate. The first subscriber resets the estimate and
// starts the underlying GPS.
func (g *GaussianAltimeter) Start(onUpdate func()) (sensors.Subscription, error) {
	sub := g.listeners.Add(onUpdate)

	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return sub, nil
	}
	g.running = true
	g.estimator.Reset()
	g.mu.Unlock()

	gpsSub, err := g.gps.Start(g.onGPSUpdate)
	if err != nil {
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
		g.listeners.Remove(sub)
		return 0, err
	}

	g.mu.Lock()
	g.gpsSub = gpsSub
	g.mu.Unlock()
	return sub, nil
}

// Stop unsubscribes sub and stops the GPS when nobody is listening.
func (g *GaussianAltimeter) Stop(sub sensors.Subscription) error {
	g.listeners.Remove(sub)
	if g.listeners.Len() > 0 {
		return nil
	}

	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.running = false
	gpsSub := g.gpsSub
	g.mu.Unlock()

	return g.gps.Stop(gpsSub)
}

func (g *GaussianAltimeter) onGPSUpdate() {
	if g.gps.HasFix() {
		accuracy, ok := g.gps.AltitudeAccuracy()
		if !ok {
			accuracy = DefaultGPSAltitudeAccuracy
		}
		g.mu.Lock()
		g.estimator.Add(g.gps.Altitude(), accuracy)
		g.mu.Unlock()
	}
	g.listeners.Notify()
}

// Altitude returns the joint altitude estimate, or 0 with no samples.
func (g *GaussianAltimeter) Altitude() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.estimator.Mean()
}

// AltitudeAccuracy returns the 1-sigma error of the joint estimate.
func (g *GaussianAltimeter) AltitudeAccuracy() (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.estimator.StdDev()
}

// HasValidReading reports whether the estimate has converged.
func (g *GaussianAltimeter) HasValidReading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.estimator.Converged()
}
