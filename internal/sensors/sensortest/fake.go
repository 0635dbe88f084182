// Package sensortest provides in-memory sensors for tests.
package sensortest

import (
	"errors"
	"sync"

	"github.com/chrissnell/trailsense/internal/sensors"
)

// ErrStartFailed is returned by Start when a fake is configured to fail
var ErrStartFailed = errors.New("sensor failed to start")

// Barometer is a fake sensors.Barometer. Set the pressure with SetPressure,
// which notifies subscribers like a hardware update would.
type Barometer struct {
	mu       sync.Mutex
	pressure float64
	fail     bool

	listeners sensors.Listeners
}

func (b *Barometer) Start(onUpdate func()) (sensors.Subscription, error) {
	b.mu.Lock()
	fail := b.fail
	b.mu.Unlock()
	if fail {
		return 0, ErrStartFailed
	}
	return b.listeners.Add(onUpdate), nil
}

func (b *Barometer) Stop(sub sensors.Subscription) error {
	b.listeners.Remove(sub)
	return nil
}

func (b *Barometer) Pressure() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pressure
}

// SetPressure stores hPa and notifies subscribers
func (b *Barometer) SetPressure(hPa float64) {
	b.mu.Lock()
	b.pressure = hPa
	b.mu.Unlock()
	b.listeners.Notify()
}

// FailStart makes the next Start calls fail
func (b *Barometer) FailStart(fail bool) {
	b.mu.Lock()
	b.fail = fail
	b.mu.Unlock()
}

// Subscribers returns the number of active subscriptions
func (b *Barometer) Subscribers() int {
	return b.listeners.Len()
}

// Fix is one GPS observation
type Fix struct {
	Location    sensors.Coordinate
	Altitude    float64
	Accuracy    float64
	HasAccuracy bool
}

// GPS is a fake sensors.GPS
type GPS struct {
	mu     sync.Mutex
	fix    *Fix
	starts int

	listeners sensors.Listeners
}

func (g *GPS) Start(onUpdate func()) (sensors.Subscription, error) {
	g.mu.Lock()
	g.starts++
	g.mu.Unlock()
	return g.listeners.Add(onUpdate), nil
}

func (g *GPS) Stop(sub sensors.Subscription) error {
	g.listeners.Remove(sub)
	return nil
}

func (g *GPS) HasFix() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fix != nil
}

func (g *GPS) Location() sensors.Coordinate {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fix == nil {
		return sensors.Coordinate{}
	}
	return g.fix.Location
}

func (g *GPS) Altitude() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fix == nil {
		return 0
	}
	return g.fix.Altitude
}

func (g *GPS) AltitudeAccuracy() (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fix == nil {
		return 0, false
	}
	return g.fix.Accuracy, g.fix.HasAccuracy
}

// SetFix stores fix and notifies subscribers
func (g *GPS) SetFix(fix Fix) {
	g.mu.Lock()
	g.fix = &fix
	g.mu.Unlock()
	g.listeners.Notify()
}

// LoseFix clears the fix and notifies subscribers
func (g *GPS) LoseFix() {
	g.mu.Lock()
	g.fix = nil
	g.mu.Unlock()
	g.listeners.Notify()
}

// Subscribers returns the number of active subscriptions
func (g *GPS) Subscribers() int {
	return g.listeners.Len()
}

// Starts returns how many times Start was called
func (g *GPS) Starts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.starts
}
