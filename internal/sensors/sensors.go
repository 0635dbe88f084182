// Package sensors defines the contracts the engines consume from the
// surrounding sensor plumbing, plus the observer list used to fan out
// update notifications.
package sensors

import "sync"

// Subscription identifies one registered update callback.
type Subscription uint64

// Sensor is a push-based source. Start registers onUpdate and begins
// sampling if this is the first subscriber; Stop unregisters it and stops
// sampling when no subscribers remain.
type Sensor interface {
	Start(onUpdate func()) (Subscription, error)
	Stop(sub Subscription) error
}

// Barometer reports station pressure in hPa. Zero means no reading yet.
type Barometer interface {
	Sensor
	Pressure() float64
}

// Coordinate is a WGS84 position in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GPS reports position and altitude (m above mean sea level).
// AltitudeAccuracy is the vertical 1-sigma error in meters, when the
// receiver provides one.
type GPS interface {
	Sensor
	HasFix() bool
	Location() Coordinate
	Altitude() float64
	AltitudeAccuracy() (float64, bool)
}

// Listeners is an ordered list of callbacks. Notify calls a snapshot of the
// list taken under the lock, so callbacks may Add or Remove (including
// themselves) while being notified.
type Listeners struct {
	mu        sync.Mutex
	next      Subscription
	callbacks []listener
}

type listener struct {
	sub Subscription
	fn  func()
}

// Add registers fn and returns its subscription.
func (l *Listeners) Add(fn func()) Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.callbacks = append(l.callbacks, listener{sub: l.next, fn: fn})
	return l.next
}

// Remove unregisters sub. It reports whether sub was registered.
func (l *Listeners) Remove(sub Subscription) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cb := range l.callbacks {
		if cb.sub == sub {
			l.callbacks = append(l.callbacks[:i:i], l.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered callbacks
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callbacks)
}

// Notify calls every registered callback on the calling goroutine.
func (l *Listeners) Notify() {
	l.mu.Lock()
	snapshot := make([]func(), len(l.callbacks))
	for i, cb := range l.callbacks {
		snapshot[i] = cb.fn
	}
	l.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}
