// Package altimeter fuses barometric and GPS altitude into one estimate.
//
// The barometer gives a smooth, precise relative altitude but drifts with
// the weather; the GPS gives an absolute but noisy altitude. The fused
// altimeter keeps a sea-level pressure baseline to turn pressure into
// altitude, blends in the GPS altitude with a weight derived from its
// vertical accuracy, and re-anchors the baseline to the GPS at most once
// per baseline validity window.
package altimeter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chrissnell/trailsense/internal/calibration"
	"github.com/chrissnell/trailsense/internal/filter"
	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/internal/schedule"
	"github.com/chrissnell/trailsense/internal/sensors"
	"github.com/chrissnell/trailsense/pkg/meteorology"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned by New for a malformed Config
var ErrInvalidConfig = errors.New("invalid altimeter configuration")

// Config holds the fusion parameters
type Config struct {
	// ContinuousCalibration blends the GPS into every update. When false the
	// altitude tracks the barometer only and the GPS is used solely to
	// re-anchor the baseline once it expires.
	ContinuousCalibration bool

	// GPSSamples is the number of fixes the GPS smoothing window needs
	// before it is trusted for calibration.
	GPSSamples int

	// UpdateInterval is the period of the fusion tick
	UpdateInterval time.Duration

	// MinAlpha and MaxAlpha bound the barometer's share of the blend.
	// A perfect GPS gets weight 1-MinAlpha, a GPS at MaxGPSError or worse
	// gets 1-MaxAlpha.
	MinAlpha float64
	MaxAlpha float64

	// MaxGPSError is the vertical accuracy (m) at which the GPS weight
	// bottoms out.
	MaxGPSError float64

	// BarometerSmoothing is the low-pass factor applied to raw pressure
	BarometerSmoothing float64
}

// DefaultConfig returns the standard fusion parameters
func DefaultConfig() Config {
	return Config{
		ContinuousCalibration: true,
		GPSSamples:            4,
		UpdateInterval:        200 * time.Millisecond,
		MinAlpha:              0.96,
		MaxAlpha:              0.999,
		MaxGPSError:           5,
		BarometerSmoothing:    0.9,
	}
}

// Validate checks the configuration for programmer errors
func (c Config) Validate() error {
	switch {
	case c.GPSSamples < 1:
		return fmt.Errorf("%w: gps samples must be at least 1, got %d", ErrInvalidConfig, c.GPSSamples)
	case c.UpdateInterval <= 0:
		return fmt.Errorf("%w: update interval must be positive, got %s", ErrInvalidConfig, c.UpdateInterval)
	case !(c.MinAlpha >= 0 && c.MinAlpha < c.MaxAlpha && c.MaxAlpha <= 1):
		return fmt.Errorf("%w: need 0 <= min alpha < max alpha <= 1, got %v and %v", ErrInvalidConfig, c.MinAlpha, c.MaxAlpha)
	case !(c.MaxGPSError > 0):
		return fmt.Errorf("%w: max gps error must be positive, got %v", ErrInvalidConfig, c.MaxGPSError)
	}
	if _, err := filter.NewLowPass(c.BarometerSmoothing, 0); err != nil {
		return fmt.Errorf("%w: barometer smoothing: %v", ErrInvalidConfig, err)
	}
	return nil
}

// FusedAltimeter combines a barometer and a GPS into one altitude.
type FusedAltimeter struct {
	gps          sensors.GPS
	barometer    sensors.Barometer
	gpsAltimeter *GaussianAltimeter
	baseline     *calibration.Baseline
	cfg          Config
	logger       *zap.SugaredLogger

	mu               sync.Mutex
	session          *session
	pressureFilter   *filter.LowPass
	filteredPressure float64
	filteredAltitude float64
	hasAltitude      bool

	listeners sensors.Listeners
}

// session is one Start/Stop cycle. Ticks carry the session they were
// started for and are discarded once it is no longer current.
type session struct {
	id           uuid.UUID
	task         *schedule.Task
	gpsSub       sensors.Subscription
	barometerSub sensors.Subscription
}

// New creates a FusedAltimeter. A nil logger disables logging.
func New(gps sensors.GPS, barometer sensors.Barometer, baseline *calibration.Baseline, cfg Config, logger *zap.SugaredLogger) (*FusedAltimeter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gps == nil || barometer == nil || baseline == nil {
		return nil, fmt.Errorf("%w: gps, barometer and baseline are required", ErrInvalidConfig)
	}

	return &FusedAltimeter{
		gps:          gps,
		barometer:    barometer,
		gpsAltimeter: NewGaussianAltimeter(gps, cfg.GPSSamples),
		baseline:     baseline,
		cfg:          cfg,
		logger:       log.OrNop(logger),
	}, nil
}

// Start resets the filters, starts both sensors and the periodic update.
// Starting an already running altimeter is a no-op.
func (a *FusedAltimeter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.session != nil {
		a.mu.Unlock()
		return nil
	}
	sess := &session{id: uuid.New()}
	a.session = sess
	a.pressureFilter = nil
	a.filteredPressure = 0
	a.hasAltitude = false
	a.mu.Unlock()

	gpsSub, err := a.gpsAltimeter.Start(a.onGPSUpdate)
	if err != nil {
		a.abandon(sess)
		return fmt.Errorf("failed to start GPS: %w", err)
	}

	barometerSub, err := a.barometer.Start(a.onBarometerUpdate)
	if err != nil {
		a.gpsAltimeter.Stop(gpsSub)
		a.abandon(sess)
		return fmt.Errorf("failed to start barometer: %w", err)
	}

	task := schedule.Every(ctx, a.cfg.UpdateInterval, func(ctx context.Context) {
		a.tick(ctx, sess)
	})

	a.mu.Lock()
	sess.task = task
	sess.gpsSub = gpsSub
	sess.barometerSub = barometerSub
	stillCurrent := a.session == sess
	a.mu.Unlock()

	if !stillCurrent {
		// Stop raced with Start
		task.Cancel()
		a.gpsAltimeter.Stop(gpsSub)
		a.barometer.Stop(barometerSub)
		return nil
	}

	a.logger.Infow("altimeter started",
		"session", sess.id,
		"continuous_calibration", a.cfg.ContinuousCalibration,
		"interval", a.cfg.UpdateInterval)
	return nil
}

// Stop cancels the periodic update and unregisters from both sensors. A
// tick still running when Stop is called finishes silently.
func (a *FusedAltimeter) Stop() error {
	a.mu.Lock()
	sess := a.session
	a.session = nil
	var (
		task         *schedule.Task
		gpsSub       sensors.Subscription
		barometerSub sensors.Subscription
	)
	if sess != nil {
		task, gpsSub, barometerSub = sess.task, sess.gpsSub, sess.barometerSub
	}
	a.mu.Unlock()

	// A nil task means Start is still subscribing and cleans up after itself
	if task == nil {
		return nil
	}

	task.Cancel()
	err := errors.Join(
		a.gpsAltimeter.Stop(gpsSub),
		a.barometer.Stop(barometerSub),
	)
	a.logger.Infow("altimeter stopped", "session", sess.id)
	return err
}

func (a *FusedAltimeter) abandon(sess *session) {
	a.mu.Lock()
	if a.session == sess {
		a.session = nil
	}
	a.mu.Unlock()
}

// Altitude returns the last fused altitude in meters. Before the first
// successful fusion it falls back to the GPS altitude; use HasValidReading
// to tell the two apart.
func (a *FusedAltimeter) Altitude() float64 {
	a.mu.Lock()
	if a.hasAltitude {
		defer a.mu.Unlock()
		return a.filteredAltitude
	}
	a.mu.Unlock()
	return a.gpsAltitude()
}

// HasValidReading reports whether Altitude is a fused value
func (a *FusedAltimeter) HasValidReading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasAltitude
}

// Pressure returns the smoothed station pressure in hPa, 0 before the first
// barometer reading.
func (a *FusedAltimeter) Pressure() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filteredPressure
}

// Subscribe registers fn to be called after every successful update
func (a *FusedAltimeter) Subscribe(fn func()) sensors.Subscription {
	return a.listeners.Add(fn)
}

// Unsubscribe removes a callback registered with Subscribe
func (a *FusedAltimeter) Unsubscribe(sub sensors.Subscription) {
	a.listeners.Remove(sub)
}

// ClearCalibration drops the cached sea-level baseline
func (a *FusedAltimeter) ClearCalibration(ctx context.Context) error {
	return a.baseline.Clear(ctx)
}

func (a *FusedAltimeter) onBarometerUpdate() {
	pressure := a.barometer.Pressure()
	if pressure == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pressureFilter == nil {
		a.pressureFilter = filter.MustLowPass(a.cfg.BarometerSmoothing, pressure)
	}
	a.filteredPressure = a.pressureFilter.Filter(pressure)
}

// The GPS smoothing wrapper does its own bookkeeping; the fusion reads it
// on the next tick.
func (a *FusedAltimeter) onGPSUpdate() {}

func (a *FusedAltimeter) tick(ctx context.Context, sess *session) {
	if !a.update(ctx, sess) {
		return
	}

	a.mu.Lock()
	active := a.session == sess
	a.mu.Unlock()
	if active {
		a.listeners.Notify()
	}
}

// update runs one fusion step and reports whether a new altitude is
// available.
func (a *FusedAltimeter) update(ctx context.Context, sess *session) bool {
	a.mu.Lock()
	pressure := a.filteredPressure
	a.mu.Unlock()

	if pressure == 0 {
		// No barometer reading yet
		return false
	}

	seaLevel, ok := a.baseline.SeaLevelPressure(ctx)
	if !ok {
		a.recalibrate(ctx, pressure)
		return false
	}

	barometricAltitude := meteorology.Altitude(pressure, seaLevel)

	// Without a fix the GPS term collapses onto the barometer
	hasFix := a.gps.HasFix()
	gpsAltitude := barometricAltitude
	if hasFix {
		gpsAltitude = a.gpsAltitude()
	}

	weight := a.currentGPSWeight(hasFix)
	altitude := weight*gpsAltitude + (1-weight)*barometricAltitude

	a.mu.Lock()
	if a.session != sess {
		a.mu.Unlock()
		return false
	}
	a.filteredAltitude = altitude
	a.hasAltitude = true
	a.mu.Unlock()

	if err := a.baseline.RecordPressureOnly(ctx, meteorology.SeaLevelPressure(pressure, altitude)); err != nil {
		a.logger.Warnf("unable to update sea level pressure: %v", err)
	}

	a.logger.Debugw("altitude updated",
		"session", sess.id,
		"altitude", round(altitude, 2),
		"gps", round(gpsAltitude, 2),
		"barometric", round(barometricAltitude, 2),
		"sea_level", round(seaLevel, 2),
		"gps_weight", round(weight, 3))
	return true
}

// recalibrate anchors a new baseline to the GPS when the smoothed fix is
// trustworthy. Otherwise the tick stays silent until it is.
func (a *FusedAltimeter) recalibrate(ctx context.Context, pressure float64) {
	if pressure <= 0 || !a.hasTrustworthyFix() {
		return
	}

	gpsAltitude := a.gpsAltimeter.Altitude()
	seaLevel := meteorology.SeaLevelPressure(pressure, gpsAltitude)
	if err := a.baseline.RecordBaseline(ctx, seaLevel); err != nil {
		a.logger.Warnf("unable to record sea level baseline: %v", err)
		return
	}
	a.logger.Infow("sea level baseline recalibrated",
		"sea_level", round(seaLevel, 2),
		"gps_altitude", round(gpsAltitude, 2))
}

func (a *FusedAltimeter) hasTrustworthyFix() bool {
	return a.gps.HasFix() && a.gpsAltimeter.HasValidReading()
}

// gpsAltitude prefers the converged smoothed altitude over the raw fix
func (a *FusedAltimeter) gpsAltitude() float64 {
	if a.gpsAltimeter.HasValidReading() {
		return a.gpsAltimeter.Altitude()
	}
	return a.gps.Altitude()
}

func (a *FusedAltimeter) currentGPSWeight(hasFix bool) float64 {
	if !a.cfg.ContinuousCalibration || !hasFix {
		return 0
	}

	gpsError := a.cfg.MaxGPSError
	if accuracy, ok := a.gpsAltimeter.AltitudeAccuracy(); ok {
		gpsError = accuracy
	} else if accuracy, ok := a.gps.AltitudeAccuracy(); ok {
		gpsError = accuracy
	}
	return gpsWeight(a.cfg, gpsError)
}

// gpsWeight maps a vertical GPS error onto the GPS share of the blend.
// The error is mapped linearly onto [MinAlpha, MaxAlpha], clamped, and the
// complement is the GPS weight, so it never exceeds 1-MinAlpha.
func gpsWeight(cfg Config, gpsError float64) float64 {
	alpha := mapRange(gpsError, 0, cfg.MaxGPSError, cfg.MinAlpha, cfg.MaxAlpha)
	alpha = math.Max(cfg.MinAlpha, math.Min(cfg.MaxAlpha, alpha))
	return 1 - alpha
}

func mapRange(value, fromMin, fromMax, toMin, toMax float64) float64 {
	return (value-fromMin)/(fromMax-fromMin)*(toMax-toMin) + toMin
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
