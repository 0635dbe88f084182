package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/internal/schedule"
	"github.com/chrissnell/trailsense/internal/weather"
)

// Source supplies the values sampled on every tick. The fused altimeter
// satisfies it. Altitude is only meaningful once HasValidReading is true.
type Source interface {
	Pressure() float64
	Altitude() float64
	HasValidReading() bool
}

// Config controls sampling
type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

// Recorder samples a Source into a Store and drops readings older than the
// retention window.
type Recorder struct {
	source Source
	store  Store
	cfg    Config
	now    func() time.Time
	logger *zap.SugaredLogger
}

// Option configures a Recorder
type Option func(*Recorder)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder creates a Recorder
func NewRecorder(source Source, store Store, cfg Config, opts ...Option) (*Recorder, error) {
	if source == nil || store == nil {
		return nil, errors.New("history recorder needs a source and a store")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("history interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Retention < weather.DailyWindow {
		return nil, fmt.Errorf("history retention %s is shorter than the %s forecast window", cfg.Retention, weather.DailyWindow)
	}

	r := &Recorder{
		source: source,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.OrNop(r.logger)
	return r, nil
}

// Run records one sample immediately and then one per interval until ctx
// is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	r.logger.Infow("pressure history recorder started", "interval", r.cfg.Interval, "retention", r.cfg.Retention)

	r.sample(ctx)
	task := schedule.Every(ctx, r.cfg.Interval, r.sample)
	<-task.Done()

	r.logger.Info("pressure history recorder stopped")
	return nil
}

func (r *Recorder) sample(ctx context.Context) {
	if _, err := r.Record(ctx); err != nil {
		r.logger.Errorw("failed to record pressure history", "error", err)
	}
}

// Record stores one sample. It reports false without error when the source
// has no pressure reading or no fused altitude yet.
func (r *Recorder) Record(ctx context.Context) (bool, error) {
	pressure := r.source.Pressure()
	if pressure == 0 {
		r.logger.Debug("no pressure reading yet, skipping history sample")
		return false, nil
	}
	if !r.source.HasValidReading() {
		r.logger.Debug("altitude not fused yet, skipping history sample")
		return false, nil
	}

	now := r.now()
	reading := weather.PressureAltitudeReading{
		Time:     now,
		Pressure: pressure,
		Altitude: r.source.Altitude(),
	}
	if err := r.store.Append(ctx, reading); err != nil {
		return false, err
	}
	if err := r.store.Prune(ctx, now.Add(-r.cfg.Retention)); err != nil {
		return true, err
	}

	r.logger.Debugw("recorded pressure history", "pressure", reading.Pressure, "altitude", reading.Altitude)
	return true, nil
}

// Readings returns the retained history, oldest first
func (r *Recorder) Readings(ctx context.Context) ([]weather.PressureAltitudeReading, error) {
	return r.store.Since(ctx, r.now().Add(-r.cfg.Retention))
}

// Pressures returns the retained station pressures without sea-level
// adjustment
func Pressures(readings []weather.PressureAltitudeReading) []weather.PressureReading {
	out := make([]weather.PressureReading, len(readings))
	for i, r := range readings {
		out[i] = weather.PressureReading{Time: r.Time, Pressure: r.Pressure}
	}
	return out
}
