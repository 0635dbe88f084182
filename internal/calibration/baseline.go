package calibration

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// SeaLevelPressureKey holds the last sea-level pressure estimate (hPa)
	SeaLevelPressureKey = "cache_fused_altimeter_last_sea_level_pressure"

	// SeaLevelPressureTimeKey holds the time of the last GPS-anchored baseline
	SeaLevelPressureTimeKey = "cache_fused_altimeter_last_sea_level_pressure_time"

	// DefaultValidity is how long a baseline stays usable without a new
	// GPS-anchored calibration.
	DefaultValidity = time.Hour
)

// Baseline applies the sea-level baseline policy on top of a Store.
//
// Two keys are involved: the pressure value, refreshed on every fused
// update, and the baseline timestamp, refreshed only when the pressure was
// anchored to a trustworthy GPS altitude. A baseline is usable while
// 0 <= now-recordedAt <= validity; the upper boundary is inclusive. A
// negative age means the clock went backwards and is treated as expired.
type Baseline struct {
	store    Store
	validity time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger
}

// BaselineOption configures a Baseline
type BaselineOption func(*Baseline)

// WithValidity overrides the one-hour validity window
func WithValidity(d time.Duration) BaselineOption {
	return func(b *Baseline) {
		b.validity = d
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) BaselineOption {
	return func(b *Baseline) {
		b.now = now
	}
}

// WithLogger attaches a logger for store errors
func WithLogger(logger *zap.SugaredLogger) BaselineOption {
	return func(b *Baseline) {
		b.logger = logger
	}
}

// NewBaseline creates a Baseline over store
func NewBaseline(store Store, opts ...BaselineOption) *Baseline {
	b := &Baseline{
		store:    store,
		validity: DefaultValidity,
		now:      time.Now,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SeaLevelPressure returns the stored sea-level pressure if the baseline is
// still within its validity window. Store errors are logged and reported as
// an absent baseline so the caller recalibrates.
func (b *Baseline) SeaLevelPressure(ctx context.Context) (float64, bool) {
	recordedAt, found, err := b.store.GetTime(ctx, SeaLevelPressureTimeKey)
	if err != nil {
		b.logger.Warnf("unable to read baseline timestamp: %v", err)
		return 0, false
	}
	if !found || b.Expired(recordedAt) {
		return 0, false
	}

	pressure, found, err := b.store.GetFloat(ctx, SeaLevelPressureKey)
	if err != nil {
		b.logger.Warnf("unable to read baseline pressure: %v", err)
		return 0, false
	}
	if !found || pressure <= 0 {
		return 0, false
	}
	return pressure, true
}

// Expired reports whether a baseline recorded at recordedAt can no longer
// be used.
func (b *Baseline) Expired(recordedAt time.Time) bool {
	age := b.now().Sub(recordedAt)
	return age < 0 || age > b.validity
}

// RecordPressureOnly stores a new sea-level pressure estimate without
// touching the baseline timestamp, so the expiration clock keeps running.
func (b *Baseline) RecordPressureOnly(ctx context.Context, seaLevelPressure float64) error {
	return b.store.PutFloat(ctx, SeaLevelPressureKey, seaLevelPressure)
}

// RecordBaseline stores a GPS-anchored sea-level pressure and restarts the
// expiration clock.
func (b *Baseline) RecordBaseline(ctx context.Context, seaLevelPressure float64) error {
	if err := b.store.PutFloat(ctx, SeaLevelPressureKey, seaLevelPressure); err != nil {
		return err
	}
	return b.store.PutTime(ctx, SeaLevelPressureTimeKey, b.now())
}

// Clear removes the cached calibration so the next update recalibrates.
func (b *Baseline) Clear(ctx context.Context) error {
	if err := b.store.Remove(ctx, SeaLevelPressureKey); err != nil {
		return err
	}
	return b.store.Remove(ctx, SeaLevelPressureTimeKey)
}
