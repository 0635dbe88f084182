// Package weather classifies pressure tendency and produces hourly and daily
// forecasts from a caller-owned pressure history.
package weather

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/pkg/meteorology"
	"github.com/chrissnell/trailsense/pkg/units"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	// TendencyWindow is the lookback used to pick the reference reading.
	// Tendency amounts are normalized to this window.
	TendencyWindow = 3 * time.Hour

	// DailyWindow is the span of history the daily forecast fits
	DailyWindow = 24 * time.Hour
)

// ErrInvalidThreshold is returned by NewService for a non-positive threshold
var ErrInvalidThreshold = errors.New("forecast threshold must be positive")

// Config holds the forecast thresholds. Each threshold is a pressure change
// over the three-hour tendency window, in any unit.
type Config struct {
	StormThreshold        units.Pressure
	HourlyChangeThreshold units.Pressure
	DailyChangeThreshold  units.Pressure

	// AdjustSeaLevelWithBarometer keeps the altitude track steady through
	// natural weather changes instead of trusting every GPS altitude.
	AdjustSeaLevelWithBarometer bool

	// AdjustSeaLevelWithTemperature applies the hypsometric correction
	// when a reading carries a temperature.
	AdjustSeaLevelWithTemperature bool
}

// DefaultConfig returns the stock thresholds in hPa
func DefaultConfig() Config {
	return Config{
		StormThreshold:              units.Hpa(6),
		HourlyChangeThreshold:       units.Hpa(1.5),
		DailyChangeThreshold:        units.Hpa(0.5),
		AdjustSeaLevelWithBarometer: true,
	}
}

// Service answers forecast queries. It holds no per-call state and is safe
// for concurrent use.
type Service struct {
	storm  float64
	hourly float64
	daily  float64

	seaLevel seaLevelConverter

	now    func() time.Time
	logger *zap.SugaredLogger
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger attaches a logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		s.logger = log.OrNop(logger)
	}
}

// NewService converts the thresholds to hPa once and validates them.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	thresholds := []struct {
		name  string
		value units.Pressure
	}{
		{"storm", cfg.StormThreshold},
		{"hourly change", cfg.HourlyChangeThreshold},
		{"daily change", cfg.DailyChangeThreshold},
	}
	for _, t := range thresholds {
		if hpa := t.value.Hpa(); !(hpa > 0) || math.IsInf(hpa, 0) {
			return nil, fmt.Errorf("%w: %s threshold is %s", ErrInvalidThreshold, t.name, t.value)
		}
	}

	s := &Service{
		storm:  cfg.StormThreshold.Hpa(),
		hourly: cfg.HourlyChangeThreshold.Hpa(),
		daily:  cfg.DailyChangeThreshold.Hpa(),
		seaLevel: seaLevelConverter{
			barometerAssisted: cfg.AdjustSeaLevelWithBarometer,
			withTemperature:   cfg.AdjustSeaLevelWithTemperature,
		},
		now:    time.Now,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tendency compares the most recent reading with the one closest to three
// hours ago. lastKnown is used as the reference when the history cannot
// supply an older reading. Missing endpoints or zero elapsed time give
// Steady with a zero amount.
func (s *Service) Tendency(readings []PressureReading, lastKnown *PressureReading) PressureTendency {
	current, ok := latest(readings)
	if !ok {
		return PressureTendency{Characteristic: Steady}
	}

	reference, ok := s.reference(readings, current, lastKnown)
	if !ok {
		return PressureTendency{Characteristic: Steady}
	}

	return classify(reference, current, s.hourly)
}

// reference picks the reading closest to now-3h. The earliest such reading
// wins a tie.
func (s *Service) reference(readings []PressureReading, current PressureReading, lastKnown *PressureReading) (PressureReading, bool) {
	target := s.now().Add(-TendencyWindow)

	var best PressureReading
	bestDistance := time.Duration(math.MaxInt64)
	found := false
	for _, r := range readings {
		d := absDuration(r.Time.Sub(target))
		if !found || d < bestDistance || (d == bestDistance && r.Time.Before(best.Time)) {
			best, bestDistance, found = r, d, true
		}
	}

	if found && best.Time.Before(current.Time) {
		return best, true
	}
	if lastKnown != nil && lastKnown.Time.Before(current.Time) {
		return *lastKnown, true
	}
	return PressureReading{}, false
}

func classify(reference, current PressureReading, threshold float64) PressureTendency {
	elapsed := current.Time.Sub(reference.Time)
	if elapsed <= 0 {
		return PressureTendency{Characteristic: Steady}
	}

	amount := (current.Pressure - reference.Pressure) / elapsed.Hours() * TendencyWindow.Hours()
	return tendencyFromAmount(amount, threshold)
}

func tendencyFromAmount(amount, threshold float64) PressureTendency {
	switch {
	case math.Abs(amount) < threshold:
		return PressureTendency{Characteristic: Steady, Amount: amount}
	case amount > 0:
		return PressureTendency{Characteristic: Rising, Amount: amount}
	default:
		return PressureTendency{Characteristic: Falling, Amount: amount}
	}
}

// HourlyWeather forecasts the next few hours from the tendency. A drop at
// or beyond the storm threshold is a Storm regardless of the hourly
// classification.
func (s *Service) HourlyWeather(readings []PressureReading, lastKnown *PressureReading) Weather {
	if len(readings) == 0 {
		return NoChange
	}

	tendency := s.Tendency(readings, lastKnown)
	w := forecast(tendency, s.storm)
	s.logger.Debugw("hourly forecast",
		"tendency", tendency.Characteristic,
		"amount", tendency.Amount,
		"weather", w)
	return w
}

func forecast(tendency PressureTendency, stormThreshold float64) Weather {
	if tendency.Amount <= -stormThreshold {
		return Storm
	}
	switch tendency.Characteristic {
	case Rising:
		return Improving
	case Falling:
		return Worsening
	default:
		return NoChange
	}
}

// DailyWeather fits a least-squares line through the last day of readings
// and classifies its slope against the daily threshold. Fewer than two
// distinct timestamps give NoChange.
func (s *Service) DailyWeather(readings []PressureReading) Weather {
	now := s.now()
	start := now.Add(-DailyWindow)

	var xs, ys []float64
	for _, r := range readings {
		if r.Time.Before(start) || r.Time.After(now) {
			continue
		}
		xs = append(xs, r.Time.Sub(start).Hours())
		ys = append(ys, r.Pressure)
	}
	if !hasSpread(xs) {
		return NoChange
	}

	// stat.LinearRegression returns (intercept, slope)
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	tendency := tendencyFromAmount(slope*TendencyWindow.Hours(), s.daily)

	s.logger.Debugw("daily forecast", "samples", len(xs), "slope", slope, "tendency", tendency.Characteristic)
	switch tendency.Characteristic {
	case Rising:
		return Improving
	case Falling:
		return Worsening
	default:
		return NoChange
	}
}

// SeaLevel converts raw station readings into sea-level pressure, one
// output per input, in order.
func (s *Service) SeaLevel(readings []PressureAltitudeReading) []PressureReading {
	return s.seaLevel.convert(readings)
}

// HeatIndex returns the apparent temperature in °C
func (s *Service) HeatIndex(tempC, relativeHumidity float64) float64 {
	return meteorology.HeatIndex(tempC, relativeHumidity)
}

// DewPoint returns the dew point in °C
func (s *Service) DewPoint(tempC, relativeHumidity float64) float64 {
	return meteorology.DewPoint(tempC, relativeHumidity)
}

// HeatAlert classifies an apparent temperature in °C
func (s *Service) HeatAlert(heatIndexC float64) HeatAlert {
	return ClassifyHeat(heatIndexC)
}

// ClassifyHeat maps an apparent temperature in °C onto the alert scale
func ClassifyHeat(heatIndexC float64) HeatAlert {
	switch {
	case heatIndexC <= -25:
		return FrostbiteDanger
	case heatIndexC <= -17:
		return FrostbiteWarning
	case heatIndexC <= 5:
		return FrostbiteCaution
	case heatIndexC < 27:
		return Normal
	case heatIndexC <= 32:
		return HeatCaution
	case heatIndexC <= 39:
		return HeatWarning
	case heatIndexC <= 51:
		return HeatAlertLevel
	default:
		return HeatDanger
	}
}

func latest(readings []PressureReading) (PressureReading, bool) {
	if len(readings) == 0 {
		return PressureReading{}, false
	}
	return readings[len(readings)-1], true
}

func hasSpread(xs []float64) bool {
	for _, x := range xs[min(1, len(xs)):] {
		if x != xs[0] {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
