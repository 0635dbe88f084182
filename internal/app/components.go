package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/trailsense/internal/altimeter"
	"github.com/chrissnell/trailsense/internal/calibration"
	"github.com/chrissnell/trailsense/internal/history"
	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/internal/tide"
	"github.com/chrissnell/trailsense/internal/weather"
	"github.com/chrissnell/trailsense/pkg/config"
	"github.com/chrissnell/trailsense/pkg/units"
)

// WeatherConfig converts the configured thresholds, written in the
// configured pressure unit, into a forecast configuration
func WeatherConfig(cfg *config.ConfigData) (weather.Config, error) {
	unit, err := units.ParsePressureUnit(cfg.Units.Pressure)
	if err != nil {
		return weather.Config{}, err
	}

	wc := weather.Config{
		StormThreshold:                units.Pressure{Value: cfg.Weather.StormThreshold, Unit: unit},
		HourlyChangeThreshold:         units.Pressure{Value: cfg.Weather.HourlyChangeThreshold, Unit: unit},
		DailyChangeThreshold:          units.Pressure{Value: cfg.Weather.DailyChangeThreshold, Unit: unit},
		AdjustSeaLevelWithBarometer:   true,
		AdjustSeaLevelWithTemperature: cfg.Weather.AdjustSeaLevelWithTemperature,
	}
	if cfg.Weather.AdjustSeaLevelWithBarometer != nil {
		wc.AdjustSeaLevelWithBarometer = *cfg.Weather.AdjustSeaLevelWithBarometer
	}
	return wc, nil
}

// NewWeatherService builds the forecast service from the configuration
func NewWeatherService(cfg *config.ConfigData, logger *zap.SugaredLogger) (*weather.Service, error) {
	wc, err := WeatherConfig(cfg)
	if err != nil {
		return nil, err
	}
	return weather.NewService(wc, weather.WithLogger(logger))
}

// AltimeterConfig converts the altimeter section
func AltimeterConfig(cfg *config.ConfigData) (altimeter.Config, error) {
	a := cfg.Altimeter
	interval, err := config.ParseDuration("altimeter update interval", a.UpdateInterval)
	if err != nil {
		return altimeter.Config{}, err
	}

	ac := altimeter.Config{
		ContinuousCalibration: true,
		GPSSamples:            a.GPSSamples,
		UpdateInterval:        interval,
		MinAlpha:              a.MinAlpha,
		MaxAlpha:              a.MaxAlpha,
		MaxGPSError:           a.MaxGPSError,
		BarometerSmoothing:    a.BarometerSmoothing,
	}
	if a.ContinuousCalibration != nil {
		ac.ContinuousCalibration = *a.ContinuousCalibration
	}
	return ac, ac.Validate()
}

// HistoryConfig converts the history section
func HistoryConfig(cfg *config.ConfigData) (history.Config, error) {
	interval, err := config.ParseDuration("history interval", cfg.History.Interval)
	if err != nil {
		return history.Config{}, err
	}
	retention, err := config.ParseDuration("history retention", cfg.History.Retention)
	if err != nil {
		return history.Config{}, err
	}
	return history.Config{Interval: interval, Retention: retention}, nil
}

// OpenHistoryStore opens the SQLite history when a path is configured and
// an in-memory history otherwise
func OpenHistoryStore(cfg *config.ConfigData) (history.Store, error) {
	if cfg.History.SQLitePath == "" {
		return history.NewMemoryStore(), nil
	}
	return history.NewSQLiteStore(cfg.History.SQLitePath)
}

// OpenCalibrationStore opens the configured calibration backend
func OpenCalibrationStore(cfg *config.ConfigData, logger *zap.SugaredLogger) (calibration.Store, error) {
	c := cfg.Calibration
	switch c.Backend {
	case "memory":
		return calibration.NewMemoryStore(), nil
	case "sqlite":
		if c.SQLitePath == "" {
			return nil, fmt.Errorf("calibration backend sqlite needs a sqlite path")
		}
		return calibration.NewSQLiteStore(c.SQLitePath)
	case "postgres":
		if c.ConnectionString == "" {
			return nil, fmt.Errorf("calibration backend postgres needs a connection string")
		}
		return calibration.NewGormStore(c.ConnectionString, logger)
	default:
		return nil, fmt.Errorf("unsupported calibration backend %q: use memory, sqlite or postgres", c.Backend)
	}
}

// NewBaseline wraps store in the configured expiration policy
func NewBaseline(cfg *config.ConfigData, store calibration.Store, logger *zap.SugaredLogger) (*calibration.Baseline, error) {
	validity, err := config.ParseDuration("calibration validity", cfg.Calibration.Validity)
	if err != nil {
		return nil, err
	}
	return calibration.NewBaseline(store, calibration.WithValidity(validity), calibration.WithLogger(log.OrNop(logger))), nil
}

// NewTideLoader serves the tides from the configuration provider
func NewTideLoader(provider config.ConfigProvider) (*tide.ConfigLoader, error) {
	defs, err := provider.GetTides()
	if err != nil {
		return nil, fmt.Errorf("failed to load tides: %w", err)
	}
	return tide.NewConfigLoader(defs)
}
