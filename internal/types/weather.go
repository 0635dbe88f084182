// Package types holds the report shapes served by the REST API and printed
// by the command-line tools, together with the functions that assemble them
// from the engines.
package types

import (
	"time"

	"github.com/chrissnell/trailsense/internal/weather"
	"github.com/chrissnell/trailsense/pkg/lunar"
)

// AltitudeReport is the fused altimeter's current state
type AltitudeReport struct {
	Time     time.Time `json:"time"`
	Altitude float64   `json:"altitude"`
	Fused    bool      `json:"fused"`
	Pressure float64   `json:"pressure,omitempty"`
}

// WeatherReport is the forecast drawn from the pressure history
type WeatherReport struct {
	Time             time.Time                `json:"time"`
	Samples          int                      `json:"samples"`
	SeaLevelPressure *float64                 `json:"sea_level_pressure,omitempty"`
	Tendency         weather.PressureTendency `json:"tendency"`
	Hourly           weather.Weather          `json:"hourly"`
	Daily            weather.Weather          `json:"daily"`
}

// BuildWeatherReport converts the raw history to sea level and runs the
// hourly and daily forecasts over it.
func BuildWeatherReport(svc *weather.Service, history []weather.PressureAltitudeReading, now time.Time) WeatherReport {
	seaLevel := svc.SeaLevel(history)

	report := WeatherReport{
		Time:     now,
		Samples:  len(seaLevel),
		Tendency: svc.Tendency(seaLevel, nil),
		Hourly:   svc.HourlyWeather(seaLevel, nil),
		Daily:    svc.DailyWeather(seaLevel),
	}
	if n := len(seaLevel); n > 0 {
		p := seaLevel[n-1].Pressure
		report.SeaLevelPressure = &p
	}
	return report
}

// MoonReport is the moon phase and its tidal influence
type MoonReport struct {
	Time      time.Time            `json:"time"`
	Phase     lunar.Phase          `json:"phase"`
	Influence lunar.TidalInfluence `json:"tidal_influence"`
}

func BuildMoonReport(t time.Time) MoonReport {
	phase := lunar.At(t)
	return MoonReport{
		Time:      t,
		Phase:     phase,
		Influence: phase.TidalInfluence(),
	}
}
