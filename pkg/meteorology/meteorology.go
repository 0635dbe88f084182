// Package meteorology holds closed-form atmospheric formulas: the
// international barometric formula, its inverse for sea-level pressure,
// heat index and dew point.
package meteorology

import (
	"math"

	"github.com/chrissnell/trailsense/pkg/units"
)

const (
	// StandardSeaLevelPressure is the ISA sea-level pressure in hPa
	StandardSeaLevelPressure = 1013.25

	barometricScaleHeight = 44330.8
	barometricExponent    = 5.255
	lapseRate             = 0.0065 // K/m
	kelvinOffset          = 273.15
)

// Altitude returns the altitude in meters at which pressure (hPa) would be
// observed given the sea-level pressure seaLevel (hPa).
func Altitude(pressure, seaLevel float64) float64 {
	return barometricScaleHeight * (1 - math.Pow(pressure/seaLevel, 1/barometricExponent))
}

// SeaLevelPressure returns the sea-level equivalent (hPa) of pressure (hPa)
// observed at altitude (m). It is the exact inverse of Altitude.
func SeaLevelPressure(pressure, altitude float64) float64 {
	return pressure / math.Pow(1-altitude/barometricScaleHeight, barometricExponent)
}

// SeaLevelPressureWithTemperature applies the hypsometric reduction using
// the station temperature in °C instead of the standard atmosphere.
func SeaLevelPressureWithTemperature(pressure, altitude, tempC float64) float64 {
	lh := lapseRate * altitude
	return pressure * math.Pow(1-lh/(tempC+lh+kelvinOffset), -5.257)
}

// HeatIndex returns the apparent temperature in °C.
func HeatIndex(tempC, humidity float64) float64 {
	return units.FahrenheitToCelsius(heatIndexF(units.CelsiusToFahrenheit(tempC), humidity))
}

func heatIndexF(temp, humidity float64) float64 {
	// Heat indices don't make much sense at temps below 77° F, so just return the current temperature
	if temp < 77 {
		return temp
	}

	// Steadman's method is valid for heat indices below 80° F
	hi := 0.5 * (temp + 61.0 + ((temp - 68.0) * 1.2) + (humidity * 0.094))
	if hi < 80 {
		return math.Max(hi, temp)
	}

	// Rothfusz regression
	c1 := -42.379
	c2 := 2.04901523
	c3 := 10.14333127
	c4 := 0.22475541
	c5 := 0.00683783
	c6 := 0.05481717
	c7 := 0.00122874
	c8 := 0.00085282
	c9 := 0.00000199

	hi = c1 + (c2 * temp) + (c3 * humidity) - (c4 * temp * humidity) - (c5 * temp * temp) -
		(c6 * humidity * humidity) + (c7 * temp * temp * humidity) + (c8 * temp * humidity * humidity) -
		(c9 * temp * temp * humidity * humidity)

	if humidity < 13 && temp >= 80 && temp <= 112 {
		hi -= ((13 - humidity) / 4) * math.Sqrt((17-math.Abs(temp-95.0))/17)
	} else if humidity > 85 && temp >= 80 && temp <= 87 {
		hi += ((humidity - 85.0) / 10) * ((87.0 - temp) / 5)
	}

	return math.Max(hi, temp)
}

// DewPoint returns the dew point in °C using the Magnus approximation.
func DewPoint(tempC, humidity float64) float64 {
	const b = 17.62
	const c = 243.12
	if humidity <= 0 {
		return math.Inf(-1)
	}
	gamma := math.Log(humidity/100) + b*tempC/(c+tempC)
	return c * gamma / (b - gamma)
}
