package weather

import (
	"math"

	"github.com/chrissnell/trailsense/internal/filter"
	"github.com/chrissnell/trailsense/pkg/meteorology"
)

const (
	// maxNaturalPressureChange is the fastest pressure change (hPa/h) still
	// attributed to the weather rather than to a change in altitude.
	maxNaturalPressureChange = 3.0

	// gpsAltitudeSmoothing is the share of the barometric altitude track kept
	// when blending in each GPS altitude.
	gpsAltitudeSmoothing = 0.8
)

type seaLevelConverter struct {
	barometerAssisted bool
	withTemperature   bool
}

func (c seaLevelConverter) convert(readings []PressureAltitudeReading) []PressureReading {
	altitudes := c.altitudes(readings)

	out := make([]PressureReading, len(readings))
	for i, r := range readings {
		var p float64
		if c.withTemperature && r.Temperature != nil {
			p = meteorology.SeaLevelPressureWithTemperature(r.Pressure, altitudes[i], *r.Temperature)
		} else {
			p = meteorology.SeaLevelPressure(r.Pressure, altitudes[i])
		}
		out[i] = PressureReading{Time: r.Time, Pressure: p}
	}
	return out
}

// altitudes returns the altitude to reduce each reading with. Without
// barometer assistance this is the GPS altitude as recorded.
//
// With assistance, the altitude holds while the pressure changes no faster
// than the weather can move it, and follows the barometric displacement
// otherwise. Each step is then pulled gently toward the GPS altitude so
// the track cannot drift away from it.
func (c seaLevelConverter) altitudes(readings []PressureAltitudeReading) []float64 {
	out := make([]float64, len(readings))
	if len(readings) == 0 {
		return out
	}
	if !c.barometerAssisted {
		for i, r := range readings {
			out[i] = r.Altitude
		}
		return out
	}

	track := filter.MustLowPass(gpsAltitudeSmoothing, readings[0].Altitude)
	out[0] = readings[0].Altitude

	for i := 1; i < len(readings); i++ {
		prev, cur := readings[i-1], readings[i]
		altitude := out[i-1]

		hours := cur.Time.Sub(prev.Time).Hours()
		if hours > 0 && prev.Pressure > 0 && cur.Pressure > 0 {
			rate := (cur.Pressure - prev.Pressure) / hours
			if math.Abs(rate) > maxNaturalPressureChange {
				altitude += meteorology.Altitude(cur.Pressure, meteorology.StandardSeaLevelPressure) -
					meteorology.Altitude(prev.Pressure, meteorology.StandardSeaLevelPressure)
			}
		}

		track.Reset(altitude)
		out[i] = track.Filter(cur.Altitude)
	}
	return out
}
