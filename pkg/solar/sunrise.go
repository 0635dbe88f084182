// Package solar predicts sunrise and sunset. The declination and equation
// of time approximations are good to a few minutes, which is enough to
// plan around a day's low tide.
package solar

import (
	"math"
	"time"
)

// horizon is the sun's altitude at rise and set: refraction plus the
// solar semi-diameter
const horizon = -0.833

// Condition distinguishes an ordinary day from the polar extremes
type Condition int

const (
	Normal Condition = iota
	PolarDay
	PolarNight
)

func (c Condition) String() string {
	switch c {
	case PolarDay:
		return "polar_day"
	case PolarNight:
		return "polar_night"
	default:
		return "normal"
	}
}

func (c Condition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Daylight is one calendar day of sun. Sunrise and Sunset are nil unless
// Condition is Normal.
type Daylight struct {
	Sunrise   *time.Time `json:"sunrise,omitempty"`
	Sunset    *time.Time `json:"sunset,omitempty"`
	Condition Condition  `json:"condition"`
}

// On computes sunrise and sunset for the calendar day of date, as seen in
// date's location. Times are returned in that location.
func On(date time.Time, latitude, longitude float64) Daylight {
	loc := date.Location()
	y, m, d := date.Date()
	doy := float64(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).YearDay())

	lat, dec := radians(latitude), declination(doy)
	cosH := (math.Sin(radians(horizon)) - math.Sin(lat)*math.Sin(dec)) / (math.Cos(lat) * math.Cos(dec))
	switch {
	case cosH < -1:
		return Daylight{Condition: PolarDay}
	case cosH > 1:
		return Daylight{Condition: PolarNight}
	}

	// minutes after 00:00 UTC on the same calendar date; 15° of longitude
	// is an hour
	noon := 720 - 4*longitude - equationOfTime(doy)
	halfDay := degrees(math.Acos(cosH)) * 4

	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	sunrise := midnight.Add(minutes(noon - halfDay)).In(loc)
	sunset := midnight.Add(minutes(noon + halfDay)).In(loc)
	return Daylight{Sunrise: &sunrise, Sunset: &sunset, Condition: Normal}
}

// declination of the sun in radians
func declination(doy float64) float64 {
	inner := radians(356.6 + 0.9856*doy)
	outer := radians(278.97 + 0.9856*doy + 1.9165*math.Sin(inner))
	return math.Asin(0.39785 * math.Sin(outer))
}

// equationOfTime is apparent minus mean solar time, in minutes
func equationOfTime(doy float64) float64 {
	b := radians(360.0 / 365.0 * (doy - 81))
	return 9.87*math.Sin(2*b) - 7.53*math.Cos(b) - 1.5*math.Sin(b)
}

func minutes(m float64) time.Duration {
	return time.Duration(math.Round(m * float64(time.Minute)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
