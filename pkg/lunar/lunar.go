// Package lunar computes the moon phase from the ecliptic longitudes of the
// Sun and Moon, and classifies the phase's influence on the tides. Phase
// angles are good to a degree or so, which is far tighter than the
// spring/neap windows need.
package lunar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// SynodicMonth is the mean length of the lunar cycle in days
const SynodicMonth = 29.530588853

// springNeapWindow is how far (degrees of elongation) from a syzygy or a
// quarter the moon may be for the tides to count as spring or neap.
const springNeapWindow = 30.0

// Phase is the moon's state at an instant
type Phase struct {
	Elongation   float64 `json:"elongation"`   // Sun→Moon angle, degrees [0,360)
	Fraction     float64 `json:"fraction"`     // 0=new, 0.5=full
	Illumination float64 `json:"illumination"` // illuminated fraction [0,1]
	AgeDays      float64 `json:"age_days"`     // days since new moon
	Waxing       bool    `json:"waxing"`
	Name         string  `json:"name"`
}

// TidalInfluence is the phase's effect on the tidal range
type TidalInfluence int

const (
	NeutralInfluence TidalInfluence = iota
	SpringInfluence
	NeapInfluence
)

func (i TidalInfluence) String() string {
	switch i {
	case SpringInfluence:
		return "spring"
	case NeapInfluence:
		return "neap"
	default:
		return "neutral"
	}
}

func (i TidalInfluence) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// At computes the moon phase for t
func At(t time.Time) Phase {
	T := julianCenturies(julian.TimeToJD(t.UTC()))

	elongation := normalizeAngle(moonLongitude(T) - sunLongitude(T))
	illumination := (1 - math.Cos(radians(elongation))) / 2
	waxing := elongation < 180

	return Phase{
		Elongation:   elongation,
		Fraction:     elongation / 360,
		Illumination: illumination,
		AgeDays:      elongation / 360 * SynodicMonth,
		Waxing:       waxing,
		Name:         name(illumination, waxing),
	}
}

// TidalInfluence reports Spring near new and full moon and Neap near the
// quarters.
func (p Phase) TidalInfluence() TidalInfluence {
	// distance from the nearest syzygy, 0..90
	fromSyzygy := math.Abs(math.Mod(p.Elongation+90, 180) - 90)
	switch {
	case fromSyzygy <= springNeapWindow:
		return SpringInfluence
	case fromSyzygy >= 90-springNeapWindow:
		return NeapInfluence
	default:
		return NeutralInfluence
	}
}

func name(illumination float64, waxing bool) string {
	switch {
	case illumination < 0.01:
		return "New Moon"
	case illumination > 0.99:
		return "Full Moon"
	case illumination >= 0.49 && illumination <= 0.51:
		if waxing {
			return "First Quarter"
		}
		return "Third Quarter"
	case illumination < 0.5:
		if waxing {
			return "Waxing Crescent"
		}
		return "Waning Crescent"
	default:
		if waxing {
			return "Waxing Gibbous"
		}
		return "Waning Gibbous"
	}
}

func julianCenturies(jd float64) float64 {
	return (jd - 2451545.0) / 36525.0
}

func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// sunLongitude is the Sun's apparent ecliptic longitude in degrees
func sunLongitude(T float64) float64 {
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := radians(normalizeAngle(357.52911 + 35999.05029*T - 0.0001537*T*T))

	center := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(M) +
		(0.019993-0.000101*T)*math.Sin(2*M) +
		0.000289*math.Sin(3*M)

	return normalizeAngle(L0 + center)
}

// moonLongitude is the Moon's ecliptic longitude in degrees, from the
// five largest periodic terms.
func moonLongitude(T float64) float64 {
	T2, T3, T4 := T*T, T*T*T, T*T*T*T

	L := 218.3164477 + 481267.88123421*T - 0.0015786*T2 + T3/538841 - T4/65194000
	D := radians(normalizeAngle(297.8501921 + 445267.1114034*T - 0.0018819*T2 + T3/545868 - T4/113065000))
	Mp := radians(normalizeAngle(134.9633964 + 477198.8675055*T + 0.0087414*T2 + T3/69699 - T4/14712000))

	return normalizeAngle(L +
		6.289*math.Sin(Mp) +
		1.274*math.Sin(2*D-Mp) +
		0.658*math.Sin(2*D) +
		0.214*math.Sin(2*Mp) +
		0.110*math.Sin(D))
}
