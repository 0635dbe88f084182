// Package units provides strongly typed physical quantities used at the
// configuration boundary. Engines work in canonical units (hPa, meters,
// degrees Celsius); values entered in user units are converted once.
package units

import (
	"fmt"
	"strings"
)

// PressureUnit identifies a pressure unit.
type PressureUnit int

const (
	Hectopascals PressureUnit = iota
	Millibars
	InchesOfMercury
	PSI
)

const (
	hpaPerInHg = 33.8639
	hpaPerPSI  = 68.9476
)

// ParsePressureUnit maps the configuration spelling of a unit ("hpa",
// "mbar", "in"/"inhg", "psi") to a PressureUnit.
func ParsePressureUnit(s string) (PressureUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hpa":
		return Hectopascals, nil
	case "mbar", "mb":
		return Millibars, nil
	case "in", "inhg":
		return InchesOfMercury, nil
	case "psi":
		return PSI, nil
	default:
		return Hectopascals, fmt.Errorf("unknown pressure unit %q", s)
	}
}

func (u PressureUnit) String() string {
	switch u {
	case Hectopascals:
		return "hpa"
	case Millibars:
		return "mbar"
	case InchesOfMercury:
		return "inhg"
	case PSI:
		return "psi"
	default:
		return fmt.Sprintf("PressureUnit(%d)", int(u))
	}
}

// ToHpa converts a value expressed in u to hectopascals.
func (u PressureUnit) ToHpa(v float64) float64 {
	switch u {
	case InchesOfMercury:
		return v * hpaPerInHg
	case PSI:
		return v * hpaPerPSI
	default:
		return v
	}
}

// FromHpa converts a hectopascal value to u.
func (u PressureUnit) FromHpa(hpa float64) float64 {
	switch u {
	case InchesOfMercury:
		return hpa / hpaPerInHg
	case PSI:
		return hpa / hpaPerPSI
	default:
		return hpa
	}
}

// Pressure is a pressure value tagged with its unit. It is also used for
// pressure changes (tendency thresholds), which convert with the same factor.
type Pressure struct {
	Value float64
	Unit  PressureUnit
}

// Hpa builds a Pressure in hectopascals.
func Hpa(v float64) Pressure {
	return Pressure{Value: v, Unit: Hectopascals}
}

// Hpa returns the value in hectopascals.
func (p Pressure) Hpa() float64 {
	return p.Unit.ToHpa(p.Value)
}

// Convert returns the same pressure expressed in unit.
func (p Pressure) Convert(unit PressureUnit) Pressure {
	return Pressure{Value: unit.FromHpa(p.Hpa()), Unit: unit}
}

func (p Pressure) String() string {
	return fmt.Sprintf("%.2f %s", p.Value, p.Unit)
}
