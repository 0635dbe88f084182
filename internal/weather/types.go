package weather

import (
	"fmt"
	"time"
)

// PressureReading is a pressure sample in hPa
type PressureReading struct {
	Time     time.Time `json:"time"`
	Pressure float64   `json:"pressure"`
}

// PressureAltitudeReading is a raw station sample before sea-level
// adjustment. Temperature is in °C and optional.
type PressureAltitudeReading struct {
	Time        time.Time `json:"time"`
	Pressure    float64   `json:"pressure"`
	Altitude    float64   `json:"altitude"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// PressureCharacteristic is the direction of a pressure tendency
type PressureCharacteristic int

const (
	Steady PressureCharacteristic = iota
	Rising
	Falling
)

var characteristicNames = []string{"steady", "rising", "falling"}

func (c PressureCharacteristic) String() string {
	if c < 0 || int(c) >= len(characteristicNames) {
		return fmt.Sprintf("PressureCharacteristic(%d)", int(c))
	}
	return characteristicNames[c]
}

func (c PressureCharacteristic) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// PressureTendency is a classified pressure change. Amount is the signed
// change in hPa over the three-hour tendency window.
type PressureTendency struct {
	Characteristic PressureCharacteristic `json:"characteristic"`
	Amount         float64                `json:"amount"`
}

// Weather is a short-term forecast
type Weather int

const (
	NoChange Weather = iota
	Improving
	Worsening
	Storm
)

var weatherNames = []string{"no_change", "improving", "worsening", "storm"}

func (w Weather) String() string {
	if w < 0 || int(w) >= len(weatherNames) {
		return fmt.Sprintf("Weather(%d)", int(w))
	}
	return weatherNames[w]
}

func (w Weather) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// HeatAlert is an ordered severity scale from frostbite to heat danger.
// Values compare with < and >.
type HeatAlert int

const (
	FrostbiteDanger HeatAlert = iota
	FrostbiteWarning
	FrostbiteCaution
	Normal
	HeatCaution
	HeatWarning
	HeatAlertLevel
	HeatDanger
)

var heatAlertNames = []string{
	"frostbite_danger",
	"frostbite_warning",
	"frostbite_caution",
	"normal",
	"heat_caution",
	"heat_warning",
	"heat_alert",
	"heat_danger",
}

func (h HeatAlert) String() string {
	if h < 0 || int(h) >= len(heatAlertNames) {
		return fmt.Sprintf("HeatAlert(%d)", int(h))
	}
	return heatAlertNames[h]
}

func (h HeatAlert) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}
