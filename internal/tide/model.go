// Package tide evaluates harmonic tide models: water height and rate at an
// instant, a day's water-level series and high/low events, and the current
// tide state. All computations are pure functions of the model and the
// requested time.
package tide

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chrissnell/trailsense/internal/sensors"
)

// ErrInvalidModel is returned for a model that cannot be evaluated
var ErrInvalidModel = errors.New("invalid tide model")

// Standard constituent speeds in degrees per mean solar hour
var StandardSpeeds = map[string]float64{
	"M2": 28.9841042,
	"S2": 30.0,
	"N2": 28.4397295,
	"K2": 30.0821373,
	"K1": 15.0410686,
	"O1": 13.9430356,
	"P1": 14.9589314,
	"M4": 57.9682084,
}

// Constituent is one harmonic term: Amplitude·cos(Speed·hours − Phase).
// Amplitude is in meters, Phase in degrees, Speed in degrees per hour.
// A zero Speed is filled in from StandardSpeeds by name.
type Constituent struct {
	Name      string  `json:"name"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
	Speed     float64 `json:"speed,omitempty"`
}

// Model is a harmonic tide definition. Hours are counted from Epoch.
// Location decides where calendar days start; nil means UTC.
type Model struct {
	Name         string              `json:"name,omitempty"`
	Coordinate   *sensors.Coordinate `json:"coordinate,omitempty"`
	Location     *time.Location      `json:"-"`
	Epoch        time.Time           `json:"epoch"`
	MeanLevel    float64             `json:"mean_level"`
	Constituents []Constituent       `json:"constituents"`
}

// NewReferenceModel builds a semidiurnal model from a single observed high
// tide: one M2 term of the given amplitude peaking at highTide.
func NewReferenceModel(name string, highTide time.Time, coordinate *sensors.Coordinate, amplitude float64) Model {
	return Model{
		Name:       name,
		Coordinate: coordinate,
		Location:   highTide.Location(),
		Epoch:      highTide,
		Constituents: []Constituent{
			{Name: "M2", Amplitude: amplitude, Speed: StandardSpeeds["M2"]},
		},
	}
}

// Validate fills in standard speeds and checks the model can be evaluated.
func (m *Model) Validate() error {
	if len(m.Constituents) == 0 {
		return fmt.Errorf("%w: %q has no constituents", ErrInvalidModel, m.Name)
	}
	if m.Epoch.IsZero() {
		return fmt.Errorf("%w: %q has no epoch", ErrInvalidModel, m.Name)
	}

	for i := range m.Constituents {
		c := &m.Constituents[i]
		if c.Speed == 0 {
			speed, ok := StandardSpeeds[strings.ToUpper(c.Name)]
			if !ok {
				return fmt.Errorf("%w: %q: constituent %q has no speed and is not a standard constituent", ErrInvalidModel, m.Name, c.Name)
			}
			c.Speed = speed
		}
		if c.Speed < 0 || c.Amplitude < 0 || math.IsNaN(c.Amplitude) || math.IsNaN(c.Phase) {
			return fmt.Errorf("%w: %q: constituent %q has a negative or undefined term", ErrInvalidModel, m.Name, c.Name)
		}
	}
	return nil
}

// speed returns the configured speed, or the standard one for the name
func (c Constituent) speed() float64 {
	if c.Speed != 0 {
		return c.Speed
	}
	return StandardSpeeds[strings.ToUpper(c.Name)]
}

func (m Model) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

func (m Model) hours(t time.Time) float64 {
	return t.Sub(m.Epoch).Hours()
}

func (m Model) significantConstituents() int {
	n := 0
	for _, c := range m.Constituents {
		if c.Amplitude > 0 {
			n++
		}
	}
	return n
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
