package tide

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chrissnell/trailsense/internal/sensors"
	"github.com/chrissnell/trailsense/pkg/config"
)

// ErrNotFound is returned when no tide model matches a query
var ErrNotFound = errors.New("tide model not found")

// DefaultReferenceAmplitude is used for reference tides configured without
// an amplitude, in meters.
const DefaultReferenceAmplitude = 1.0

const earthRadiusMeters = 6371008.8

// Loader is a read-only source of tide models
type Loader interface {
	ByName(ctx context.Context, name string) (Model, error)
	Nearest(ctx context.Context, c sensors.Coordinate) (Model, error)
	All(ctx context.Context) ([]Model, error)
}

// ConfigLoader serves the tide definitions from the configuration
type ConfigLoader struct {
	models []Model
}

// NewConfigLoader converts and validates the configured tides
func NewConfigLoader(defs []config.TideData) (*ConfigLoader, error) {
	l := &ConfigLoader{}
	for _, def := range defs {
		m, err := ModelFromConfig(def)
		if err != nil {
			return nil, err
		}
		l.models = append(l.models, m)
	}
	return l, nil
}

// ModelFromConfig builds a model from one configured tide. A definition
// with a reference high tide and no constituents becomes a reference model.
func ModelFromConfig(def config.TideData) (Model, error) {
	loc := time.UTC
	if def.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(def.Timezone)
		if err != nil {
			return Model{}, fmt.Errorf("tide %q: bad timezone: %w", def.Name, err)
		}
	}

	var coordinate *sensors.Coordinate
	if def.Latitude != nil && def.Longitude != nil {
		coordinate = &sensors.Coordinate{Latitude: *def.Latitude, Longitude: *def.Longitude}
	}

	var m Model
	if len(def.Constituents) == 0 && def.ReferenceHighTide != "" {
		highTide, err := time.Parse(time.RFC3339, def.ReferenceHighTide)
		if err != nil {
			return Model{}, fmt.Errorf("tide %q: bad reference high tide: %w", def.Name, err)
		}
		amplitude := def.ReferenceAmplitude
		if amplitude == 0 {
			amplitude = DefaultReferenceAmplitude
		}
		m = NewReferenceModel(def.Name, highTide, coordinate, amplitude)
		m.MeanLevel = def.MeanLevel
	} else {
		epoch, err := time.Parse(time.RFC3339, def.Epoch)
		if err != nil {
			return Model{}, fmt.Errorf("tide %q: bad epoch: %w", def.Name, err)
		}
		m = Model{
			Name:       def.Name,
			Coordinate: coordinate,
			Epoch:      epoch,
			MeanLevel:  def.MeanLevel,
		}
		for _, c := range def.Constituents {
			m.Constituents = append(m.Constituents, Constituent{
				Name:      c.Name,
				Amplitude: c.Amplitude,
				Phase:     c.Phase,
				Speed:     c.Speed,
			})
		}
	}
	m.Location = loc

	if err := m.Validate(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// ByName returns the model with a case-insensitive name match
func (l *ConfigLoader) ByName(_ context.Context, name string) (Model, error) {
	for _, m := range l.models {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Nearest returns the located model closest to c
func (l *ConfigLoader) Nearest(_ context.Context, c sensors.Coordinate) (Model, error) {
	best := -1
	bestDistance := math.Inf(1)
	for i, m := range l.models {
		if m.Coordinate == nil {
			continue
		}
		if d := Distance(c, *m.Coordinate); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	if best < 0 {
		return Model{}, fmt.Errorf("%w: no tide has a location", ErrNotFound)
	}
	return l.models[best], nil
}

// All returns every configured model
func (l *ConfigLoader) All(context.Context) ([]Model, error) {
	out := make([]Model, len(l.models))
	copy(out, l.models)
	return out, nil
}

// Distance is the great-circle distance between a and b in meters
func Distance(a, b sensors.Coordinate) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
