package types

import (
	"fmt"
	"slices"
	"time"

	"github.com/chrissnell/trailsense/internal/sensors"
	"github.com/chrissnell/trailsense/internal/tide"
	"github.com/chrissnell/trailsense/pkg/solar"
)

// DateLayout is the calendar-date format accepted by the date parameters
const DateLayout = "2006-01-02"

// TideSummary identifies a configured tide
type TideSummary struct {
	Name       string              `json:"name"`
	Coordinate *sensors.Coordinate `json:"coordinate,omitempty"`
	TimeZone   string              `json:"time_zone"`
}

func Summarize(m tide.Model) TideSummary {
	return TideSummary{
		Name:       m.Name,
		Coordinate: m.Coordinate,
		TimeZone:   Location(m).String(),
	}
}

// TideReport is one calendar day of a tide model
type TideReport struct {
	Name        string            `json:"name"`
	Date        string            `json:"date"`
	Range       tide.Range        `json:"range"`
	Events      []tide.Event      `json:"events"`
	WaterLevels []tide.WaterLevel `json:"water_levels,omitempty"`
	Daylight    *solar.Daylight   `json:"daylight,omitempty"`

	// Current state at the time of the report
	Now     time.Time `json:"now"`
	Height  float64   `json:"height"`
	Current tide.Type `json:"current"`
	Rising  bool      `json:"rising"`
}

// BuildTideReport evaluates m for the calendar day of date. Water levels
// are included when withLevels is set.
func BuildTideReport(svc *tide.Service, m tide.Model, date, now time.Time, withLevels bool) TideReport {
	local := date.In(Location(m))
	report := TideReport{
		Name:    m.Name,
		Date:    local.Format(DateLayout),
		Range:   svc.Range(m, date),
		Events:  svc.Events(m, date),
		Now:     now,
		Height:  svc.Height(m, now),
		Current: svc.Current(m, now),
		Rising:  svc.IsRising(m, now),
	}
	if report.Events == nil {
		report.Events = []tide.Event{}
	}
	if m.Coordinate != nil {
		d := solar.On(local, m.Coordinate.Latitude, m.Coordinate.Longitude)
		report.Daylight = &d
	}
	if withLevels {
		report.WaterLevels = slices.Collect(svc.WaterLevels(m, date))
	}
	return report
}

// ParseDate reads a YYYY-MM-DD date in the model's time zone. An empty
// string means the current day.
func ParseDate(m tide.Model, s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now.In(Location(m)), nil
	}
	t, err := time.ParseInLocation(DateLayout, s, Location(m))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Location is the model's time zone, UTC when unset
func Location(m tide.Model) *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}
