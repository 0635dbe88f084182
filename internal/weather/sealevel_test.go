package weather

import (
	"math"
	"testing"
	"time"

	"github.com/chrissnell/trailsense/pkg/meteorology"
)

func TestSeaLevelGPSOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdjustSeaLevelWithBarometer = false
	s := newTestService(t, cfg)

	readings := []PressureAltitudeReading{
		{Time: testNow.Add(-2 * time.Hour), Pressure: 950, Altitude: 540},
		{Time: testNow.Add(-time.Hour), Pressure: 951, Altitude: 530},
		{Time: testNow, Pressure: 949, Altitude: 560},
	}

	got := s.SeaLevel(readings)
	if len(got) != len(readings) {
		t.Fatalf("got %d readings, expected %d", len(got), len(readings))
	}
	for i, r := range readings {
		if !got[i].Time.Equal(r.Time) {
			t.Fatalf("reading %d time = %v, expected %v", i, got[i].Time, r.Time)
		}
		want := meteorology.SeaLevelPressure(r.Pressure, r.Altitude)
		if got[i].Pressure != want {
			t.Fatalf("reading %d pressure = %v, expected %v", i, got[i].Pressure, want)
		}
	}
}

func TestSeaLevelEmpty(t *testing.T) {
	s := newTestService(t, DefaultConfig())
	if got := s.SeaLevel(nil); len(got) != 0 {
		t.Fatalf("got %d readings for empty input", len(got))
	}
}

func TestBarometerAssistedAltitudeDampsGPSNoise(t *testing.T) {
	c := seaLevelConverter{barometerAssisted: true}

	var readings []PressureAltitudeReading
	for i := 0; i < 40; i++ {
		gps := 90.0
		if i%2 == 0 {
			gps = 110
		}
		if i == 0 {
			gps = 100
		}
		readings = append(readings, PressureAltitudeReading{
			Time:     testNow.Add(time.Duration(i) * 15 * time.Minute),
			Pressure: 1000,
			Altitude: gps,
		})
	}

	for i, alt := range c.altitudes(readings) {
		if math.Abs(alt-100) > 2.5 {
			t.Fatalf("altitude %d = %v, expected within 2.5 m of 100", i, alt)
		}
	}
}

func TestBarometerAssistedAltitudeFollowsFastPressureChange(t *testing.T) {
	c := seaLevelConverter{barometerAssisted: true}

	// A climb: pressure falls 10 hPa in ten minutes while the GPS lags
	readings := []PressureAltitudeReading{
		{Time: testNow, Pressure: 1000, Altitude: 100},
		{Time: testNow.Add(10 * time.Minute), Pressure: 990, Altitude: 100},
	}

	displacement := meteorology.Altitude(990, meteorology.StandardSeaLevelPressure) -
		meteorology.Altitude(1000, meteorology.StandardSeaLevelPressure)
	want := gpsAltitudeSmoothing*(100+displacement) + (1-gpsAltitudeSmoothing)*100

	got := c.altitudes(readings)
	if math.Abs(got[1]-want) > 1e-9 {
		t.Fatalf("altitude = %v, expected %v", got[1], want)
	}
	if got[1] < 150 {
		t.Fatalf("altitude = %v, expected the climb to be tracked", got[1])
	}
}

func TestSeaLevelTemperatureCompensation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdjustSeaLevelWithBarometer = false
	cfg.AdjustSeaLevelWithTemperature = true
	s := newTestService(t, cfg)

	temp := -10.0
	readings := []PressureAltitudeReading{
		{Time: testNow.Add(-time.Hour), Pressure: 900, Altitude: 1000, Temperature: &temp},
		{Time: testNow, Pressure: 900, Altitude: 1000},
	}

	got := s.SeaLevel(readings)
	if want := meteorology.SeaLevelPressureWithTemperature(900, 1000, temp); got[0].Pressure != want {
		t.Fatalf("compensated pressure = %v, expected %v", got[0].Pressure, want)
	}
	if want := meteorology.SeaLevelPressure(900, 1000); got[1].Pressure != want {
		t.Fatalf("uncompensated pressure = %v, expected %v", got[1].Pressure, want)
	}
}
