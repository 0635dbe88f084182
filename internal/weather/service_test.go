package weather

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/trailsense/pkg/meteorology"
	"github.com/chrissnell/trailsense/pkg/units"
)

var testNow = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	s, err := NewService(cfg, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

// stormHistory is 1013 hPa for six hours followed by a steady drop to
// 1005 hPa over the last hour, sampled every ten minutes.
func stormHistory() []PressureReading {
	var readings []PressureReading
	start := testNow.Add(-7 * time.Hour)
	for m := 0; m <= 7*60; m += 10 {
		ts := start.Add(time.Duration(m) * time.Minute)
		p := 1013.0
		if m > 6*60 {
			p = 1013 - 8*float64(m-6*60)/60
		}
		readings = append(readings, PressureReading{Time: ts, Pressure: p})
	}
	return readings
}

func mirror(readings []PressureReading, around float64) []PressureReading {
	out := make([]PressureReading, len(readings))
	for i, r := range readings {
		out[i] = PressureReading{Time: r.Time, Pressure: 2*around - r.Pressure}
	}
	return out
}

func TestStormExample(t *testing.T) {
	s := newTestService(t, DefaultConfig())
	readings := stormHistory()

	tendency := s.Tendency(readings, nil)
	if tendency.Characteristic != Falling {
		t.Fatalf("characteristic = %v, expected falling", tendency.Characteristic)
	}
	if math.Abs(tendency.Amount+8) > 1e-9 {
		t.Fatalf("amount = %v, expected -8", tendency.Amount)
	}

	if w := s.HourlyWeather(readings, nil); w != Storm {
		t.Fatalf("hourly weather = %v, expected storm", w)
	}
}

func TestTendencySymmetry(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	histories := map[string][]PressureReading{
		"storm": stormHistory(),
		"slow": {
			{Time: testNow.Add(-3 * time.Hour), Pressure: 1010},
			{Time: testNow, Pressure: 1009},
		},
		"moderate": {
			{Time: testNow.Add(-4 * time.Hour), Pressure: 1020},
			{Time: testNow.Add(-3 * time.Hour), Pressure: 1018},
			{Time: testNow, Pressure: 1015},
		},
	}

	for name, readings := range histories {
		t.Run(name, func(t *testing.T) {
			down := s.Tendency(readings, nil)
			up := s.Tendency(mirror(readings, 1013), nil)

			if math.Abs(down.Amount+up.Amount) > 1e-9 {
				t.Fatalf("amounts %v and %v are not opposite", down.Amount, up.Amount)
			}
			switch down.Characteristic {
			case Falling:
				if up.Characteristic != Rising {
					t.Fatalf("mirror of falling is %v", up.Characteristic)
				}
			case Steady:
				if up.Characteristic != Steady {
					t.Fatalf("mirror of steady is %v", up.Characteristic)
				}
			default:
				t.Fatalf("unexpected characteristic %v for a falling history", down.Characteristic)
			}
		})
	}
}

func TestTendencyClassification(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	tests := []struct {
		name       string
		readings   []PressureReading
		lastKnown  *PressureReading
		want       PressureCharacteristic
		wantAmount float64
	}{
		{
			name:     "empty history",
			readings: nil,
			want:     Steady,
		},
		{
			name:     "single reading without last known",
			readings: []PressureReading{{Time: testNow, Pressure: 1000}},
			want:     Steady,
		},
		{
			name:       "single reading uses last known",
			readings:   []PressureReading{{Time: testNow, Pressure: 1002}},
			lastKnown:  &PressureReading{Time: testNow.Add(-2 * time.Hour), Pressure: 1000},
			want:       Rising,
			wantAmount: 3,
		},
		{
			name:      "last known newer than current is ignored",
			readings:  []PressureReading{{Time: testNow, Pressure: 1002}},
			lastKnown: &PressureReading{Time: testNow.Add(time.Minute), Pressure: 990},
			want:      Steady,
		},
		{
			name: "below threshold is steady",
			readings: []PressureReading{
				{Time: testNow.Add(-3 * time.Hour), Pressure: 1013},
				{Time: testNow, Pressure: 1012},
			},
			want:       Steady,
			wantAmount: -1,
		},
		{
			name: "threshold itself is not steady",
			readings: []PressureReading{
				{Time: testNow.Add(-3 * time.Hour), Pressure: 1013},
				{Time: testNow, Pressure: 1014.5},
			},
			want:       Rising,
			wantAmount: 1.5,
		},
		{
			name: "shorter span is normalized to three hours",
			readings: []PressureReading{
				{Time: testNow.Add(-90 * time.Minute), Pressure: 1010},
				{Time: testNow, Pressure: 1008},
			},
			want:       Falling,
			wantAmount: -4,
		},
		{
			name: "reference is the reading closest to three hours ago",
			readings: []PressureReading{
				{Time: testNow.Add(-6 * time.Hour), Pressure: 990},
				{Time: testNow.Add(-190 * time.Minute), Pressure: 1000},
				{Time: testNow.Add(-2 * time.Hour), Pressure: 1010},
				{Time: testNow.Add(-10 * time.Minute), Pressure: 1000},
			},
			want: Steady,
		},
		{
			name: "duplicate timestamps",
			readings: []PressureReading{
				{Time: testNow, Pressure: 1000},
				{Time: testNow, Pressure: 1001},
			},
			want: Steady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Tendency(tt.readings, tt.lastKnown)
			if got.Characteristic != tt.want {
				t.Fatalf("characteristic = %v, expected %v", got.Characteristic, tt.want)
			}
			if math.Abs(got.Amount-tt.wantAmount) > 1e-9 {
				t.Fatalf("amount = %v, expected %v", got.Amount, tt.wantAmount)
			}
		})
	}
}

func TestHourlyWeather(t *testing.T) {
	s := newTestService(t, DefaultConfig())
	threeHoursAgo := testNow.Add(-3 * time.Hour)

	tests := []struct {
		name     string
		readings []PressureReading
		want     Weather
	}{
		{name: "no readings", readings: nil, want: NoChange},
		{
			name:     "steady",
			readings: []PressureReading{{Time: threeHoursAgo, Pressure: 1013}, {Time: testNow, Pressure: 1013.5}},
			want:     NoChange,
		},
		{
			name:     "rising",
			readings: []PressureReading{{Time: threeHoursAgo, Pressure: 1010}, {Time: testNow, Pressure: 1013}},
			want:     Improving,
		},
		{
			name:     "falling",
			readings: []PressureReading{{Time: threeHoursAgo, Pressure: 1013}, {Time: testNow, Pressure: 1010}},
			want:     Worsening,
		},
		{
			name:     "storm boundary",
			readings: []PressureReading{{Time: threeHoursAgo, Pressure: 1013}, {Time: testNow, Pressure: 1007}},
			want:     Storm,
		},
		{
			name:     "fast rise is not a storm",
			readings: []PressureReading{{Time: threeHoursAgo, Pressure: 1000}, {Time: testNow, Pressure: 1012}},
			want:     Improving,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.HourlyWeather(tt.readings, nil); got != tt.want {
				t.Fatalf("HourlyWeather = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestForecastsAreIdempotent(t *testing.T) {
	s := newTestService(t, DefaultConfig())
	readings := stormHistory()

	first := []interface{}{s.Tendency(readings, nil), s.HourlyWeather(readings, nil), s.DailyWeather(readings)}
	for i := 0; i < 3; i++ {
		again := []interface{}{s.Tendency(readings, nil), s.HourlyWeather(readings, nil), s.DailyWeather(readings)}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("call %d result %d = %v, expected %v", i, j, again[j], first[j])
			}
		}
	}
}

func TestDailyWeather(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	hourly := func(slope float64) []PressureReading {
		var readings []PressureReading
		for h := 24; h >= 0; h-- {
			ts := testNow.Add(-time.Duration(h) * time.Hour)
			readings = append(readings, PressureReading{Time: ts, Pressure: 1000 + slope*float64(24-h)})
		}
		return readings
	}

	tests := []struct {
		name     string
		readings []PressureReading
		want     Weather
	}{
		{name: "empty", readings: nil, want: NoChange},
		{name: "single", readings: []PressureReading{{Time: testNow, Pressure: 1000}}, want: NoChange},
		{
			name:     "same timestamp",
			readings: []PressureReading{{Time: testNow, Pressure: 1000}, {Time: testNow, Pressure: 1010}},
			want:     NoChange,
		},
		{name: "flat", readings: hourly(0), want: NoChange},
		{name: "rising", readings: hourly(0.5), want: Improving},
		{name: "falling", readings: hourly(-0.5), want: Worsening},
		{name: "slow drift", readings: hourly(0.1), want: NoChange},
		{
			name: "old readings are ignored",
			readings: []PressureReading{
				{Time: testNow.Add(-48 * time.Hour), Pressure: 900},
				{Time: testNow.Add(-30 * time.Hour), Pressure: 950},
				{Time: testNow, Pressure: 1000},
			},
			want: NoChange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.DailyWeather(tt.readings); got != tt.want {
				t.Fatalf("DailyWeather = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestThresholdUnits(t *testing.T) {
	cfg := DefaultConfig()
	// 0.0443 inHg is just over 1.5 hPa
	cfg.HourlyChangeThreshold = units.Pressure{Value: 0.0443, Unit: units.InchesOfMercury}
	s := newTestService(t, cfg)

	readings := []PressureReading{
		{Time: testNow.Add(-3 * time.Hour), Pressure: 1013},
		{Time: testNow, Pressure: 1014.5},
	}
	if got := s.Tendency(readings, nil); got.Characteristic != Steady {
		t.Fatalf("characteristic = %v, expected steady below 0.0443 inHg", got.Characteristic)
	}
}

func TestInvalidThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero storm", mutate: func(c *Config) { c.StormThreshold = units.Hpa(0) }},
		{name: "negative hourly", mutate: func(c *Config) { c.HourlyChangeThreshold = units.Hpa(-1) }},
		{name: "nan daily", mutate: func(c *Config) { c.DailyChangeThreshold = units.Hpa(math.NaN()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewService(cfg); !errors.Is(err, ErrInvalidThreshold) {
				t.Fatalf("NewService error = %v, expected ErrInvalidThreshold", err)
			}
		})
	}
}

func TestClassifyHeat(t *testing.T) {
	tests := []struct {
		heatIndex float64
		want      HeatAlert
	}{
		{-30, FrostbiteDanger},
		{-25, FrostbiteDanger},
		{-20, FrostbiteWarning},
		{0, FrostbiteCaution},
		{20, Normal},
		{27, HeatCaution},
		{35, HeatWarning},
		{45, HeatAlertLevel},
		{55, HeatDanger},
	}

	for _, tt := range tests {
		if got := ClassifyHeat(tt.heatIndex); got != tt.want {
			t.Errorf("ClassifyHeat(%v) = %v, expected %v", tt.heatIndex, got, tt.want)
		}
	}

	prev := FrostbiteDanger
	for hi := -40.0; hi <= 60; hi += 0.5 {
		got := ClassifyHeat(hi)
		if got < prev {
			t.Fatalf("alert decreased from %v to %v at %v", prev, got, hi)
		}
		prev = got
	}
}

func TestDerivedMetrics(t *testing.T) {
	s := newTestService(t, DefaultConfig())

	if got, want := s.HeatIndex(35, 60), meteorology.HeatIndex(35, 60); got != want {
		t.Fatalf("HeatIndex = %v, expected %v", got, want)
	}
	if got, want := s.DewPoint(20, 50), meteorology.DewPoint(20, 50); got != want {
		t.Fatalf("DewPoint = %v, expected %v", got, want)
	}
	if got := s.HeatAlert(s.HeatIndex(35, 60)); got < HeatWarning {
		t.Fatalf("HeatAlert for 35°C at 60%% = %v, expected at least heat warning", got)
	}
}
