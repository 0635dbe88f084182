package meteorology

import (
	"math"
	"testing"
)

func TestAltitude(t *testing.T) {
	tests := []struct {
		name     string
		pressure float64
		seaLevel float64
		expected float64
		epsilon  float64
	}{
		{"sea level", 1013.25, 1013.25, 0, 0.001},
		{"1000 m", 898.75, 1013.25, 1000, 5},
		{"high pressure day", 1020, 1030, 82.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Altitude(tt.pressure, tt.seaLevel)
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("Altitude(%.2f, %.2f) = %.2f, expected %.2f ± %.2f", tt.pressure, tt.seaLevel, got, tt.expected, tt.epsilon)
			}
		})
	}
}

func TestSeaLevelPressureInvertsAltitude(t *testing.T) {
	for _, alt := range []float64{-50, 0, 350, 1500, 4200} {
		for _, p := range []float64{600, 850, 1005, 1013} {
			seaLevel := SeaLevelPressure(p, alt)
			got := Altitude(p, seaLevel)
			if math.Abs(got-alt) > 1e-6 {
				t.Errorf("Altitude(SeaLevelPressure(%.0f, %.0f)) = %.8f", p, alt, got)
			}
		}
	}
}

func TestSeaLevelPressureWithTemperature(t *testing.T) {
	// Standard atmosphere temperature at the station reproduces the standard
	// reduction closely.
	std := SeaLevelPressure(900, 1000)
	got := SeaLevelPressureWithTemperature(900, 1000, 15-0.0065*1000)
	if math.Abs(got-std) > 1 {
		t.Errorf("temperature reduction = %.2f, standard = %.2f", got, std)
	}

	warm := SeaLevelPressureWithTemperature(900, 1000, 30)
	cold := SeaLevelPressureWithTemperature(900, 1000, -10)
	if warm >= cold {
		t.Errorf("warm column should reduce less: warm=%.2f cold=%.2f", warm, cold)
	}
}

func TestHeatIndex(t *testing.T) {
	tests := []struct {
		name     string
		tempC    float64
		humidity float64
		expected float64
		epsilon  float64
	}{
		{"cool day returns temperature", 20, 50, 20, 0.001},
		{"hot humid", 32, 70, 40.7, 1.0},
		{"hot dry feels no hotter than air", 38, 10, 38, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeatIndex(tt.tempC, tt.humidity)
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("HeatIndex(%.1f, %.0f) = %.2f, expected %.2f ± %.2f", tt.tempC, tt.humidity, got, tt.expected, tt.epsilon)
			}
		})
	}
}

func TestDewPoint(t *testing.T) {
	if got := DewPoint(20, 100); math.Abs(got-20) > 0.01 {
		t.Errorf("DewPoint at saturation = %.3f, expected 20", got)
	}
	if got := DewPoint(25, 50); math.Abs(got-13.9) > 0.3 {
		t.Errorf("DewPoint(25, 50) = %.3f, expected ~13.9", got)
	}
	if got := DewPoint(10, 0); !math.IsInf(got, -1) {
		t.Errorf("DewPoint with zero humidity = %v, expected -Inf", got)
	}
}
