package units

import (
	"math"
	"testing"
)

func TestParsePressureUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    PressureUnit
		wantErr bool
	}{
		{"hpa", Hectopascals, false},
		{"", Hectopascals, false},
		{"MBAR", Millibars, false},
		{"in", InchesOfMercury, false},
		{"inhg", InchesOfMercury, false},
		{"psi", PSI, false},
		{"atm", Hectopascals, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePressureUnit(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePressureUnit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePressureUnit(%q) = %v, expected %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPressureConversion(t *testing.T) {
	tests := []struct {
		name string
		p    Pressure
		hpa  float64
	}{
		{"hpa", Hpa(1013.25), 1013.25},
		{"mbar", Pressure{Value: 1013.25, Unit: Millibars}, 1013.25},
		{"inhg", Pressure{Value: 29.92, Unit: InchesOfMercury}, 1013.21},
		{"psi", Pressure{Value: 14.696, Unit: PSI}, 1013.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Hpa(); math.Abs(got-tt.hpa) > 0.1 {
				t.Errorf("Hpa() = %.3f, expected %.3f", got, tt.hpa)
			}
			back := Hpa(tt.p.Hpa()).Convert(tt.p.Unit)
			if math.Abs(back.Value-tt.p.Value) > 1e-9 {
				t.Errorf("round trip = %.6f, expected %.6f", back.Value, tt.p.Value)
			}
		})
	}
}
