package output

import "testing"

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"round to 6 decimal places", 0.123456789, 0.123457},
		{"no rounding needed", 0.123456, 0.123456},
		{"round down", 0.1234564, 0.123456},
		{"zero", 0, 0},
		{"negative", -0.123456789, -0.123457},
		{"percentage", 100.0 / 3.0, 33.333333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundFloat(tt.input); got != tt.want {
				t.Errorf("RoundFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{40, "40"},
		{12.5, "12.5"},
		{0, "0"},
		{-0.0000001, "0"},
		{1.0 / 3.0, "0.333333"},
		{66.6666666, "66.666667"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.input); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
