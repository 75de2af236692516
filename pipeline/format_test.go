package pipeline

import (
	"math"
	"testing"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{17.99, "17.99"},
		{1, "1.0"},
		{0, "0.0"},
		{-2.5, "-2.5"},
		{0.1184, "0.1184"},
		{1e-05, "1e-05"},
		{math.NaN(), "nan"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFeatureText(t *testing.T) {
	if got := FeatureText([]float64{17.99, 10.38, 122.8}); got != "[17.99, 10.38, 122.8]" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := JoinFeatures([]float64{17.99, 1}); got != "17.99,1.0" {
		t.Fatalf("unexpected line %q", got)
	}
}
