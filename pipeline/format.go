package pipeline

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v the way the dataset tooling prints floats: shortest
// round-trip form, always with a fractional part or an exponent.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	abs := math.Abs(v)
	if abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// JoinFeatures comma-joins features without spaces, one CSV line.
func JoinFeatures(features []float64) string {
	parts := make([]string, len(features))
	for i, v := range features {
		parts[i] = FormatFloat(v)
	}
	return strings.Join(parts, ",")
}

// FeatureText renders features as a bracketed list, e.g. "[17.99, 10.38]".
func FeatureText(features []float64) string {
	parts := make([]string, len(features))
	for i, v := range features {
		parts[i] = FormatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
