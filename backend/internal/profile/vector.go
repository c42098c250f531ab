package profile

import "math"

// Cosine returns (a·b)/(‖a‖·‖b‖), or 0 when either norm is 0 or the lengths
// differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}

// Combined concatenates a flavor profile and character axes into the 13-d
// similarity vector. Short or missing inputs are zero-padded.
func Combined(flavor, axes []float64) []float64 {
	out := make([]float64, Dims)
	copy(out[:FlavorDims], flavor)
	copy(out[FlavorDims:], axes)
	return out
}

// AxisIndex resolves an axis name to its index
func AxisIndex(name string) (int, bool) {
	for i, n := range AxisNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
