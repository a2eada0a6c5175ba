package assess

import "math"

// score maps a model-reported confidence onto 0-100. Models sometimes answer
// on a 0-1 scale; fractional values up to 1 are scaled.
func score(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v > 0 && v <= 1 && v != math.Trunc(v) {
		v *= 100
	}
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}

// minConfidence is the threshold below which a stage treats its input as unreliable.
const minConfidence = 50
