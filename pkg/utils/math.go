package utils

import "math"

// SafeDiv divides a by b, returning 0 when b is zero or the result is not finite.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	v := a / b
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Percent returns part/whole*100 with the same guard as SafeDiv.
func Percent(part, whole int64) float64 {
	return SafeDiv(float64(part), float64(whole)) * 100
}
