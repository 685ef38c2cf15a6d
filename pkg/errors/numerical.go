package errors

import (
	"math"
)

// CheckFloat32s checks a float32 slice for NaN or Inf. offset is added to
// the index reported in the error so callers can pass a row or column base.
func CheckFloat32s(operation string, values []float32, offset int) error {
	for i, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NewNumericalInstabilityError(operation, []float64{f}, offset+i)
		}
	}
	return nil
}

// ClipValue clips a value to the range [min, max].
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
