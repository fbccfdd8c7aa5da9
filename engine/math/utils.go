package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// ClampMin is like Clamp without an upper bound. A high of zero in a surface
// capability means "no limit".
func ClampMin[T constraints.Integer](f, low, high T) T {
	if high == 0 {
		if f < low {
			return low
		}
		return f
	}
	return Clamp(f, low, high)
}
