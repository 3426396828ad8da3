package math

import (
	stdmath "math"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [low, high].
func Clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// WrapAngle maps an angle in radians to (-Pi, Pi].
func WrapAngle[T constraints.Float](a T) T {
	w := T(stdmath.Remainder(float64(a), 2*stdmath.Pi))
	if w <= -stdmath.Pi {
		w += 2 * stdmath.Pi
	}
	return w
}
