package timeutil

import "math"

// Remaining is the amount left after hours of single-compartment decay.
func Remaining(initial, halfLifeHours, hours float64) float64 {
	if halfLifeHours <= 0 {
		return 0
	}
	return initial * math.Pow(2, -hours/halfLifeHours)
}

// EliminationHours is the time for initial to decay down to threshold.
// It is zero when initial is already at or below threshold.
func EliminationHours(initial, threshold, halfLifeHours float64) float64 {
	if initial <= threshold || threshold <= 0 || halfLifeHours <= 0 {
		return 0
	}
	t := halfLifeHours * math.Log2(initial/threshold)
	if t < 0 {
		return 0
	}
	return t
}
