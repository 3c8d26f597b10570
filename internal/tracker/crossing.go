package tracker

import "math"

// crossing reports whether the primary angle has passed the target.
type crossing func(angle float64, target int) bool

// towardLow is satisfied when the fingers tilt into the (0, 180) half.
func towardLow(angle float64, target int) bool {
	return angle > float64(target) && angle < 180
}

// towardHigh is satisfied when the fingers tilt into the (180, 360) half.
func towardHigh(angle float64, target int) bool {
	return angle > 180 && angle < 360-float64(target)
}

type crossingKey struct {
	direction  Direction
	handedness Handedness
}

// crossings maps each (direction, hand) pair to the half of the circle the
// primary angle must reach. Mirrored hands bend into opposite halves.
var crossings = map[crossingKey]crossing{
	{Forward, Left}:   towardLow,
	{Backward, Left}:  towardHigh,
	{Forward, Right}:  towardHigh,
	{Backward, Right}: towardLow,
}

// crossed reports whether angle is past target for the given direction and hand.
func crossed(d Direction, h Handedness, angle float64, target int) bool {
	fn, ok := crossings[crossingKey{d, h}]
	if !ok {
		return false
	}
	return fn(angle, target)
}

// angularDistance returns the shortest distance between two angles on the
// 360 degree circle, in [0, 180].
func angularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// nearNeutral reports whether angle is within RearmThreshold of 0/360.
func nearNeutral(angle float64) bool {
	return angle <= RearmThreshold || angle >= 360-RearmThreshold
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// raise steps target by TargetIncrement, wrapping to lo when it would pass hi.
func raise(target, lo, hi int) int {
	if target+TargetIncrement <= hi {
		return target + TargetIncrement
	}
	return lo
}
