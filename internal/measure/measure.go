// Package measure turns hand landmarks into wrist-angle measurements.
package measure

import (
	"math"

	"github.com/ayusman/ptrack/internal/detector"
	"github.com/ayusman/ptrack/internal/tracker"
)

// Angle returns the orientation of the line from (x0, y0) to (x1, y1) in
// image coordinates, in degrees [0, 360). A line pointing straight up is 0
// and angles grow clockwise on screen.
func Angle(x0, y0, x1, y1 int) float64 {
	dx := float64(x1 - x0)
	dy := float64(y1 - y0)
	a := 180 - math.Atan2(dx, dy)*180/math.Pi
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// FromHand derives the tracker measurement for one hand on a width x height
// frame. The primary angle runs from the wrist to the middle fingertip, the
// secondary from the wrist to the middle knuckle.
func FromHand(hand detector.HandLandmarks, width, height int) tracker.Measurement {
	wx, wy := hand.Pixel(detector.Wrist, width, height)
	tx, ty := hand.Pixel(detector.MiddleTip, width, height)
	kx, ky := hand.Pixel(detector.MiddleMCP, width, height)

	primary := Angle(wx, wy, tx, ty)
	secondary := Angle(wx, wy, kx, ky)

	return tracker.Measurement{
		Primary:   &primary,
		Secondary: &secondary,
		Wrist:     &tracker.Point{X: float64(wx), Y: float64(wy)},
		Fingertip: &tracker.Point{X: float64(tx), Y: float64(ty)},
	}
}

// FromHands measures the best scoring hand, or returns an empty measurement
// when no hand was detected.
func FromHands(hands []detector.HandLandmarks, width, height int) tracker.Measurement {
	hand, ok := detector.Best(hands)
	if !ok {
		return tracker.Measurement{}
	}
	return FromHand(hand, width, height)
}
