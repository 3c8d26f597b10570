// Package detector provides hand landmark detection for the wrist tracker.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position. X and Y are normalized to [0, 1] of the
// frame width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Pixel returns landmark i in integer pixel coordinates of a width x height frame.
// Coordinates are truncated the same way the overlay draws them.
func (h *HandLandmarks) Pixel(i, width, height int) (x, y int) {
	p := h.Points[i]
	return int(p.X * float64(width)), int(p.Y * float64(height))
}

// Span returns the normalized 2D distance between two landmarks.
func (h *HandLandmarks) Span(a, b int) float64 {
	pa, pb := h.Points[a], h.Points[b]
	return math.Hypot(pa.X-pb.X, pa.Y-pb.Y)
}

// Best returns the highest scoring hand, or false when hands is empty.
func Best(hands []HandLandmarks) (HandLandmarks, bool) {
	if len(hands) == 0 {
		return HandLandmarks{}, false
	}
	best := hands[0]
	for _, h := range hands[1:] {
		if h.Score > best.Score {
			best = h
		}
	}
	return best, true
}
