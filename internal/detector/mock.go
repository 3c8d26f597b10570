package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence makes Detect return each entry once, in order. After the
// sequence is exhausted the last entry repeats.
func (m *MockDetector) SetSequence(frames [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = frames
	m.hands = nil
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		i := m.calls - 1
		if i >= len(m.sequence) {
			i = len(m.sequence) - 1
		}
		return m.sequence[i], nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset geometry, normalized to the frame. On a square frame the angles
// measured from these points match the requested ones.
const (
	presetWristX   = 0.5
	presetWristY   = 0.8
	presetFingerLn = 0.5
	presetPalmLn   = 0.2
)

// along returns the point at distance length from (x, y) in the direction of
// a wrist angle in degrees. 0 points straight up; angles grow clockwise.
func along(x, y, angle, length float64) Point3D {
	rad := angle * math.Pi / 180
	return Point3D{X: x + length*math.Sin(rad), Y: y - length*math.Cos(rad)}
}

// TiltedHand returns a flat open hand whose wrist-to-middle-fingertip line
// sits at fingers degrees and whose wrist-to-middle-knuckle line sits at
// palm degrees. Equal angles describe a straight hand.
func TiltedHand(handedness string, fingers, palm float64) HandLandmarks {
	h := HandLandmarks{
		Handedness: handedness,
		Score:      0.95,
	}
	h.Points[Wrist] = Point3D{X: presetWristX, Y: presetWristY}

	// Knuckles fan out around the middle knuckle.
	mcp := along(presetWristX, presetWristY, palm, presetPalmLn)
	knuckles := []struct {
		mcp    int
		offset float64
	}{
		{IndexMCP, -0.04},
		{MiddleMCP, 0},
		{RingMCP, 0.04},
		{PinkyMCP, 0.08},
	}
	for _, k := range knuckles {
		base := Point3D{X: mcp.X + k.offset, Y: mcp.Y}
		h.Points[k.mcp] = base
		// PIP, DIP and tip follow the finger line.
		for j := 1; j <= 3; j++ {
			step := float64(j) / 3 * (presetFingerLn - presetPalmLn)
			h.Points[k.mcp+j] = along(base.X, base.Y, fingers, step)
		}
	}
	// The middle finger is the measured one; pin its tip exactly.
	h.Points[MiddleTip] = along(presetWristX, presetWristY, fingers, presetFingerLn)

	h.Points[ThumbCMC] = along(presetWristX, presetWristY, palm-40, 0.08)
	h.Points[ThumbMCP] = along(presetWristX, presetWristY, palm-40, 0.14)
	h.Points[ThumbIP] = along(presetWristX, presetWristY, palm-40, 0.19)
	h.Points[ThumbTip] = along(presetWristX, presetWristY, palm-40, 0.24)

	return h
}

// NeutralHand returns a straight hand pointing up, the re-arm position.
func NeutralHand(handedness string) HandLandmarks {
	return TiltedHand(handedness, 0, 0)
}
