package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// ErrServiceNotFound is returned when the MediaPipe service script cannot be located.
var ErrServiceNotFound = errors.New("mediapipe_service.py not found")

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the service script lookup when set.
	ScriptPath string

	// PythonPath overrides the interpreter lookup when set.
	PythonPath string

	// IdleTimeout stops the subprocess after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config tuned for single-hand wrist tracking.
// Tracking confidence is kept low so the hand is not dropped mid-tilt.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.4,
		MinTrackingConf: 0.25,
		IdleTimeout:     30 * time.Second,
	}
}
