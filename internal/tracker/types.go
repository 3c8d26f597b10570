// Package tracker implements the wrist-flexion repetition state machine.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Progression constants.
const (
	DefaultTargetForward  = 30
	DefaultTargetBackward = 15

	MinTargetForward  = 25
	MaxTargetForward  = 70
	MinTargetBackward = 10
	MaxTargetBackward = 50

	// TargetIncrement is the step applied to a target on level-up.
	TargetIncrement = 5
	// RepsToLevelUp is the number of counted reps that triggers an automatic level-up.
	RepsToLevelUp = 5

	// RearmThreshold is how close (in degrees) to neutral the hand must return to re-arm.
	RearmThreshold = 4.0
	// StraightTolerance is the maximum straightness for a rep to count.
	StraightTolerance = 10.0
	// CrookedThreshold is the straightness at which the hand is reported as bent.
	CrookedThreshold = 20.0
	// DriftFraction of the wrist-to-fingertip length the wrist may move before disarming.
	DriftFraction = 1.0 / 3.0

	// LevelUpBanner is how long a snapshot reports level_up after an automatic level-up.
	LevelUpBanner = 2 * time.Second
)

// Warning messages surfaced in snapshots.
const (
	WarnNotStraight = "Keep your hand straight."
	WarnArmMoved    = "Try not to move your arm, just your wrist."
)

// Direction is the tilt direction currently being exercised.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// String returns the lowercase wire name of the direction.
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

// ParseDirection parses "forward" or "backward" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	}
	return Forward, fmt.Errorf("unknown direction %q", s)
}

// Handedness identifies which hand is tracked.
type Handedness int

const (
	Left Handedness = iota
	Right
)

// String returns "Left" or "Right", matching MediaPipe's handedness labels.
func (h Handedness) String() string {
	if h == Right {
		return "Right"
	}
	return "Left"
}

// ParseHandedness parses "left" or "right" (case-insensitive).
func ParseHandedness(s string) (Handedness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Left, fmt.Errorf("unknown handedness %q", s)
}

// Point is a 2D position in frame pixels.
type Point struct {
	X float64
	Y float64
}

// Measurement is one frame's derived observation.
// Nil fields are absent for this frame.
type Measurement struct {
	// Primary is the wrist-to-middle-fingertip angle in degrees [0, 360).
	Primary *float64
	// Secondary is the wrist-to-middle-knuckle angle in degrees [0, 360).
	Secondary *float64
	Wrist     *Point
	Fingertip *Point
}

// State is the mutable progression state owned by a Tracker.
type State struct {
	TargetForward   int
	TargetBackward  int
	Direction       Direction
	Armed           bool
	RepsCurrent     int
	RepsLastSession int
	Baseline        *Point
}

// Target returns the target angle for the current direction.
func (s State) Target() int {
	if s.Direction == Backward {
		return s.TargetBackward
	}
	return s.TargetForward
}

// DefaultState returns the state used for a subject with no history.
func DefaultState() State {
	return State{
		TargetForward:  DefaultTargetForward,
		TargetBackward: DefaultTargetBackward,
		Direction:      Forward,
		Armed:          true,
	}
}

// SessionRecord is a finished-session row handed to the Sink.
type SessionRecord struct {
	SubjectID      string
	TargetForward  int
	TargetBackward int
	Repetitions    int
	LeveledUp      bool
	Timestamp      time.Time
}

// Snapshot is the live state pushed to display clients.
type Snapshot struct {
	Angle          *float64 `json:"angle"`
	TargetForward  int      `json:"target_forward"`
	TargetBackward int      `json:"target_backward"`
	Reps           int      `json:"reps"`
	RepsLast       int      `json:"reps_last"`
	Direction      string   `json:"direction"`
	Armed          bool     `json:"armed"`
	Warning        *string  `json:"warning"`
	LevelUp        bool     `json:"level_up"`
	Handedness     string   `json:"handedness"`
	Success        bool     `json:"success"`
}

// Sink persists finished sessions and serves the latest one for a subject.
type Sink interface {
	Insert(ctx context.Context, rec SessionRecord) error
	// Latest returns nil, nil when the subject has no sessions.
	Latest(ctx context.Context, subjectID string) (*SessionRecord, error)
}

// Signaler is notified when a repetition is counted.
type Signaler interface {
	Success()
}

// SignalerFunc adapts a function to the Signaler interface.
type SignalerFunc func()

// Success calls f.
func (f SignalerFunc) Success() { f() }
