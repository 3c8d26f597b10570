package strength

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ayusman/ptrack/internal/sensor"
)

// ErrBusy is returned when a window is already running on the station.
var ErrBusy = errors.New("a strength session is already running")

// Opener opens the sensor for one window.
type Opener func() (sensor.Source, error)

// Station runs grip windows on demand, one at a time, opening the sensor
// fresh for each window.
type Station struct {
	runner *Runner
	open   Opener
	window time.Duration
	policy Policy
	busy   atomic.Bool
}

func NewStation(runner *Runner, open Opener, window time.Duration, policy Policy) *Station {
	return &Station{runner: runner, open: open, window: window, policy: policy}
}

// RunGrip collects and stores one grip window for subjectID.
func (s *Station) RunGrip(ctx context.Context, subjectID string) (*GripResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	src, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("opening sensor: %w", err)
	}
	defer src.Close()

	return s.runner.GripSession(ctx, src, Session{SubjectID: subjectID, Window: s.window, Policy: s.policy})
}
