// Package app runs the wrist-flexion acquisition loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ayusman/ptrack/internal/capture"
	"github.com/ayusman/ptrack/internal/detector"
	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/measure"
	"github.com/ayusman/ptrack/internal/overlay"
	"github.com/ayusman/ptrack/internal/tracker"
)

// Config holds loop options.
type Config struct {
	// Preview renders the HUD and publishes a JPEG frame every tick.
	Preview bool
}

// App owns the camera, detector and tracker for one session. Only the loop
// goroutine touches the tracker; other goroutines talk to it through the
// command queue and read its state from the hub.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	tracker  *tracker.Tracker
	hub      *live.Hub
	commands *live.Queue
	log      *slog.Logger
}

// New creates an App. hub and commands may be nil.
func New(config Config, camera capture.Camera, det detector.Detector, trk *tracker.Tracker, hub *live.Hub, commands *live.Queue, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{
		config:   config,
		camera:   camera,
		detector: det,
		tracker:  trk,
		hub:      hub,
		commands: commands,
		log:      log,
	}
}

// Run opens the camera and ticks at the camera's frame rate until ctx is
// cancelled, a quit command arrives or the camera runs out of frames. The
// final session record is written on every exit path.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}
	defer a.camera.Close()
	defer func() {
		if err := a.detector.Close(); err != nil {
			a.log.Warn("closing detector", "error", err)
		}
	}()
	if a.hub != nil {
		defer a.hub.Close()
	}
	defer a.tracker.EndSession()

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.log.Info("tracking started", "fps", fps)
	if a.hub != nil {
		a.hub.Publish(a.tracker.Snapshot())
	}

	for {
		select {
		case <-ctx.Done():
			a.log.Info("tracking stopped")
			return nil
		case <-ticker.C:
			if a.Tick() {
				return nil
			}
		}
	}
}

// Tick runs one iteration of the loop and reports whether the session should end.
func (a *App) Tick() (quit bool) {
	if a.applyCommands() {
		a.log.Info("quit requested")
		return true
	}

	frame, err := a.camera.ReadFrame()
	if errors.Is(err, capture.ErrNoMoreFrames) {
		a.log.Info("camera playback finished")
		return true
	}
	if err != nil {
		a.log.Debug("reading frame", "error", err)
		return false
	}
	defer frame.Close()

	hands, err := a.detector.Detect(frame)
	if err != nil {
		a.log.Warn("hand detection failed", "error", err)
		hands = nil
	}

	m := measure.FromHands(hands, frame.Cols(), frame.Rows())
	snap := a.tracker.Observe(m)
	if snap.Success {
		a.log.Debug("rep counted", "reps", snap.Reps, "direction", snap.Direction)
	}

	if a.hub == nil {
		return false
	}
	a.hub.Publish(snap)

	if a.config.Preview {
		overlay.Draw(frame, snap, m)
		jpeg, err := overlay.Encode(frame)
		if err != nil {
			a.log.Debug("encoding preview", "error", err)
			return false
		}
		a.hub.PublishFrame(jpeg)
	}
	return false
}

// applyCommands executes queued commands in arrival order.
func (a *App) applyCommands() (quit bool) {
	if a.commands == nil {
		return false
	}
	for _, cmd := range a.commands.Drain() {
		q, err := a.tracker.Apply(cmd)
		if err != nil {
			a.log.Warn("ignoring command", "command", cmd, "error", err)
			continue
		}
		if q {
			return true
		}
		if a.hub != nil {
			a.hub.Publish(a.tracker.Snapshot())
		}
	}
	return false
}

// Bell returns a Signaler that rings the terminal bell on w.
func Bell(w io.Writer) tracker.Signaler {
	return tracker.SignalerFunc(func() {
		io.WriteString(w, "\a")
	})
}
