// Package tray puts the tracker's commands in the system tray.
package tray

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/tracker"
)

// refreshInterval is how often the status line follows the hub.
const refreshInterval = 500 * time.Millisecond

// Tray is the system tray menu of a tracking session. Menu clicks become
// commands on the queue; the acquisition loop applies them.
type Tray struct {
	commands *live.Queue
	hub      *live.Hub
	log      *slog.Logger

	mu         sync.Mutex
	menuStatus *systray.MenuItem
	status     string
}

// New creates a Tray pushing to commands and showing state from hub.
func New(commands *live.Queue, hub *live.Hub, log *slog.Logger) *Tray {
	if log == nil {
		log = slog.Default()
	}
	return &Tray{commands: commands, hub: hub, log: log}
}

// Run starts the system tray. It must be called from the main goroutine and
// blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("ptrack")
	systray.SetTooltip("Wrist flexion tracker")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Waiting for camera...", "Current session")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuLevelUp := systray.AddMenuItem("Level up", "Save this set and raise the target")
	menuToggle := systray.AddMenuItem("Toggle direction", "Save this set and switch direction")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Save and end the session")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		for {
			select {
			case <-menuLevelUp.ClickedCh:
				t.send(tracker.CommandLevelUp)
			case <-menuToggle.ClickedCh:
				t.send(tracker.CommandToggleDirection)
			case <-menuQuit.ClickedCh:
				t.send(tracker.CommandQuit)
				return
			}
		}
	}()

	if t.hub != nil {
		go t.follow(ctx)
	}
}

func (t *Tray) onExit() {}

// send queues command, logging when the loop is not keeping up.
func (t *Tray) send(command string) {
	if err := t.commands.Push(command); err != nil {
		t.log.Warn("tray command dropped", "command", command, "error", err)
	}
}

// follow keeps the status item in step with the latest snapshot.
func (t *Tray) follow(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.hub.Done():
			return
		case <-ticker.C:
			if snap, ok := t.hub.Latest(); ok {
				t.setStatus(Status(snap))
			}
		}
	}
}

func (t *Tray) setStatus(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s == t.status {
		return
	}
	t.status = s
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(s)
	}
}

// Status formats a snapshot for the tray's status line.
func Status(s tracker.Snapshot) string {
	target := s.TargetForward
	if s.Direction == tracker.Backward.String() {
		target = s.TargetBackward
	}
	status := fmt.Sprintf("%s %d°: %d reps", s.Direction, target, s.Reps)
	if s.LevelUp {
		status += " (level up!)"
	}
	return status
}
