package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Commands accepted from the companion app, tray, and HTTP API.
const (
	CommandToggleDirection = "toggle_direction"
	CommandLevelUp         = "level_up"
	CommandQuit            = "quit"
)

// ErrUnknownCommand is returned by Apply for unrecognized commands.
var ErrUnknownCommand = errors.New("unknown command")

// DefaultPersistTimeout bounds each Sink call made from the tick loop.
const DefaultPersistTimeout = 5 * time.Second

// Config holds per-session tracker settings.
type Config struct {
	SubjectID      string
	Handedness     Handedness
	PersistTimeout time.Duration
}

// Tracker consumes per-frame measurements and maintains progression state.
// It is not safe for concurrent use; one acquisition loop owns it.
type Tracker struct {
	cfg    Config
	sink   Sink
	signal Signaler
	log    *slog.Logger
	now    func() time.Time

	state     State
	angle     *float64
	levelUpAt time.Time
}

// New creates a Tracker starting from state. sink and signal may be nil.
func New(cfg Config, state State, sink Sink, signal Signaler, log *slog.Logger) *Tracker {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		cfg:    cfg,
		sink:   sink,
		signal: signal,
		log:    log,
		now:    time.Now,
		state:  state,
	}
}

// Load builds the initial state for a subject from the sink's latest record.
// Defaults are used when the subject has no history or the sink fails.
func Load(ctx context.Context, sink Sink, subjectID string, log *slog.Logger) State {
	state := DefaultState()
	if sink == nil {
		return state
	}

	rec, err := sink.Latest(ctx, subjectID)
	if err != nil {
		if log != nil {
			log.Warn("loading last session failed, using defaults", "subject", subjectID, "error", err)
		}
		return state
	}
	if rec == nil {
		return state
	}

	state.TargetForward = clamp(rec.TargetForward, MinTargetForward, MaxTargetForward)
	state.TargetBackward = clamp(rec.TargetBackward, MinTargetBackward, MaxTargetBackward)
	state.RepsLastSession = rec.Repetitions
	return state
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// State returns a copy of the current progression state.
func (t *Tracker) State() State {
	s := t.state
	if s.Baseline != nil {
		b := *s.Baseline
		s.Baseline = &b
	}
	return s
}

// Observe applies one frame's measurement and returns the resulting snapshot.
func (t *Tracker) Observe(m Measurement) Snapshot {
	t.angle = nil
	if m.Primary == nil || m.Secondary == nil {
		return t.snapshot("", false)
	}

	primary, secondary := *m.Primary, *m.Secondary
	t.angle = &primary

	warning := ""
	straightness := angularDistance(secondary, primary)
	if straightness >= CrookedThreshold {
		warning = WarnNotStraight
	}

	success := false
	if t.state.Armed && straightness < StraightTolerance &&
		crossed(t.state.Direction, t.cfg.Handedness, primary, t.state.Target()) {
		success = true
		t.state.Armed = false
		t.state.RepsCurrent++
		if t.signal != nil {
			t.signal.Success()
		}
		if t.state.RepsCurrent >= RepsToLevelUp {
			t.autoLevelUp()
		}
	}

	if !t.state.Armed && nearNeutral(primary) {
		t.state.Armed = true
		if m.Wrist != nil {
			w := *m.Wrist
			t.state.Baseline = &w
		}
	}

	if m.Wrist != nil && m.Fingertip != nil {
		if t.state.Baseline == nil {
			w := *m.Wrist
			t.state.Baseline = &w
		}
		handLen := distance(*m.Wrist, *m.Fingertip)
		if handLen > 0 && distance(*m.Wrist, *t.state.Baseline) > handLen*DriftFraction {
			t.state.Armed = false
			warning = WarnArmMoved
		}
	}

	return t.snapshot(warning, success)
}

// autoLevelUp records the completed set, raises the finished direction's
// target and switches to the other direction.
func (t *Tracker) autoLevelUp() {
	t.persist(true)

	// Raise before flipping: five forward reps at 30 must leave forward at 35.
	t.raiseTarget(t.state.Direction)
	t.state.Direction = t.state.Direction.Opposite()
	t.state.RepsLastSession = t.state.RepsCurrent
	t.state.RepsCurrent = 0
	t.levelUpAt = t.now()

	t.log.Info("level up",
		"direction", t.state.Direction.String(),
		"target_forward", t.state.TargetForward,
		"target_backward", t.state.TargetBackward,
	)
}

func (t *Tracker) raiseTarget(d Direction) {
	if d == Backward {
		t.state.TargetBackward = raise(t.state.TargetBackward, MinTargetBackward, MaxTargetBackward)
		return
	}
	t.state.TargetForward = raise(t.state.TargetForward, MinTargetForward, MaxTargetForward)
}

// ManualLevelUp persists the current session and raises the current direction's target.
func (t *Tracker) ManualLevelUp() {
	t.persist(false)
	t.raiseTarget(t.state.Direction)
	t.state.RepsLastSession = t.state.RepsCurrent
	t.state.RepsCurrent = 0

	t.log.Info("manual level up",
		"target_forward", t.state.TargetForward,
		"target_backward", t.state.TargetBackward,
	)
}

// ToggleDirection persists the current session and switches direction.
func (t *Tracker) ToggleDirection() {
	t.persist(false)
	t.state.Direction = t.state.Direction.Opposite()
	t.state.RepsLastSession = t.state.RepsCurrent
	t.state.RepsCurrent = 0

	t.log.Info("direction toggled", "direction", t.state.Direction.String())
}

// EndSession persists the final session record.
func (t *Tracker) EndSession() {
	t.log.Info("session complete",
		"reps", t.state.RepsCurrent,
		"target_forward", t.state.TargetForward,
		"target_backward", t.state.TargetBackward,
	)
	t.persist(false)
}

// Apply executes a companion command. It reports quit for CommandQuit.
func (t *Tracker) Apply(command string) (quit bool, err error) {
	switch command {
	case CommandToggleDirection:
		t.ToggleDirection()
	case CommandLevelUp:
		t.ManualLevelUp()
	case CommandQuit:
		return true, nil
	default:
		return false, ErrUnknownCommand
	}
	return false, nil
}

// Snapshot returns the current state without observing a new frame.
func (t *Tracker) Snapshot() Snapshot {
	return t.snapshot("", false)
}

func (t *Tracker) snapshot(warning string, success bool) Snapshot {
	s := Snapshot{
		TargetForward:  t.state.TargetForward,
		TargetBackward: t.state.TargetBackward,
		Reps:           t.state.RepsCurrent,
		RepsLast:       t.state.RepsLastSession,
		Direction:      t.state.Direction.String(),
		Armed:          t.state.Armed,
		LevelUp:        !t.levelUpAt.IsZero() && t.now().Sub(t.levelUpAt) < LevelUpBanner,
		Handedness:     t.cfg.Handedness.String(),
		Success:        success,
	}
	if t.angle != nil {
		a := *t.angle
		s.Angle = &a
	}
	if warning != "" {
		s.Warning = &warning
	}
	return s
}

// persist hands a record of the current session to the sink. Failures are
// logged; in-memory state stays authoritative.
func (t *Tracker) persist(leveledUp bool) {
	if t.sink == nil {
		return
	}

	rec := SessionRecord{
		SubjectID:      t.cfg.SubjectID,
		TargetForward:  t.state.TargetForward,
		TargetBackward: t.state.TargetBackward,
		Repetitions:    t.state.RepsCurrent,
		LeveledUp:      leveledUp,
		Timestamp:      t.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.PersistTimeout)
	defer cancel()

	if err := t.sink.Insert(ctx, rec); err != nil {
		t.log.Error("saving session failed", "subject", rec.SubjectID, "reps", rec.Repetitions, "error", err)
		return
	}
	t.log.Info("session saved",
		"reps", rec.Repetitions,
		"target_forward", rec.TargetForward,
		"target_backward", rec.TargetBackward,
		"level_up", rec.LeveledUp,
	)
}
