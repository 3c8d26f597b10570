package strength

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/ptrack/internal/sensor"
	"github.com/ayusman/ptrack/internal/store"
)

// Session describes one measurement window.
type Session struct {
	SubjectID string
	Window    time.Duration
	Policy    Policy
}

// GripResult is the outcome of a grip window.
type GripResult struct {
	Palm    float64
	Ratio   *float64
	Samples int
	Record  *store.GripSession
	// Saved reports whether the record reached the database.
	Saved bool
}

// PinchResult is the outcome of a pinch window. Channels without samples are nil.
type PinchResult struct {
	IndexThumb  *float64
	MiddleThumb *float64
	IndexRatio  *float64
	MiddleRatio *float64
	Samples     int
	Record      *store.PinchSession
	Saved       bool
}

// Runner runs strength windows against a session database.
type Runner struct {
	baselines store.BaselineRepository
	grip      store.GripRepository
	pinch     store.PinchRepository
	log       *slog.Logger

	// OnReading, when set, observes every parsed value.
	OnReading func(Reading)
}

// NewRunner creates a Runner backed by db. db may be nil to skip baselines
// and persistence.
func NewRunner(db store.Backend, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{log: log}
	if db != nil {
		r.baselines = db.Baselines()
		r.grip = db.Grip()
		r.pinch = db.Pinch()
	}
	return r
}

// GripSession collects a grip window from src, reduces it and stores the result.
// A persistence error is returned together with a valid result.
func (r *Runner) GripSession(ctx context.Context, src sensor.Source, s Session) (*GripResult, error) {
	samples, err := Collect(ctx, src, s.Window, ParseGripLine, r.log, r.OnReading)
	if err != nil {
		return nil, err
	}

	palm, err := Reduce(samples.Channel(ChannelPalm), s.Policy)
	if err != nil {
		return nil, err
	}

	res := &GripResult{Palm: palm, Samples: len(samples.Channel(ChannelPalm))}
	if base := r.baseline(ctx, s.SubjectID); base != nil {
		res.Ratio = ratioPtr(palm, base.Grip)
	}

	r.log.Info("grip window complete",
		"subject", s.SubjectID,
		"palm", palm,
		"samples", res.Samples,
		"skipped", samples.Skipped,
		"reduction", string(s.Policy),
	)

	res.Record = &store.GripSession{
		SubjectID: s.SubjectID,
		Palm:      palm,
		PalmRatio: res.Ratio,
		Samples:   res.Samples,
		Reduction: string(s.Policy),
	}
	if r.grip == nil {
		return res, nil
	}
	if err := r.grip.Insert(context.WithoutCancel(ctx), res.Record); err != nil {
		return res, fmt.Errorf("save grip session: %w", err)
	}
	res.Saved = true
	return res, nil
}

// PinchSession collects an index/middle pinch window from src. ErrNoData is
// returned only when neither channel produced samples.
func (r *Runner) PinchSession(ctx context.Context, src sensor.Source, s Session) (*PinchResult, error) {
	samples, err := Collect(ctx, src, s.Window, ParseChannelLine, r.log, r.OnReading)
	if err != nil {
		return nil, err
	}

	index, errIndex := Reduce(samples.Channel(ChannelIndex), s.Policy)
	middle, errMiddle := Reduce(samples.Channel(ChannelMiddle), s.Policy)
	if errIndex != nil && errMiddle != nil {
		if errors.Is(errIndex, ErrNoData) && errors.Is(errMiddle, ErrNoData) {
			return nil, ErrNoData
		}
		return nil, errors.Join(errIndex, errMiddle)
	}

	res := &PinchResult{
		Samples: len(samples.Channel(ChannelIndex)) + len(samples.Channel(ChannelMiddle)),
	}
	if errIndex == nil {
		res.IndexThumb = &index
	}
	if errMiddle == nil {
		res.MiddleThumb = &middle
	}

	if base := r.baseline(ctx, s.SubjectID); base != nil {
		if res.IndexThumb != nil {
			res.IndexRatio = ratioPtr(index, base.IndexThumb)
		}
		if res.MiddleThumb != nil {
			res.MiddleRatio = ratioPtr(middle, base.MiddleThumb)
		}
	}

	r.log.Info("pinch window complete",
		"subject", s.SubjectID,
		"samples", res.Samples,
		"skipped", samples.Skipped,
		"reduction", string(s.Policy),
	)

	res.Record = &store.PinchSession{
		SubjectID:   s.SubjectID,
		IndexThumb:  res.IndexThumb,
		MiddleThumb: res.MiddleThumb,
		IndexRatio:  res.IndexRatio,
		MiddleRatio: res.MiddleRatio,
		Samples:     res.Samples,
		Reduction:   string(s.Policy),
	}
	if r.pinch == nil {
		return res, nil
	}
	if err := r.pinch.Insert(context.WithoutCancel(ctx), res.Record); err != nil {
		return res, fmt.Errorf("save pinch session: %w", err)
	}
	res.Saved = true
	return res, nil
}

func (r *Runner) baseline(ctx context.Context, subjectID string) *store.Baseline {
	if r.baselines == nil {
		return nil
	}
	b, err := r.baselines.Get(context.WithoutCancel(ctx), subjectID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Warn("loading baseline failed", "subject", subjectID, "error", err)
		}
		return nil
	}
	return b
}

func ratioPtr(value float64, baseline *float64) *float64 {
	r, ok := Ratio(value, baseline)
	if !ok {
		return nil
	}
	return &r
}
