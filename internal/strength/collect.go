package strength

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ayusman/ptrack/internal/sensor"
)

// Reading is one parsed channel value, reported while a window is open.
type Reading struct {
	Channel string
	Value   float64
	Elapsed time.Duration
}

// Samples holds everything collected during one window.
type Samples struct {
	Values  map[string][]float64
	Lines   int
	Skipped int
	// Interrupted is set when the caller cancelled before the window closed.
	Interrupted bool
}

// Channel returns the samples recorded for name.
func (s *Samples) Channel(name string) []float64 {
	return s.Values[name]
}

// Count returns the total number of channel values.
func (s *Samples) Count() int {
	n := 0
	for _, v := range s.Values {
		n += len(v)
	}
	return n
}

// Collect reads src for window, parsing every line with parse. Bad lines are
// logged and skipped. The window ends early when src is exhausted or ctx is
// cancelled; what was collected so far is still returned. onReading may be nil.
func Collect(ctx context.Context, src sensor.Source, window time.Duration, parse Parser, log *slog.Logger, onReading func(Reading)) (*Samples, error) {
	if log == nil {
		log = slog.Default()
	}
	samples := &Samples{Values: make(map[string][]float64)}

	wctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	start := time.Now()

	for {
		line, err := src.ReadLine(wctx)
		switch {
		case err == nil:
		case errors.Is(err, sensor.ErrNoLine):
			if wctx.Err() != nil {
				samples.Interrupted = ctx.Err() != nil
				return samples, nil
			}
			continue
		case errors.Is(err, io.EOF):
			return samples, nil
		case wctx.Err() != nil:
			samples.Interrupted = ctx.Err() != nil
			return samples, nil
		default:
			return samples, fmt.Errorf("read sensor: %w", err)
		}

		samples.Lines++
		values, err := parse(line)
		if err != nil {
			samples.Skipped++
			log.Debug("skipping sensor line", "line", line, "error", err)
			continue
		}

		elapsed := time.Since(start)
		for ch, v := range values {
			samples.Values[ch] = append(samples.Values[ch], v)
			if onReading != nil {
				onReading(Reading{Channel: ch, Value: v, Elapsed: elapsed})
			}
		}

		if wctx.Err() != nil {
			samples.Interrupted = ctx.Err() != nil
			return samples, nil
		}
	}
}
