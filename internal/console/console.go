package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/ayusman/ptrack/internal/strength"
)

// Work runs one strength window. onReading may be nil.
type Work func(ctx context.Context, onReading func(strength.Reading)) (string, error)

// Session describes how a window is presented.
type Session struct {
	Title  string
	Window time.Duration
	// Plain prints lines instead of running the interactive view.
	Plain bool
	Out   io.Writer
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run executes work and presents its progress and result.
func Run(ctx context.Context, s Session, work Work) error {
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.Plain {
		return runPlain(ctx, s, work)
	}
	return runTUI(ctx, s, work)
}

func runPlain(ctx context.Context, s Session, work Work) error {
	fmt.Fprintf(s.Out, "%s: collecting for %s...\n", s.Title, s.Window)
	result, err := work(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out, result)
	return nil
}

func runTUI(ctx context.Context, s Session, work Work) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(s.Title, s.Window, cancel), tea.WithOutput(s.Out))

	go func() {
		result, err := work(ctx, func(r strength.Reading) {
			p.Send(ReadingMsg(r))
		})
		p.Send(DoneMsg{Result: result, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal view: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}

func formatRatio(r *float64) string {
	if r == nil {
		return "n/a (no baseline)"
	}
	return fmt.Sprintf("%.2f", *r)
}

// FormatGrip renders a grip result.
func FormatGrip(r *strength.GripResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Palm: %.0f  ratio %s  (%d samples)", r.Palm, formatRatio(r.Ratio), r.Samples)
	if !r.Saved {
		b.WriteString("\nnot saved")
	}
	return b.String()
}

// FormatPinch renders a pinch result.
func FormatPinch(r *strength.PinchResult) string {
	var b strings.Builder
	line := func(name string, v, ratio *float64) {
		if v == nil {
			fmt.Fprintf(&b, "%s: no samples\n", name)
			return
		}
		fmt.Fprintf(&b, "%s: %.2f  ratio %s\n", name, *v, formatRatio(ratio))
	}
	line("Index-thumb", r.IndexThumb, r.IndexRatio)
	line("Middle-thumb", r.MiddleThumb, r.MiddleRatio)
	fmt.Fprintf(&b, "(%d samples)", r.Samples)
	if !r.Saved {
		b.WriteString("\nnot saved")
	}
	return b.String()
}
