// Package console shows strength sessions in the terminal.
package console

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ayusman/ptrack/internal/strength"
)

// ReadingMsg carries one sensor value into the model.
type ReadingMsg strength.Reading

// DoneMsg ends the session with a formatted result or an error.
type DoneMsg struct {
	Result string
	Err    error
}

type tickMsg time.Time

const tickInterval = 100 * time.Millisecond

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the countdown view of a running window.
type Model struct {
	title   string
	window  time.Duration
	start   time.Time
	spinner spinner.Model

	latest  map[string]float64
	peak    map[string]float64
	samples int

	interrupted bool
	done        bool
	result      string
	err         error

	// cancel stops collection early; the window's samples are still reduced.
	cancel func()
	now    func() time.Time
}

// NewModel creates the view for a window of the given length. cancel is
// invoked when the user interrupts.
func NewModel(title string, window time.Duration, cancel func()) Model {
	return Model{
		title:   title,
		window:  window,
		start:   time.Now(),
		spinner: newSpinner(),
		latest:  make(map[string]float64),
		peak:    make(map[string]float64),
		cancel:  cancel,
		now:     time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.interrupted && m.cancel != nil {
				m.cancel()
			}
			m.interrupted = true
		}
		return m, nil

	case ReadingMsg:
		m.samples++
		m.latest[msg.Channel] = msg.Value
		if p, ok := m.peak[msg.Channel]; !ok || msg.Value > p {
			m.peak[msg.Channel] = msg.Value
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Remaining returns the time left in the window.
func (m Model) Remaining() time.Duration {
	left := m.window - m.now().Sub(m.start)
	if left < 0 {
		return 0
	}
	return left
}

// Err returns the session error once the model has finished.
func (m Model) Err() error {
	return m.err
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.done {
		if m.err != nil {
			b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n")
		return b.String()
	}

	status := fmt.Sprintf("Squeeze! %.1fs left", m.Remaining().Seconds())
	if m.interrupted {
		status = "Stopping..."
	}
	b.WriteString(m.spinner.View() + " " + countdownStyle.Render(status))
	b.WriteString("\n\n")

	channels := make([]string, 0, len(m.latest))
	for ch := range m.latest {
		channels = append(channels, ch)
	}
	slices.Sort(channels)
	for _, ch := range channels {
		line := fmt.Sprintf("%-7s %8.2f  peak %8.2f", ch, m.latest[ch], m.peak[ch])
		b.WriteString(channelStyle.Render(line))
		b.WriteString("\n")
	}
	if len(channels) == 0 {
		b.WriteString(dimStyle.Render("  waiting for sensor..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d samples  q: stop early", m.samples)))
	b.WriteString("\n")
	return b.String()
}
