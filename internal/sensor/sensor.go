// Package sensor reads newline-terminated readings from strength sensors.
package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// ErrNoLine is returned by ReadLine when no complete line arrived before the
// read timeout. Callers should simply try again.
var ErrNoLine = errors.New("no line available")

// maxLine bounds a single reading; longer garbage is discarded.
const maxLine = 1024

// DefaultReadTimeout is used when Open is given no read timeout. Without one
// a quiet port would block Read forever.
const DefaultReadTimeout = 500 * time.Millisecond

// Source yields one sensor reading per line.
type Source interface {
	// ReadLine returns the next line without its terminator. It returns
	// ErrNoLine on timeout and io.EOF when the source is exhausted.
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// Port is a serial-connected sensor.
type Port struct {
	port  serial.Port
	lines *lineReader
}

// Open opens a serial port at baud, with reads returning after readTimeout.
// A non-positive readTimeout means DefaultReadTimeout.
func Open(name string, baud int, readTimeout time.Duration) (*Port, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, withPorts(fmt.Errorf("open serial port %s: %w", name, err), Ports)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	// Stale bytes from before the session would skew the window.
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", name, err)
	}
	return &Port{port: p, lines: newLineReader(p)}, nil
}

func (p *Port) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.lines.next()
}

func (p *Port) Close() error {
	return p.port.Close()
}

// Ports lists the serial devices present on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// withPorts appends the devices list reports to err, so a wrong port name
// shows what to use instead.
func withPorts(err error, list func() ([]string, error)) error {
	ports, lerr := list()
	if lerr != nil {
		return err
	}
	if len(ports) == 0 {
		return fmt.Errorf("%w (no serial ports found)", err)
	}
	return fmt.Errorf("%w (available: %s)", err, strings.Join(ports, ", "))
}

// lineReader splits a reader whose Read returns (0, nil) on timeout into lines.
type lineReader struct {
	r       io.Reader
	buf     [256]byte
	pending bytes.Buffer
	// discarding is set while the tail of an oversized line is skipped.
	discarding bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r}
}

func (l *lineReader) next() (string, error) {
	for {
		if line, ok := l.take(); ok {
			return line, nil
		}

		n, err := l.r.Read(l.buf[:])
		if n > 0 {
			l.buffer(l.buf[:n])
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && l.pending.Len() > 0 {
				line := string(bytes.TrimRight(l.pending.Bytes(), "\r"))
				l.pending.Reset()
				return line, nil
			}
			return "", err
		}
		return "", ErrNoLine
	}
}

// buffer appends data to pending, dropping any line longer than maxLine up
// to and including its newline.
func (l *lineReader) buffer(data []byte) {
	if l.discarding {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return
		}
		l.discarding = false
		data = data[i+1:]
	}
	l.pending.Write(data)
	if l.pending.Len() > maxLine && bytes.IndexByte(l.pending.Bytes(), '\n') < 0 {
		l.pending.Reset()
		l.discarding = true
	}
}

// take removes one complete line from pending.
func (l *lineReader) take() (string, bool) {
	data := l.pending.Bytes()
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(data[:i], "\r"))
	l.pending.Next(i + 1)
	return line, true
}
