package sensor

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"
)

// Scripted replays fixed lines, one per interval, then reports io.EOF.
type Scripted struct {
	mu       sync.Mutex
	lines    []string
	interval time.Duration
}

func NewScripted(lines []string, interval time.Duration) *Scripted {
	return &Scripted{lines: lines, interval: interval}
}

func (s *Scripted) ReadLine(ctx context.Context) (string, error) {
	if s.interval > 0 {
		t := time.NewTimer(s.interval)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *Scripted) Close() error { return nil }

// Kind selects the line format a Dummy source produces.
type Kind int

const (
	KindGrip Kind = iota
	KindPinch
)

// Dummy produces plausible random readings for running without hardware.
type Dummy struct {
	kind     Kind
	interval time.Duration
	mu       sync.Mutex
	rng      *rand.Rand
}

// NewDummy returns a Dummy source. A seed of 0 picks a random one.
func NewDummy(kind Kind, interval time.Duration, seed uint64) *Dummy {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Dummy{
		kind:     kind,
		interval: interval,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (d *Dummy) ReadLine(ctx context.Context) (string, error) {
	t := time.NewTimer(d.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.kind == KindPinch {
		return fmt.Sprintf("index:%.2f,middle:%.2f", 1+d.rng.Float64()*4, 1+d.rng.Float64()*3), nil
	}
	return fmt.Sprintf("SensorValue:%d", 200+d.rng.IntN(600)), nil
}

func (d *Dummy) Close() error { return nil }
