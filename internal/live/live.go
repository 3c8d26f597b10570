// Package live carries state between the acquisition loop and display clients.
package live

import (
	"errors"
	"sync"

	"github.com/ayusman/ptrack/internal/tracker"
)

// DefaultQueueSize is the command backlog kept between ticks.
const DefaultQueueSize = 16

// ErrQueueFull is returned when a command cannot be queued without blocking.
var ErrQueueFull = errors.New("command queue full")

// Queue is a bounded, multi-producer command queue drained by the loop.
type Queue struct {
	ch chan string
}

// NewQueue creates a Queue holding at most size pending commands.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan string, size)}
}

// Push enqueues a command without blocking.
func (q *Queue) Push(command string) error {
	select {
	case q.ch <- command:
		return nil
	default:
		return ErrQueueFull
	}
}

// Drain removes and returns every pending command in arrival order.
func (q *Queue) Drain() []string {
	var out []string
	for {
		select {
		case c := <-q.ch:
			out = append(out, c)
		default:
			return out
		}
	}
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Hub holds the most recent snapshot and preview frame.
// One writer publishes, any number of readers poll.
type Hub struct {
	mu       sync.RWMutex
	snapshot tracker.Snapshot
	hasSnap  bool
	frame    []byte
	frameSeq uint64
	done     chan struct{}
	once     sync.Once
}

func NewHub() *Hub {
	return &Hub{done: make(chan struct{})}
}

// Publish replaces the latest snapshot.
func (h *Hub) Publish(s tracker.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = s
	h.hasSnap = true
}

// Latest returns the latest snapshot and whether one has been published.
func (h *Hub) Latest() (tracker.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot, h.hasSnap
}

// PublishFrame replaces the latest JPEG preview frame. The hub keeps jpeg;
// the caller must not modify it afterwards.
func (h *Hub) PublishFrame(jpeg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = jpeg
	h.frameSeq++
}

// Frame returns the latest preview frame and its sequence number.
// Sequence 0 means no frame has been published.
func (h *Hub) Frame() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame, h.frameSeq
}

// Close marks the session finished. Readers watching Done stop pushing.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// Done is closed when the session ends.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
