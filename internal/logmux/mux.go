package logmux

import (
	"fmt"
	"sync"
	"time"

	"github.com/Paintersrp/procsup/internal/metrics"
	"github.com/Paintersrp/procsup/internal/supervisor"
)

// Mux delivers supervisor events via a bounded channel without ever blocking
// the publisher. When the consumer cannot keep up and the output buffer would
// overflow, the mux drops events and later emits a synthesized warning event
// per process to surface the number of discarded entries.
type Mux struct {
	out chan supervisor.Event

	mu     sync.Mutex
	closed bool
	drops  map[supervisor.ID]int
}

// New constructs a mux backed by a channel of the provided size. A size of
// zero results in a minimally buffered channel.
func New(size int) *Mux {
	if size <= 0 {
		size = 1
	}
	return &Mux{
		out:   make(chan supervisor.Event, size),
		drops: make(map[supervisor.ID]int),
	}
}

// Output exposes the event channel. It is closed by Close.
func (m *Mux) Output() <-chan supervisor.Event {
	return m.out
}

// Publish implements supervisor.EventSink. Events published after Close are
// discarded.
func (m *Mux) Publish(evt supervisor.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	evt = normalize(evt)
	if !m.flushPendingLocked(evt.Process) {
		m.recordDropLocked(evt.Process, 1)
		return
	}
	if m.trySendLocked(evt) {
		return
	}
	m.recordDropLocked(evt.Process, 1)
}

// Close emits any pending drop summaries and closes the output channel. The
// consumer must keep draining Output until it is closed.
func (m *Mux) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	pending := m.drops
	m.drops = make(map[supervisor.ID]int)
	m.mu.Unlock()

	for id, count := range pending {
		m.out <- synthesizeDropEvent(id, count)
	}

	m.mu.Lock()
	close(m.out)
	m.mu.Unlock()
}

func (m *Mux) flushPendingLocked(id supervisor.ID) bool {
	count := m.drops[id]
	if count == 0 {
		return true
	}
	if !m.trySendLocked(synthesizeDropEvent(id, count)) {
		return false
	}
	delete(m.drops, id)
	return true
}

func (m *Mux) recordDropLocked(id supervisor.ID, count int) {
	if count <= 0 {
		return
	}
	m.drops[id] += count
	metrics.AddEventsDropped(count)
}

func (m *Mux) trySendLocked(evt supervisor.Event) bool {
	select {
	case m.out <- evt:
		return true
	default:
		return false
	}
}

func normalize(evt supervisor.Event) supervisor.Event {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.Level == "" {
		if evt.Err != nil {
			evt.Level = "error"
		} else {
			evt.Level = "info"
		}
	}
	return evt
}

func synthesizeDropEvent(id supervisor.ID, count int) supervisor.Event {
	return supervisor.Event{
		Timestamp: time.Now(),
		Process:   id,
		Type:      supervisor.EventTypeDropped,
		Message:   fmt.Sprintf("dropped=%d", count),
		Level:     "warn",
	}
}
