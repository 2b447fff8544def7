package player

import (
	"sync"
	"time"
)

// EventKind enumerates scheduler notifications.
type EventKind int

const (
	EventPlaylistLoaded EventKind = iota + 1
	EventPlaylistEmpty
	EventPlaylistFailed
	EventSlideActivated
	EventFadeOut
	EventFadeIn
	EventRenderReady
	EventRenderFailed
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventPlaylistLoaded:
		return "playlist_loaded"
	case EventPlaylistEmpty:
		return "playlist_empty"
	case EventPlaylistFailed:
		return "playlist_failed"
	case EventSlideActivated:
		return "slide_activated"
	case EventFadeOut:
		return "fade_out"
	case EventFadeIn:
		return "fade_in"
	case EventRenderReady:
		return "render_ready"
	case EventRenderFailed:
		return "render_failed"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a state change together with the snapshot taken when it happened.
type Event struct {
	Kind     EventKind
	At       time.Time
	Snapshot Snapshot
}

// Observer receives scheduler events in the order they occurred. Observers
// run outside the scheduler lock and may call back into the scheduler.
type Observer func(Event)

// eventQueue delivers events in FIFO order. Whoever finds the queue idle
// drains it; concurrent or re-entrant pushers leave their events to the
// active drainer.
type eventQueue struct {
	mu        sync.Mutex
	pending   []Event
	observers []Observer
	draining  bool
}

func (q *eventQueue) subscribe(o Observer) {
	if o == nil {
		return
	}
	q.mu.Lock()
	q.observers = append(q.observers, o)
	q.mu.Unlock()
}

func (q *eventQueue) push(evt Event) {
	q.mu.Lock()
	q.pending = append(q.pending, evt)
	q.mu.Unlock()
}

func (q *eventQueue) flush() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	for len(q.pending) > 0 {
		evt := q.pending[0]
		q.pending[0] = Event{}
		q.pending = q.pending[1:]
		observers := q.observers
		q.mu.Unlock()
		for _, o := range observers {
			o(evt)
		}
		q.mu.Lock()
	}
	q.pending = nil
	q.draining = false
	q.mu.Unlock()
}
