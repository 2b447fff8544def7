// Package stream provides a bounded, sequenced in-memory buffer with
// long-poll readers. The daemon uses it for both the log feed and the
// player event feed.
package stream

import (
	"context"
	"sync"
	"time"
)

// DefaultCapacity bounds a hub constructed with a non-positive capacity.
const DefaultCapacity = 512

// Entry is a published value and the sequence number it was assigned.
type Entry[T any] struct {
	Seq   uint64
	At    time.Time
	Value T
}

// Sink receives every published entry, typically for persistence.
type Sink[T any] interface {
	Append(Entry[T])
}

// Hub stores recent entries and wakes waiters when new entries arrive.
type Hub[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Entry[T]
	nextSeq  uint64
	sinks    []Sink[T]
	now      func() time.Time
}

// New constructs a hub that keeps the most recent capacity entries.
func New[T any](capacity int) *Hub[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	h := &Hub[T]{capacity: capacity, now: func() time.Time { return time.Now().UTC() }}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Capacity returns the retention bound.
func (h *Hub[T]) Capacity() int {
	if h == nil {
		return 0
	}
	return h.capacity
}

// AddSink wires an additional sink.
func (h *Hub[T]) AddSink(sink Sink[T]) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish appends value and returns its sequence number.
func (h *Hub[T]) Publish(value T) uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	h.nextSeq++
	entry := Entry[T]{Seq: h.nextSeq, At: h.now(), Value: value}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, entry)
	sinks := append([]Sink[T](nil), h.sinks...)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(entry)
	}
	return entry.Seq
}

// Fetch returns entries with sequence greater than since, at most limit of
// them. When wait is true it blocks until an entry is available or ctx ends.
// The returned cursor is the last sequence returned, or the latest sequence
// assigned when nothing was returned, so it can be passed back as since.
func (h *Hub[T]) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Entry[T], uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		entries, next := h.collectLocked(since, limit)
		if len(entries) > 0 || !wait {
			return entries, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
	}
}

// Tail returns the most recent limit entries without blocking.
func (h *Hub[T]) Tail(limit int) ([]Entry[T], uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return nil, h.nextSeq
	}
	start := max(len(h.buffer)-limit, 0)
	out := make([]Entry[T], len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

// FirstSequence reports the smallest sequence still buffered. Readers whose
// cursor is older than this have missed entries.
func (h *Hub[T]) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return h.nextSeq
	}
	return h.buffer[0].Seq
}

func (h *Hub[T]) collectLocked(since uint64, limit int) ([]Entry[T], uint64) {
	start := -1
	for i, entry := range h.buffer {
		if entry.Seq > since {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, h.nextSeq
	}
	end := min(start+limit, len(h.buffer))
	out := make([]Entry[T], end-start)
	copy(out, h.buffer[start:end])
	return out, out[len(out)-1].Seq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
