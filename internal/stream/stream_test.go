package stream_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kiosk/internal/stream"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []stream.Entry[string]
}

func (r *recordingSink) Append(e stream.Entry[string]) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func TestHubPublishAssignsSequence(t *testing.T) {
	hub := stream.New[string](4)
	if seq := hub.Publish("a"); seq != 1 {
		t.Fatalf("expected seq 1, got %d", seq)
	}
	if seq := hub.Publish("b"); seq != 2 {
		t.Fatalf("expected seq 2, got %d", seq)
	}
	entries, next, err := hub.Fetch(context.Background(), 1, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 1 || entries[0].Value != "b" || next != 2 {
		t.Fatalf("unexpected fetch result %+v next=%d", entries, next)
	}
}

func TestHubDropsOldestBeyondCapacity(t *testing.T) {
	hub := stream.New[string](2)
	hub.Publish("a")
	hub.Publish("b")
	hub.Publish("c")

	if first := hub.FirstSequence(); first != 2 {
		t.Fatalf("expected first seq 2, got %d", first)
	}
	tail, next := hub.Tail(10)
	if len(tail) != 2 || tail[0].Value != "b" || tail[1].Value != "c" || next != 3 {
		t.Fatalf("unexpected tail %+v next=%d", tail, next)
	}
}

func TestHubFetchRespectsLimit(t *testing.T) {
	hub := stream.New[string](8)
	for _, v := range []string{"a", "b", "c", "d"} {
		hub.Publish(v)
	}
	entries, _, _ := hub.Fetch(context.Background(), 0, 2, false)
	if len(entries) != 2 || entries[1].Value != "b" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestHubFetchWaitsForPublish(t *testing.T) {
	hub := stream.New[string](8)
	done := make(chan []stream.Entry[string], 1)
	go func() {
		entries, _, _ := hub.Fetch(context.Background(), 0, 0, true)
		done <- entries
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish("late")

	select {
	case entries := <-done:
		if len(entries) != 1 || entries[0].Value != "late" {
			t.Fatalf("unexpected entries %+v", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake on publish")
	}
}

func TestHubFetchHonorsCancellation(t *testing.T) {
	hub := stream.New[string](8)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, 0, 0, true)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHubSinksReceiveEntries(t *testing.T) {
	hub := stream.New[string](1)
	sink := &recordingSink{}
	hub.AddSink(sink)
	hub.Publish("a")
	hub.Publish("b")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.entries) != 2 || sink.entries[1].Seq != 2 {
		t.Fatalf("unexpected sink entries %+v", sink.entries)
	}
}

func TestNilHubIsSafe(t *testing.T) {
	var hub *stream.Hub[string]
	if hub.Publish("x") != 0 {
		t.Fatal("nil hub should not assign sequences")
	}
	if entries, _ := hub.Tail(5); entries != nil {
		t.Fatal("nil hub should have no entries")
	}
}

func TestFetchCursorPagesWithoutGaps(t *testing.T) {
	hub := stream.New[int](8)
	for i := range 5 {
		hub.Publish(i)
	}
	first, next, err := hub.Fetch(context.Background(), 0, 2, false)
	if err != nil || len(first) != 2 || next != 2 {
		t.Fatalf("first page %+v next=%d err=%v", first, next, err)
	}
	second, next, err := hub.Fetch(context.Background(), next, 10, false)
	if err != nil || len(second) != 3 || second[0].Value != 2 || next != 5 {
		t.Fatalf("second page %+v next=%d err=%v", second, next, err)
	}
}
