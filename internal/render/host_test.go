package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kiosk/internal/playlist"
)

type report struct {
	activation uint64
	ready      bool
	detail     string
}

type recorder struct {
	mu      sync.Mutex
	reports []report
	got     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 16)}
}

func (r *recorder) ReportReady(activation uint64, detail string) bool {
	r.add(report{activation: activation, ready: true, detail: detail})
	return true
}

func (r *recorder) ReportFailed(activation uint64, reason string) bool {
	r.add(report{activation: activation, detail: reason})
	return true
}

func (r *recorder) add(rep report) {
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for report")
	}
}

func (r *recorder) snapshot() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

type stubRenderer struct {
	kind    playlist.Kind
	prepare func(ctx context.Context) error
}

func (s stubRenderer) Kind() playlist.Kind { return s.kind }

func (s stubRenderer) Prepare(ctx context.Context, _ playlist.Slide) error {
	return s.prepare(ctx)
}

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

var videoSlide = playlist.Slide{Source: "a.mp4", Duration: time.Second, Kind: playlist.KindVideo}

func TestHostReportsReadyOnSuccess(t *testing.T) {
	rec := newRecorder()
	host := NewHost([]Renderer{stubRenderer{kind: playlist.KindVideo, prepare: func(context.Context) error { return nil }}})
	defer host.Stop()

	host.Activate(context.Background(), 1, videoSlide, rec)
	rec.wait(t)
	got := rec.snapshot()
	if len(got) != 1 || !got[0].ready || got[0].activation != 1 || got[0].detail != DetailPrepared {
		t.Fatalf("unexpected reports %+v", got)
	}
}

func TestHostReportsFailure(t *testing.T) {
	rec := newRecorder()
	host := NewHost([]Renderer{stubRenderer{kind: playlist.KindVideo, prepare: func(context.Context) error {
		return renderFailure(nil, "video", "stat", "a.mp4", errors.New("boom"))
	}}})
	defer host.Stop()

	host.Activate(context.Background(), 7, videoSlide, rec)
	rec.wait(t)
	got := rec.snapshot()
	if len(got) != 1 || got[0].ready || got[0].activation != 7 {
		t.Fatalf("unexpected reports %+v", got)
	}
}

func TestHostMissingRendererFails(t *testing.T) {
	rec := newRecorder()
	host := NewHost(nil)
	defer host.Stop()

	host.Activate(context.Background(), 1, videoSlide, rec)
	rec.wait(t)
	if got := rec.snapshot(); got[0].ready {
		t.Fatalf("expected failure without a renderer, got %+v", got)
	}
}

func TestHostTimeoutTreatedAsReady(t *testing.T) {
	rec := newRecorder()
	host := NewHost([]Renderer{stubRenderer{kind: playlist.KindVideo, prepare: blockUntilDone}}, WithTimeout(20*time.Millisecond))
	defer host.Stop()

	host.Activate(context.Background(), 3, videoSlide, rec)
	rec.wait(t)
	got := rec.snapshot()
	if len(got) != 1 || !got[0].ready || got[0].detail != DetailTimeout {
		t.Fatalf("expected timeout ready report, got %+v", got)
	}
}

func TestHostSupersededActivationIsSilent(t *testing.T) {
	rec := newRecorder()
	var calls int
	var mu sync.Mutex
	host := NewHost([]Renderer{stubRenderer{kind: playlist.KindVideo, prepare: func(ctx context.Context) error {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			return blockUntilDone(ctx)
		}
		return nil
	}}})
	defer host.Stop()

	host.Activate(context.Background(), 1, videoSlide, rec)
	host.Activate(context.Background(), 2, videoSlide, rec)
	rec.wait(t)
	host.Stop()

	got := rec.snapshot()
	if len(got) != 1 || got[0].activation != 2 {
		t.Fatalf("only the latest activation should report, got %+v", got)
	}
}

func TestHostAwaitsDisplayUntilSettled(t *testing.T) {
	rec := newRecorder()
	host := NewHost(
		[]Renderer{stubRenderer{kind: playlist.KindVideo, prepare: func(context.Context) error { return nil }}},
		WithDisplayAcknowledgement(true),
		WithTimeout(time.Hour),
	)
	host.Activate(context.Background(), 4, videoSlide, rec)
	host.Settle(4)
	host.Stop()

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("settled activation must not be reported by the host, got %+v", got)
	}
}

func TestHostAwaitDisplayFallsBackToTimeout(t *testing.T) {
	rec := newRecorder()
	host := NewHost(
		[]Renderer{stubRenderer{kind: playlist.KindVideo, prepare: func(context.Context) error { return nil }}},
		WithDisplayAcknowledgement(true),
		WithTimeout(20*time.Millisecond),
	)
	defer host.Stop()

	host.Activate(context.Background(), 5, videoSlide, rec)
	rec.wait(t)
	if got := rec.snapshot(); !got[0].ready || got[0].detail != DetailTimeout {
		t.Fatalf("expected timeout fallback, got %+v", got)
	}
}

func TestHostStoppedIgnoresActivations(t *testing.T) {
	rec := newRecorder()
	host := NewHost([]Renderer{stubRenderer{kind: playlist.KindVideo, prepare: func(context.Context) error { return nil }}})
	host.Stop()
	host.Activate(context.Background(), 1, videoSlide, rec)
	time.Sleep(10 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("stopped host must not report, got %+v", got)
	}
}
