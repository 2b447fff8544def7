package logstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kiosk/internal/api"
	"kiosk/internal/ipc"
	"kiosk/internal/logs"
)

type fakeTail struct {
	requests []ipc.LogTailRequest
	lines    []string
}

func (f *fakeTail) LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
	f.requests = append(f.requests, req)
	return &ipc.LogTailResponse{Lines: f.lines, Offset: 42}, nil
}

func TestStreamFallsBackToIPC(t *testing.T) {
	tail := &fakeTail{lines: []string{"one", "two"}}
	var got []string
	printed, err := Stream(context.Background(), nil, tail, Options{Lines: 5}, nil, func(line string) {
		got = append(got, line)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || strings.Join(got, ",") != "one,two" {
		t.Fatalf("unexpected output printed=%v lines=%v", printed, got)
	}
	if len(tail.requests) != 1 || tail.requests[0].Offset != -1 || tail.requests[0].Limit != 5 {
		t.Fatalf("unexpected tail requests %+v", tail.requests)
	}
}

func TestStreamFiltersRequireAPI(t *testing.T) {
	tail := &fakeTail{}
	_, err := Stream(context.Background(), nil, tail, Options{Filters: Filters{SessionID: "abc"}}, nil, nil)
	if !errors.Is(err, ErrFiltersRequireAPI) {
		t.Fatalf("expected ErrFiltersRequireAPI, got %v", err)
	}
	if len(tail.requests) != 0 {
		t.Fatal("filters must not fall back to raw tailing")
	}
}

func TestStreamUsesAPIFilters(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []api.LogEvent{{Sequence: 3, Message: "slide activated"}},
			Next:   3,
		})
	}))
	defer srv.Close()

	client, err := logs.NewStreamClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	var events []api.LogEvent
	printed, err := Stream(context.Background(), client, nil, Options{
		Filters: Filters{Component: "player", Activation: 7, Level: "warn"},
	}, func(evt api.LogEvent) {
		events = append(events, evt)
	}, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || len(events) != 1 || events[0].Message != "slide activated" {
		t.Fatalf("unexpected events %+v", events)
	}
	for _, want := range []string{"component=player", "activation=7", "level=warn", "tail=1", "limit=200"} {
		if !strings.Contains(query, want) {
			t.Fatalf("query %q missing %q", query, want)
		}
	}
}
