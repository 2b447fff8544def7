package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"kiosk/internal/stream"
)

// LogEvent is a structured log line published to the stream hub.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	SessionID     string            `json:"session_id,omitempty"`
	Activation    uint64            `json:"activation,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// StreamHub buffers recent log events for the log API.
type StreamHub = stream.Hub[LogEvent]

// NewStreamHub constructs a bounded log buffer.
func NewStreamHub(capacity int) *StreamHub {
	return stream.New[LogEvent](capacity)
}

// EventsFromEntries stamps hub sequence numbers onto the events.
func EventsFromEntries(entries []stream.Entry[LogEvent]) []LogEvent {
	if len(entries) == 0 {
		return nil
	}
	out := make([]LogEvent, len(entries))
	for i, entry := range entries {
		out[i] = stampEntry(entry)
	}
	return out
}

func stampEntry(entry stream.Entry[LogEvent]) LogEvent {
	evt := entry.Value
	evt.Sequence = entry.Seq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = entry.At
	}
	return evt
}

type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(eventFromRecord(record, h.attrs))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &streamHandler{next: h.next.WithAttrs(attrs), hub: h.hub, attrs: merged}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs}
}

func eventFromRecord(record slog.Record, preAttrs []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	var kvs []kv
	flattenAttrs(&kvs, nil, preAttrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, nil, attr)
		return true
	})
	for _, item := range dedupeKVsByKey(kvs) {
		switch item.key {
		case FieldComponent:
			event.Component = attrString(item.value)
		case FieldSessionID:
			event.SessionID = attrString(item.value)
		case FieldCorrelationID:
			event.CorrelationID = attrString(item.value)
		case FieldActivation:
			if item.value.Kind() == slog.KindUint64 {
				event.Activation = item.value.Uint64()
			} else if item.value.Kind() == slog.KindInt64 && item.value.Int64() > 0 {
				event.Activation = uint64(item.value.Int64())
			}
		default:
			if event.Fields == nil {
				event.Fields = make(map[string]string)
			}
			event.Fields[item.key] = attrString(item.value)
		}
	}
	return event
}
