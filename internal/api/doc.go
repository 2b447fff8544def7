// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates scheduler snapshots, play-log rows and log events
// into transport-friendly DTOs that the display page, the CLI and other
// consumers can render without coupling to internal types.
//
// # Key Types
//
// PlayerState: presentation, phase, current slide and render status of the
// mounted session, plus the text the display shows when no slide is up.
//
// PlayerEvent/PlayerEventsResponse: the long-poll feed the display page
// follows to cross-fade between slides.
//
// DaemonStatus: aggregated runtime information including dependencies and
// host load.
//
// HistoryResponse: recent activations, sessions and per-source totals.
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Internal enums are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds and
// durations are whole milliseconds.
package api
