// Package logging builds the slog loggers used across kiosk.
//
// New assembles a console or JSON handler, optionally tees records into an
// in-memory StreamHub for the /api/logs feed, and tags every record with a
// diagnostic session id when one is configured. The package also owns the
// standard field keys, the WarnWithContext/ErrorWithContext helpers that keep
// warnings actionable, the NDJSON event archive, and run-log retention.
package logging
