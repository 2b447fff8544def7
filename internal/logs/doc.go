// Package logs reads daemon logs for the CLI.
//
// Tail follows the plain-text log file by byte offset and backs the IPC
// LogTail call. StreamClient pages structured events from the HTTP API so
// `kiosk logs` can filter by component, session, or activation.
package logs
