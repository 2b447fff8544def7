// Package main hosts the kiosk CLI entrypoint and command graph.
//
// The Cobra command tree translates terminal invocations into IPC calls
// against the daemon (start, stop, reload, now, history, logs) and into
// local operations that work without it (playlist validation, config
// scaffolding, QR codes for the display URL). Configuration resolution and
// socket discovery live here so subcommands only deal with presentation.
//
// Keep this package lean: new behaviour belongs in the internal packages
// first and is surfaced here as a command or flag.
package main
