// Package daemon runs the long-lived kiosk process.
//
// It holds the flock guard that keeps one instance per log directory, mounts
// the playback session, serves the display page and JSON API, watches udev
// for removable media, and prunes the play log on a timer. Playback logic
// lives in session, player, and render; this package only wires lifecycles
// together and exposes them over HTTP.
package daemon
