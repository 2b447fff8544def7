// Package history persists a play log of kiosk sessions and slide
// activations in SQLite.
//
// One row is written per playback session (a playlist mount) and one per
// slide activation, updated once the renderer reports ready or failed. The
// CLI and the HTTP API read it back through Recent and Summary.
package history
