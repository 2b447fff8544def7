// Package notifications pushes kiosk alerts to ntfy.
//
// Playlist load failures, empty playlists and slide render failures are the
// events worth waking someone up for. Repeats for the same source inside the
// configured dedup window are dropped so a broken asset on a looping playlist
// does not page every few seconds. When no topic is configured the package
// hands back a no-op service.
package notifications
