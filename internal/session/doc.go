// Package session owns the mounted playback session of the daemon.
//
// A session is one playlist load plus the scheduler that rotates it and the
// render host that prepares each slide. Reload tears the whole thing down and
// mounts a fresh one with a new id, which is how the daemon picks up playlist
// edits. Scheduler events fan out to the play log, ntfy alerts and the
// long-poll feed the display page follows.
package session
