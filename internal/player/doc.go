// Package player implements the playback scheduler: the state machine that
// decides which slide is current, how long it stays, and how the fade between
// slides is sequenced.
//
// A Scheduler lives for exactly one player session. It receives the playlist
// load result once, then cycles steady → fadingOut → fadingIn → steady until
// it is closed. At most one timer is outstanding at any instant; every timer
// carries the generation it was armed under and is ignored unless that
// generation is still current, so a callback that races a cancel or a Close
// is a no-op.
//
// Renderers report per-activation readiness through ReportReady and
// ReportFailed. Those reports are recorded for the presentation layer but do
// not influence timing: a slide whose asset failed still occupies its full
// duration while a placeholder is shown.
package player
