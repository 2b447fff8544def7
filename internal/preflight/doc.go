// Package preflight provides readiness checks for the filesystem paths,
// playlist source and external binaries the kiosk depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs any failures; a broken
//     playlist source still mounts a session so the display shows the error.
//   - The CLI "kiosk status" and "kiosk playlist validate" commands use the
//     individual checks to display health.
package preflight
