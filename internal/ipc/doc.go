// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the kiosk CLI.
//
// Wire types alias the api package where the HTTP API already defines the
// shape, so `kiosk status` and GET /api/status report the same fields.
package ipc
