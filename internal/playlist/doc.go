// Package playlist models the ordered slide list a kiosk session plays and
// loads it from the configuration resource.
//
// The wire format is a document with a single `files` array whose entries
// carry `file`, `rotation_time` (seconds) and `type` ("3d" or "video"). JSON
// is the primary encoding; YAML with the same keys is accepted for files named
// *.yaml or *.yml. Decoded playlists are immutable values.
package playlist
