package ipc

import "kiosk/internal/api"

// StartRequest asks the daemon to begin playback.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops playback and releases the lock.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse mirrors the HTTP status payload.
type StatusResponse = api.DaemonStatus

// PlayerRequest fetches the current player state.
type PlayerRequest struct{}

// PlayerResponse wraps the scheduler view of the mounted session.
type PlayerResponse struct {
	State api.PlayerState `json:"state"`
}

// ReloadRequest remounts the playlist.
type ReloadRequest struct{}

// ReloadResponse carries the new session id.
type ReloadResponse = api.ReloadResponse

// HistoryRequest fetches the play log.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse bundles the play log views.
type HistoryResponse = api.HistoryResponse

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
