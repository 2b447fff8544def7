package api

import "time"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// LoadingMessage is shown while the playlist loads or when it has no slides.
const LoadingMessage = "Loading..."

// Slide describes the active slide in a transport-friendly format.
type Slide struct {
	Index      int    `json:"index"`
	Kind       string `json:"kind"`
	Source     string `json:"source"`
	URL        string `json:"url,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// PlayerState mirrors the scheduler snapshot of the mounted session.
type PlayerState struct {
	SessionID    string `json:"sessionId,omitempty"`
	Source       string `json:"source,omitempty"`
	Presentation string `json:"presentation"`
	Phase        string `json:"phase"`
	Treatment    string `json:"treatment"`
	Total        int    `json:"total"`
	Slide        *Slide `json:"slide,omitempty"`
	Activation   uint64 `json:"activation"`
	ActivatedAt  string `json:"activatedAt,omitempty"`
	Render       string `json:"render"`
	RenderDetail string `json:"renderDetail,omitempty"`
	Placeholder  bool   `json:"placeholder"`
	Message      string `json:"message,omitempty"`
	RemainingMS  int64  `json:"remainingMs"`
	FadeMS       int64  `json:"fadeMs"`
	Advances     uint64 `json:"advances"`
	Closed       bool   `json:"closed"`
}

// PlayerEvent is one entry of the player feed.
type PlayerEvent struct {
	Sequence  uint64      `json:"seq"`
	Kind      string      `json:"kind"`
	Timestamp string      `json:"ts"`
	State     PlayerState `json:"state"`
}

// PlayerEventsResponse wraps a page of player events.
type PlayerEventsResponse struct {
	Events []PlayerEvent `json:"events"`
	Next   uint64        `json:"next"`
}

// RenderReport is posted by the display page once it has the active slide on
// screen or has given up on it.
type RenderReport struct {
	Activation uint64 `json:"activation"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
}

// RenderReportResponse tells the display whether its report was applied.
type RenderReportResponse struct {
	Accepted bool `json:"accepted"`
}

// ReloadResponse carries the id of the freshly mounted session.
type ReloadResponse struct {
	SessionID string `json:"sessionId"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is one labelled row of `kiosk status` output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// HostStats reports load on the kiosk machine.
type HostStats struct {
	Hostname      string  `json:"hostname,omitempty"`
	UptimeSeconds uint64  `json:"uptimeSeconds"`
	Load1         float64 `json:"load1"`
	MemoryUsedPct float64 `json:"memoryUsedPercent"`
	CPUPercent    float64 `json:"cpuPercent"`
	Detail        string  `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	HistoryDBPath string             `json:"historyDbPath,omitempty"`
	LockFilePath  string             `json:"lockFilePath"`
	LogPath       string             `json:"logPath,omitempty"`
	DisplayURL    string             `json:"displayUrl,omitempty"`
	Player        PlayerState        `json:"player"`
	Host          *HostStats         `json:"host,omitempty"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// HistoryRecord is one slide activation from the play log.
type HistoryRecord struct {
	SessionID    string `json:"sessionId"`
	Activation   uint64 `json:"activation"`
	Index        int    `json:"index"`
	Kind         string `json:"kind"`
	Source       string `json:"source"`
	DurationMS   int64  `json:"durationMs"`
	StartedAt    string `json:"startedAt"`
	RenderStatus string `json:"renderStatus"`
	RenderDetail string `json:"renderDetail,omitempty"`
	RenderedAt   string `json:"renderedAt,omitempty"`
}

// HistorySession is one playlist mount from the play log.
type HistorySession struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	SlideCount int    `json:"slideCount"`
	StartedAt  string `json:"startedAt"`
	EndedAt    string `json:"endedAt,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
}

// HistorySummary aggregates plays per source.
type HistorySummary struct {
	Source     string `json:"source"`
	Kind       string `json:"kind"`
	Plays      int    `json:"plays"`
	Failures   int    `json:"failures"`
	LastPlayed string `json:"lastPlayed,omitempty"`
}

// HistoryResponse bundles the play log views.
type HistoryResponse struct {
	Enabled  bool             `json:"enabled"`
	Records  []HistoryRecord  `json:"records"`
	Sessions []HistorySession `json:"sessions,omitempty"`
	Summary  []HistorySummary `json:"summary,omitempty"`
}

// LogEvent is a structured log line for live tailing.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	Activation    uint64            `json:"activation,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse wraps a page of log events.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}
