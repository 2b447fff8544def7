package daemon

import (
	"strconv"
	"strings"

	"kiosk/internal/api"
)

// logFilter holds the optional /api/logs predicates. Zero values match all.
type logFilter struct {
	component  string
	sessionID  string
	activation uint64
	minLevel   int
	search     string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

func logFilterFromQuery(get func(string) string) logFilter {
	f := logFilter{
		component: strings.TrimSpace(get("component")),
		sessionID: strings.TrimSpace(get("session")),
		search:    strings.ToLower(strings.TrimSpace(get("search"))),
	}
	if raw := strings.TrimSpace(get("activation")); raw != "" {
		f.activation, _ = strconv.ParseUint(raw, 10, 64)
	}
	f.minLevel = levelRank[strings.ToLower(strings.TrimSpace(get("level")))]
	return f
}

func (f logFilter) matches(evt api.LogEvent) bool {
	if f.component != "" && !strings.EqualFold(f.component, evt.Component) {
		return false
	}
	if f.sessionID != "" && f.sessionID != evt.SessionID {
		return false
	}
	if f.activation != 0 && f.activation != evt.Activation {
		return false
	}
	if rank, ok := levelRank[strings.ToLower(evt.Level)]; ok && rank < f.minLevel {
		return false
	}
	if f.search != "" && !strings.Contains(strings.ToLower(evt.Message), f.search) {
		return false
	}
	return true
}

func (f logFilter) apply(events []api.LogEvent) []api.LogEvent {
	out := make([]api.LogEvent, 0, len(events))
	for _, evt := range events {
		if f.matches(evt) {
			out = append(out, evt)
		}
	}
	return out
}
