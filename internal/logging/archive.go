package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"kiosk/internal/stream"
)

// EventArchive persists log events as NDJSON so the log API can replay
// history after the in-memory hub rolls over.
type EventArchive struct {
	path string
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewEventArchive creates (or truncates) the journal at path. An empty path
// disables archiving and returns a nil archive.
func NewEventArchive(path string) (*EventArchive, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := ensureLogDir(trimmed); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", trimmed, err)
	}
	return &EventArchive{path: trimmed, file: file, enc: json.NewEncoder(file)}, nil
}

// Append writes one hub entry. Write failures are dropped; logging must not
// stall on the archive.
func (a *EventArchive) Append(entry stream.Entry[LogEvent]) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureWriter(); err != nil {
		return
	}
	_ = a.enc.Encode(stampEntry(entry))
}

// ReadSince returns archived events newer than since, at most limit of them
// (0 means unlimited), plus the highest sequence seen.
func (a *EventArchive) ReadSince(since uint64, limit int) ([]LogEvent, uint64, error) {
	if a == nil {
		return nil, since, nil
	}
	file, err := os.Open(a.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, since, nil
		}
		return nil, since, fmt.Errorf("open archive %s: %w", a.path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var result []LogEvent
	highest := since
	for {
		var evt LogEvent
		if err := decoder.Decode(&evt); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, highest, fmt.Errorf("decode archive %s: %w", a.path, err)
		}
		highest = max(highest, evt.Sequence)
		if evt.Sequence <= since {
			continue
		}
		result = append(result, evt)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, highest, nil
}

// Close releases the file handle.
func (a *EventArchive) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var err error
	if a.file != nil {
		err = a.file.Close()
	}
	a.file = nil
	a.enc = nil
	return err
}

// Path returns the on-disk location.
func (a *EventArchive) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

func (a *EventArchive) ensureWriter() error {
	if a.file != nil && a.enc != nil {
		return nil
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	a.file = file
	a.enc = json.NewEncoder(file)
	return nil
}
