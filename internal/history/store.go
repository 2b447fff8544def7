package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout keeps stored timestamps fixed-width so text ordering matches
// chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Render statuses stored for each activation.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// ErrUnknownActivation is returned when a render outcome names an activation
// that was never recorded.
var ErrUnknownActivation = errors.New("unknown activation")

// Store manages the play log backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Session is one playlist mount.
type Session struct {
	ID         string
	Source     string
	SlideCount int
	StartedAt  time.Time
	EndedAt    time.Time
	Outcome    string
}

// Activation is one slide entering the steady phase.
type Activation struct {
	SessionID  string
	Activation uint64
	Index      int
	Kind       string
	Source     string
	Duration   time.Duration
	StartedAt  time.Time
}

// Record is an activation joined with its render outcome.
type Record struct {
	Activation
	RenderStatus string
	RenderDetail string
	RenderedAt   time.Time
}

// SourceSummary aggregates plays per slide source.
type SourceSummary struct {
	Source     string
	Kind       string
	Plays      int
	Failures   int
	LastPlayed time.Time
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas below are per-connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginSession records the start of a playback session.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}
	started := sess.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO sessions (id, source, slide_count, started_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Source, sess.SlideCount, formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// UpdateSession stores the slide count once the playlist resolves.
func (s *Store) UpdateSession(ctx context.Context, id string, slideCount int) error {
	if _, err := s.exec(ctx, `UPDATE sessions SET slide_count = ? WHERE id = ?`, slideCount, id); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// EndSession closes a session with the presentation it finished in.
func (s *Store) EndSession(ctx context.Context, id, outcome string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.exec(ctx,
		`UPDATE sessions SET ended_at = ?, outcome = ? WHERE id = ? AND ended_at IS NULL`,
		formatTime(at), outcome, id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// RecordActivation appends one slide activation.
func (s *Store) RecordActivation(ctx context.Context, a Activation) error {
	started := a.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO activations (session_id, activation, slide_index, kind, source, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.SessionID, int64(a.Activation), a.Index, a.Kind, a.Source, a.Duration.Milliseconds(), formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("record activation: %w", err)
	}
	return nil
}

// RecordRender stores the renderer outcome for an activation. Only the first
// outcome sticks.
func (s *Store) RecordRender(ctx context.Context, sessionID string, activation uint64, status, detail string, at time.Time) error {
	if status != StatusReady && status != StatusFailed {
		return fmt.Errorf("record render: invalid status %q", status)
	}
	if at.IsZero() {
		at = time.Now()
	}
	affected, err := s.exec(ctx,
		`UPDATE activations SET render_status = ?, render_detail = ?, rendered_at = ?
		 WHERE session_id = ? AND activation = ? AND render_status = ?`,
		status, detail, formatTime(at), sessionID, int64(activation), StatusPending,
	)
	if err != nil {
		return fmt.Errorf("record render: %w", err)
	}
	if affected == 0 {
		var exists int
		err := s.db.QueryRowContext(ensureContext(ctx),
			`SELECT COUNT(1) FROM activations WHERE session_id = ? AND activation = ?`,
			sessionID, int64(activation),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("record render: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: session %s activation %d", ErrUnknownActivation, sessionID, activation)
		}
	}
	return nil
}

// Recent returns the newest activations first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT session_id, activation, slide_index, kind, source, duration_ms, started_at,
		        render_status, render_detail, rendered_at
		 FROM activations ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Sessions returns the newest sessions first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, source, slide_count, started_at, ended_at, outcome
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess    Session
			started string
			ended   sql.NullString
			outcome sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Source, &sess.SlideCount, &started, &ended, &outcome); err != nil {
			return nil, err
		}
		sess.StartedAt = parseTime(started)
		sess.EndedAt = parseTime(ended.String)
		sess.Outcome = outcome.String
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Summary aggregates plays and render failures per source since the given
// time. A zero since covers the whole log.
func (s *Store) Summary(ctx context.Context, since time.Time) ([]SourceSummary, error) {
	cutoff := ""
	if !since.IsZero() {
		cutoff = formatTime(since)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT source, kind, COUNT(1),
		        SUM(CASE WHEN render_status = ? THEN 1 ELSE 0 END),
		        MAX(started_at)
		 FROM activations WHERE started_at >= ?
		 GROUP BY source, kind ORDER BY COUNT(1) DESC, source`,
		StatusFailed, cutoff)
	if err != nil {
		return nil, fmt.Errorf("history summary: %w", err)
	}
	defer rows.Close()

	var out []SourceSummary
	for rows.Next() {
		var (
			sum  SourceSummary
			last string
		)
		if err := rows.Scan(&sum.Source, &sum.Kind, &sum.Plays, &sum.Failures, &last); err != nil {
			return nil, err
		}
		sum.LastPlayed = parseTime(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Prune deletes sessions that started before cutoff along with their
// activations. It returns the number of sessions removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, nil
	}
	removed, err := s.exec(ctx,
		`DELETE FROM sessions WHERE started_at < ? AND ended_at IS NOT NULL`,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return removed, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec        Record
		activation int64
		durationMS int64
		started    string
		detail     sql.NullString
		rendered   sql.NullString
	)
	if err := scanner.Scan(
		&rec.SessionID,
		&activation,
		&rec.Index,
		&rec.Kind,
		&rec.Source,
		&durationMS,
		&started,
		&rec.RenderStatus,
		&detail,
		&rendered,
	); err != nil {
		return Record{}, err
	}
	rec.Activation.Activation = uint64(activation)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.StartedAt = parseTime(started)
	rec.RenderDetail = detail.String
	rec.RenderedAt = parseTime(rendered.String)
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
