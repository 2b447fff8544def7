package playlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kiosk/internal/services"
)

// Format identifies a playlist document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromName picks the encoding implied by a file name or URL path.
func FormatFromName(name string) Format {
	name = strings.TrimSpace(name)
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		name = name[:idx]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the on-disk playlist representation.
type Document struct {
	Files []Entry `json:"files" yaml:"files"`
}

// Entry is a single slide in its wire form.
type Entry struct {
	File         string  `json:"file" yaml:"file"`
	RotationTime float64 `json:"rotation_time" yaml:"rotation_time"`
	Type         string  `json:"type" yaml:"type"`
}

// maxRotationSeconds bounds rotation_time so the slide duration fits a
// time.Duration.
const maxRotationSeconds = float64(math.MaxInt64) / float64(time.Second)

// EntryError reports an invalid playlist entry.
type EntryError struct {
	Index  int
	Field  string
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("files[%d].%s: %s", e.Index, e.Field, e.Reason)
}

func (e *EntryError) Unwrap() error {
	return services.ErrValidation
}

// ErrMissingFiles indicates a document without a files array.
var ErrMissingFiles = errors.New("playlist document has no files array")

// Decode parses a playlist document.
func Decode(data []byte, format Format) (Playlist, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Playlist{}, services.Wrap(services.ErrValidation, "playlist", "decode", "invalid yaml", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(bytes.TrimSpace(data), &doc); err != nil {
			return Playlist{}, services.Wrap(services.ErrValidation, "playlist", "decode", "invalid json", err)
		}
	default:
		return Playlist{}, fmt.Errorf("playlist decode: unsupported format %q", format)
	}
	return doc.Playlist()
}

// Parse reads and decodes a playlist document, inferring the encoding from name.
func Parse(r io.Reader, name string) (Playlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Playlist{}, fmt.Errorf("read playlist: %w", err)
	}
	return Decode(data, FormatFromName(name))
}

// Playlist validates the document and converts it into a Playlist.
func (d Document) Playlist() (Playlist, error) {
	if d.Files == nil {
		return Playlist{}, fmt.Errorf("%w: %w", services.ErrValidation, ErrMissingFiles)
	}
	slides := make([]Slide, 0, len(d.Files))
	for i, entry := range d.Files {
		slide, err := entry.slide(i)
		if err != nil {
			return Playlist{}, err
		}
		slides = append(slides, slide)
	}
	return New(slides...), nil
}

func (e Entry) slide(index int) (Slide, error) {
	source := strings.TrimSpace(e.File)
	if source == "" {
		return Slide{}, &EntryError{Index: index, Field: "file", Reason: "must not be empty"}
	}
	if math.IsNaN(e.RotationTime) || math.IsInf(e.RotationTime, 0) || e.RotationTime <= 0 {
		return Slide{}, &EntryError{Index: index, Field: "rotation_time", Reason: fmt.Sprintf("must be a positive number of seconds, got %v", e.RotationTime)}
	}
	if e.RotationTime >= maxRotationSeconds {
		return Slide{}, &EntryError{Index: index, Field: "rotation_time", Reason: fmt.Sprintf("must be below %.0f seconds, got %v", maxRotationSeconds, e.RotationTime)}
	}
	kind, ok := ParseKind(e.Type)
	if !ok {
		return Slide{}, &EntryError{Index: index, Field: "type", Reason: fmt.Sprintf("must be \"3d\" or \"video\", got %q", e.Type)}
	}
	slide := Slide{
		Source:   source,
		Duration: time.Duration(e.RotationTime * float64(time.Second)),
		Kind:     kind,
	}
	if err := slide.Validate(); err != nil {
		return Slide{}, &EntryError{Index: index, Field: "rotation_time", Reason: err.Error()}
	}
	return slide, nil
}

// DocumentFor converts a playlist back into its wire form.
func DocumentFor(p Playlist) Document {
	doc := Document{Files: make([]Entry, 0, p.Len())}
	for _, slide := range p.slides {
		doc.Files = append(doc.Files, Entry{
			File:         slide.Source,
			RotationTime: slide.Duration.Seconds(),
			Type:         slide.Kind.String(),
		})
	}
	return doc
}

// Encode renders a playlist document in the requested format.
func Encode(p Playlist, format Format) ([]byte, error) {
	doc := DocumentFor(p)
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatJSON, "":
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("playlist encode: unsupported format %q", format)
	}
}
