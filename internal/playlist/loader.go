package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"kiosk/internal/services"
)

// maxDocumentBytes bounds how much of a playlist document is read.
const maxDocumentBytes = 4 << 20

// DefaultDocumentName is fetched when the playlist source is a directory URL.
const DefaultDocumentName = "config.json"

// Loader resolves the configuration resource into a Playlist.
type Loader interface {
	Load(ctx context.Context) (Playlist, error)
	Source() string
}

// Fetch runs a loader and packages its outcome.
func Fetch(ctx context.Context, loader Loader) Result {
	if loader == nil {
		return Result{Err: services.Wrap(services.ErrConfiguration, "playlist", "load", "no playlist source configured", nil)}
	}
	pl, err := loader.Load(ctx)
	return Result{Playlist: pl, Err: err}
}

// NewLoader picks a loader for source: http(s) URLs are fetched, anything else
// is read from disk. A URL ending in "/" resolves to config.json beneath it.
func NewLoader(source string, client *http.Client) (Loader, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, services.Wrap(services.ErrConfiguration, "playlist", "source", "playlist source is empty", nil)
	}
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if strings.HasSuffix(u.Path, "/") || u.Path == "" {
			u = u.JoinPath(DefaultDocumentName)
		}
		return &HTTPLoader{URL: u.String(), Client: client}, nil
	}
	return &FileLoader{Path: source}, nil
}

// FileLoader reads a playlist document from the local filesystem.
type FileLoader struct {
	Path string
}

// Source returns the document path.
func (l *FileLoader) Source() string {
	return l.Path
}

// Load reads and decodes the document.
func (l *FileLoader) Load(ctx context.Context) (Playlist, error) {
	if err := ctx.Err(); err != nil {
		return Playlist{}, err
	}
	file, err := os.Open(l.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Playlist{}, services.Wrap(services.ErrNotFound, "playlist", "open", l.Path, err)
		}
		return Playlist{}, services.Wrap(services.ErrConfiguration, "playlist", "open", l.Path, err)
	}
	defer file.Close()
	return Parse(io.LimitReader(file, maxDocumentBytes), l.Path)
}

// HTTPLoader fetches a playlist document over HTTP.
type HTTPLoader struct {
	URL    string
	Client *http.Client
}

// Source returns the document URL.
func (l *HTTPLoader) Source() string {
	return l.URL
}

// Load fetches and decodes the document.
func (l *HTTPLoader) Load(ctx context.Context) (Playlist, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return Playlist{}, services.Wrap(services.ErrConfiguration, "playlist", "request", l.URL, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return Playlist{}, services.Wrap(services.ErrTransient, "playlist", "fetch", l.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return Playlist{}, services.Wrap(marker, "playlist", "fetch", fmt.Sprintf("failed to load configuration file (%s)", resp.Status), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return Playlist{}, services.Wrap(services.ErrTransient, "playlist", "read", l.URL, err)
	}
	return Decode(data, responseFormat(resp, l.URL))
}

func responseFormat(resp *http.Response, rawURL string) Format {
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		if strings.Contains(mediaType, "yaml") {
			return FormatYAML
		}
		if strings.Contains(mediaType, "json") {
			return FormatJSON
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		return FormatFromName(u.Path)
	}
	return FormatJSON
}
