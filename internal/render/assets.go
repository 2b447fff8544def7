package render

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// MediaPrefix is the URL path under which the daemon serves the media
// directory to the display page.
const MediaPrefix = "/media/"

// Location is a resolved slide asset: either a local file or a remote URL.
type Location struct {
	Path string
	URL  string
}

// Remote reports whether the asset must be fetched over HTTP.
func (l Location) Remote() bool {
	return l.URL != ""
}

func (l Location) String() string {
	if l.Remote() {
		return l.URL
	}
	return l.Path
}

// Assets resolves slide sources. Absolute http(s) sources are used as-is.
// When the playlist itself came from a URL, relative sources resolve against
// it; otherwise they resolve inside MediaDir.
type Assets struct {
	MediaDir string
	BaseURL  *url.URL
}

// NewAssets builds a resolver for a playlist loaded from playlistSource.
func NewAssets(mediaDir, playlistSource string) Assets {
	a := Assets{MediaDir: mediaDir}
	if u, ok := parseHTTP(playlistSource); ok {
		a.BaseURL = u
	}
	return a
}

// Resolve maps a slide source to a concrete location.
func (a Assets) Resolve(source string) Location {
	source = strings.TrimSpace(source)
	if u, ok := parseHTTP(source); ok {
		return Location{URL: u.String()}
	}
	if a.BaseURL != nil {
		if ref, err := url.Parse(source); err == nil {
			return Location{URL: a.BaseURL.ResolveReference(ref).String()}
		}
	}
	if filepath.IsAbs(source) || a.MediaDir == "" {
		return Location{Path: filepath.Clean(source)}
	}
	return Location{Path: filepath.Join(a.MediaDir, filepath.FromSlash(source))}
}

// PublicURL is the address the display page should load for source. Local
// files outside the media directory cannot be served and yield "".
func (a Assets) PublicURL(source string) string {
	loc := a.Resolve(source)
	if loc.Remote() {
		return loc.URL
	}
	if a.MediaDir == "" {
		return ""
	}
	rel, err := filepath.Rel(filepath.Clean(a.MediaDir), loc.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return MediaPrefix + path.Join(segments...)
}

func parseHTTP(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}
