package playlist_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"kiosk/internal/playlist"
	"kiosk/internal/services"
)

func TestDecodeJSONDocument(t *testing.T) {
	data := []byte(`{"files":[{"file":"a.glb","rotation_time":5,"type":"3d"},{"file":"b.mp4","rotation_time":2.5,"type":"video"}]}`)
	pl, err := playlist.Decode(data, playlist.FormatJSON)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if pl.Len() != 2 {
		t.Fatalf("expected 2 slides, got %d", pl.Len())
	}
	first := pl.At(0)
	if first.Source != "a.glb" || first.Duration != 5*time.Second || first.Kind != playlist.KindModel3D {
		t.Fatalf("unexpected first slide: %+v", first)
	}
	second := pl.At(1)
	if second.Source != "b.mp4" || second.Duration != 2500*time.Millisecond || second.Kind != playlist.KindVideo {
		t.Fatalf("unexpected second slide: %+v", second)
	}
}

func TestDecodeYAMLDocument(t *testing.T) {
	data := []byte("files:\n  - file: lobby.mp4\n    rotation_time: 12\n    type: video\n")
	pl, err := playlist.Decode(data, playlist.FormatYAML)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if pl.Len() != 1 || pl.At(0).Kind != playlist.KindVideo || pl.At(0).Duration != 12*time.Second {
		t.Fatalf("unexpected playlist: %+v", pl.Slides())
	}
}

func TestDecodeEmptyFilesIsValid(t *testing.T) {
	pl, err := playlist.Decode([]byte(`{"files":[]}`), playlist.FormatJSON)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !pl.Empty() {
		t.Fatalf("expected empty playlist, got %d slides", pl.Len())
	}
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		contains string
	}{
		{name: "missing files", data: `{}`, contains: "no files array"},
		{name: "empty file", data: `{"files":[{"file":" ","rotation_time":1,"type":"3d"}]}`, contains: "files[0].file"},
		{name: "zero rotation", data: `{"files":[{"file":"a","rotation_time":0,"type":"3d"}]}`, contains: "files[0].rotation_time"},
		{name: "negative rotation", data: `{"files":[{"file":"a","rotation_time":1,"type":"video"},{"file":"b","rotation_time":-2,"type":"video"}]}`, contains: "files[1].rotation_time"},
		{name: "unknown type", data: `{"files":[{"file":"a","rotation_time":1,"type":"image"}]}`, contains: "files[0].type"},
		{name: "rotation overflows duration", data: `{"files":[{"file":"a","rotation_time":1e12,"type":"3d"},{"file":"b","rotation_time":3,"type":"video"}]}`, contains: "files[0].rotation_time"},
		{name: "rotation below a nanosecond", data: `{"files":[{"file":"a","rotation_time":3,"type":"3d"},{"file":"b","rotation_time":1e-12,"type":"video"}]}`, contains: "files[1].rotation_time"},
		{name: "malformed", data: `{"files":`, contains: "invalid json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := playlist.Decode([]byte(tc.data), playlist.FormatJSON)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("expected %q in %q", tc.contains, err.Error())
			}
		})
	}
}

func TestEntryErrorDetails(t *testing.T) {
	_, err := playlist.Decode([]byte(`{"files":[{"file":"a","rotation_time":1,"type":"gif"}]}`), playlist.FormatJSON)
	var entryErr *playlist.EntryError
	if !errors.As(err, &entryErr) {
		t.Fatalf("expected EntryError, got %T", err)
	}
	if entryErr.Index != 0 || entryErr.Field != "type" {
		t.Fatalf("unexpected entry error: %+v", entryErr)
	}
}

func TestDecodeAcceptsLongRotation(t *testing.T) {
	pl, err := playlist.Decode([]byte(`{"files":[{"file":"a.glb","rotation_time":1e9,"type":"3d"}]}`), playlist.FormatJSON)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got, want := pl.At(0).Duration, 1e9*time.Second; got != want {
		t.Fatalf("duration = %s, want %s", got, want)
	}
}

func TestEncodeRoundTripsBetweenFormats(t *testing.T) {
	pl := playlist.New(
		playlist.Slide{Source: "a.glb", Duration: 5 * time.Second, Kind: playlist.KindModel3D},
		playlist.Slide{Source: "b.mp4", Duration: 3 * time.Second, Kind: playlist.KindVideo},
	)
	data, err := playlist.Encode(pl, playlist.FormatYAML)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(string(data), "rotation_time: 5") {
		t.Fatalf("unexpected yaml output:\n%s", data)
	}
	back, err := playlist.Decode(data, playlist.FormatYAML)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if back.Len() != 2 || back.At(1) != pl.At(1) {
		t.Fatalf("unexpected decoded playlist: %+v", back.Slides())
	}
}

func TestFormatFromName(t *testing.T) {
	cases := map[string]playlist.Format{
		"playlist.yaml":                    playlist.FormatYAML,
		"/etc/kiosk/playlist.YML":          playlist.FormatYAML,
		"config.json":                      playlist.FormatJSON,
		"https://host/show.yaml?rev=3":     playlist.FormatYAML,
		"https://host/config.json#section": playlist.FormatJSON,
		"noext":                            playlist.FormatJSON,
	}
	for name, want := range cases {
		if got := playlist.FormatFromName(name); got != want {
			t.Fatalf("FormatFromName(%q) = %q, want %q", name, got, want)
		}
	}
}
