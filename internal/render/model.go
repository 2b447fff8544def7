package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"kiosk/internal/playlist"
	"kiosk/internal/services"
)

const (
	glbMagic       = "glTF"
	glbVersion     = 2
	maxGLTFJSON    = 32 << 20
	glbHeaderBytes = 12
)

// ModelRenderer prepares 3D model slides.
type ModelRenderer struct {
	Assets Assets
	Client *http.Client
	// Verify sniffs local files for a glTF JSON or GLB v2 header.
	Verify bool
}

func (m *ModelRenderer) Kind() playlist.Kind { return playlist.KindModel3D }

// Prepare checks the model exists. Local files are also sniffed when
// verification is enabled; remote models are only checked for existence.
func (m *ModelRenderer) Prepare(ctx context.Context, slide playlist.Slide) error {
	loc := m.Assets.Resolve(slide.Source)
	if err := checkLocation(ctx, m.Client, "model", loc); err != nil {
		return err
	}
	if !m.Verify || loc.Remote() {
		return nil
	}
	f, err := os.Open(loc.Path)
	if err != nil {
		return renderFailure(services.ErrTransient, "model", "open", loc.Path, err)
	}
	defer f.Close()
	if err := SniffModel(f); err != nil {
		return renderFailure(services.ErrValidation, "model", "sniff", loc.Path, err)
	}
	return nil
}

// SniffModel accepts a binary GLB v2 container or a glTF JSON document with
// an asset block.
func SniffModel(r io.Reader) error {
	head := make([]byte, glbHeaderBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return errors.New("empty model file")
		}
		return err
	}
	head = head[:n]
	if n >= 4 && string(head[:4]) == glbMagic {
		if n < glbHeaderBytes {
			return errors.New("truncated GLB header")
		}
		if v := binary.LittleEndian.Uint32(head[4:8]); v != glbVersion {
			return fmt.Errorf("unsupported GLB version %d", v)
		}
		return nil
	}

	var doc struct {
		Asset *struct {
			Version string `json:"version"`
		} `json:"asset"`
	}
	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(r, maxGLTFJSON))
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return fmt.Errorf("not a glTF document: %w", err)
	}
	if doc.Asset == nil || doc.Asset.Version == "" {
		return errors.New("glTF document has no asset version")
	}
	return nil
}
