package render

import (
	"context"
	"errors"
	"fmt"

	"kiosk/internal/playlist"
	"kiosk/internal/services"
)

// ErrSlideRenderFailed marks an asset that could not be prepared. The slide
// still occupies its slot, behind a placeholder.
var ErrSlideRenderFailed = errors.New("slide render failed")

// Renderer prepares one kind of slide.
type Renderer interface {
	Kind() playlist.Kind
	Prepare(ctx context.Context, slide playlist.Slide) error
}

// Reporter receives the per-activation outcome. The scheduler implements it.
type Reporter interface {
	ReportReady(activation uint64, detail string) bool
	ReportFailed(activation uint64, reason string) bool
}

func renderFailure(marker error, component, operation, message string, err error) error {
	return fmt.Errorf("%w: %w", ErrSlideRenderFailed, services.Wrap(marker, component, operation, message, err))
}
