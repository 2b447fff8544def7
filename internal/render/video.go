package render

import (
	"context"
	"net/http"

	"kiosk/internal/media/ffprobe"
	"kiosk/internal/playlist"
	"kiosk/internal/services"
)

// VideoRenderer prepares video slides.
type VideoRenderer struct {
	Assets Assets
	Client *http.Client
	// FFprobe is the binary used when Probe is set.
	FFprobe string
	Probe   bool
}

func (v *VideoRenderer) Kind() playlist.Kind { return playlist.KindVideo }

// Prepare checks the asset exists and, when probing is enabled, that it
// contains at least one video stream.
func (v *VideoRenderer) Prepare(ctx context.Context, slide playlist.Slide) error {
	loc := v.Assets.Resolve(slide.Source)
	if err := checkLocation(ctx, v.Client, "video", loc); err != nil {
		return err
	}
	if !v.Probe {
		return nil
	}
	result, err := ffprobe.Inspect(ctx, v.FFprobe, loc.String())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return renderFailure(services.ErrExternalTool, "video", "ffprobe", loc.String(), err)
	}
	if result.VideoStreamCount() == 0 {
		return renderFailure(services.ErrValidation, "video", "ffprobe", "no video stream in "+loc.String(), nil)
	}
	return nil
}
