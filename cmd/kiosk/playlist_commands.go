package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kiosk/internal/config"
	"kiosk/internal/playlist"
	"kiosk/internal/render"
)

// probeConcurrency bounds concurrent asset checks during validation.
const probeConcurrency = 4

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	playlistCmd := &cobra.Command{
		Use:   "playlist",
		Short: "Inspect and validate the configured playlist",
	}
	playlistCmd.AddCommand(newPlaylistShowCommand(ctx))
	playlistCmd.AddCommand(newPlaylistValidateCommand(ctx))
	return playlistCmd
}

func newPlaylistShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [source]",
		Short: "Print the slides of a playlist document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := playlistSource(cfg, args)
			pl, err := loadPlaylist(cmd.Context(), cfg, source)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, playlist.DocumentFor(pl))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Playlist: %s\n", source)
			if pl.Empty() {
				fmt.Fprintln(out, "No slides")
				return nil
			}
			rows := make([][]string, 0, pl.Len())
			for i, slide := range pl.Slides() {
				rows = append(rows, []string{strconv.Itoa(i + 1), titleLabel(slide.Kind.Noun()), slide.Source, slide.Duration.String()})
			}
			fmt.Fprint(out, renderTable(
				[]string{"#", "Kind", "Source", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d slides, one loop takes %s\n", pl.Len(), pl.LoopDuration(cfg.FadeDuration()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the normalized playlist document as JSON")
	return cmd
}

func newPlaylistValidateCommand(ctx *commandContext) *cobra.Command {
	var skipAssets bool
	cmd := &cobra.Command{
		Use:   "validate [source]",
		Short: "Check the playlist document and every slide asset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := playlistSource(cfg, args)
			out := cmd.OutOrStdout()
			pl, err := loadPlaylist(cmd.Context(), cfg, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Playlist document valid (%d slides)\n", pl.Len())
			if skipAssets || pl.Empty() {
				return nil
			}

			failures := checkAssets(cmd.Context(), cfg, source, pl)
			colorize := shouldColorize(out)
			for i, slide := range pl.Slides() {
				label := fmt.Sprintf("#%d %s", i+1, titleLabel(slide.Kind.Noun()))
				if failure := failures[i]; failure != nil {
					fmt.Fprintln(out, renderStatusLine(label, statusError, fmt.Sprintf("%s: %v", slide.Source, failure), colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(label, statusOK, slide.Source, colorize))
			}
			if n := len(failures); n > 0 {
				return fmt.Errorf("%d of %d slides failed validation", n, pl.Len())
			}
			fmt.Fprintln(out, "All slide assets available")
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipAssets, "skip-assets", false, "Only validate the document, not the slide assets")
	return cmd
}

func playlistSource(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Player.Playlist
}

func loadPlaylist(ctx context.Context, cfg *config.Config, source string) (playlist.Playlist, error) {
	loader, err := playlist.NewLoader(source, &http.Client{Timeout: cfg.RenderTimeout()})
	if err != nil {
		return playlist.Playlist{}, err
	}
	result := playlist.Fetch(ctx, loader)
	if result.Err != nil {
		return playlist.Playlist{}, fmt.Errorf("load playlist %s: %w", loader.Source(), result.Err)
	}
	return result.Playlist, nil
}

// checkAssets runs the slide renderers over every slide and returns the
// failures keyed by slide index.
func checkAssets(ctx context.Context, cfg *config.Config, source string, pl playlist.Playlist) map[int]error {
	assets := render.NewAssets(cfg.Paths.MediaDir, source)
	client := &http.Client{Timeout: cfg.RenderTimeout()}
	renderers := map[playlist.Kind]render.Renderer{
		playlist.KindVideo:   &render.VideoRenderer{Assets: assets, Client: client, FFprobe: cfg.FFprobeBinary(), Probe: cfg.Render.ProbeVideos},
		playlist.KindModel3D: &render.ModelRenderer{Assets: assets, Client: client, Verify: cfg.Render.VerifyModels},
	}

	var mu sync.Mutex
	failures := make(map[int]error)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(probeConcurrency)
	for i, slide := range pl.Slides() {
		group.Go(func() error {
			renderer, ok := renderers[slide.Kind]
			var err error
			if !ok {
				err = errors.New("no renderer for slide kind")
			} else {
				checkCtx, cancel := context.WithTimeout(groupCtx, cfg.RenderTimeout())
				err = renderer.Prepare(checkCtx, slide)
				cancel()
			}
			if err != nil {
				mu.Lock()
				failures[i] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return failures
}
