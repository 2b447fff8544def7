package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kiosk/internal/api"
	"kiosk/internal/ipc"
)

func newPlayerCommands(ctx *commandContext) []*cobra.Command {
	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload the playlist and restart playback from the first slide",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reload()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Playlist reloaded (session %s)\n", resp.SessionID)
				return nil
			})
		},
	}

	var nowJSON bool
	nowCmd := &cobra.Command{
		Use:   "now",
		Short: "Show what the screens are displaying",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Player()
				if err != nil {
					return err
				}
				if nowJSON {
					return writeJSON(cmd, resp.State)
				}
				printPlayerState(cmd.OutOrStdout(), resp.State)
				return nil
			})
		},
	}
	nowCmd.Flags().BoolVar(&nowJSON, "json", false, "Output player state as JSON")

	return []*cobra.Command{reloadCmd, nowCmd}
}

func printPlayerState(w io.Writer, state api.PlayerState) {
	fmt.Fprintf(w, "Presentation: %s\n", titleLabel(state.Presentation))
	if state.Message != "" {
		fmt.Fprintf(w, "Message:      %s\n", state.Message)
	}
	if state.Slide == nil {
		return
	}
	slide := state.Slide
	fmt.Fprintf(w, "Slide:        %d/%d %s (%s)\n", slide.Index+1, state.Total, slide.Source, titleLabel(slide.Kind))
	fmt.Fprintf(w, "Phase:        %s\n", titleLabel(state.Phase))
	render := titleLabel(state.Render)
	if state.RenderDetail != "" {
		render += " (" + state.RenderDetail + ")"
	}
	fmt.Fprintf(w, "Render:       %s\n", render)
	fmt.Fprintf(w, "Remaining:    %s\n", (time.Duration(state.RemainingMS) * time.Millisecond).Round(100*time.Millisecond))
	fmt.Fprintf(w, "Activation:   %d (advances %d)\n", state.Activation, state.Advances)
	fmt.Fprintf(w, "Session:      %s\n", state.SessionID)
}
