package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"kiosk/internal/api"
	"kiosk/internal/logs"
	"kiosk/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var filters logstream.Filters

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			apiClient, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return fmt.Errorf("log api client: %w", err)
			}

			client, dialErr := ctx.dialClient()
			var tail logstream.TailClient
			if dialErr == nil {
				defer client.Close()
				tail = client
			}

			out := cmd.OutOrStdout()
			printed, err := logstream.Stream(cmd.Context(), apiClient, tail,
				logstream.Options{Lines: lines, Follow: follow, Filters: filters},
				func(evt api.LogEvent) { fmt.Fprintln(out, formatLogEvent(evt)) },
				func(line string) { fmt.Fprintln(out, line) },
			)
			switch {
			case errors.Is(err, context.Canceled):
				return nil
			case errors.Is(err, logs.ErrAPIUnavailable) && dialErr != nil:
				return dialErr
			case err != nil:
				return err
			}
			if !printed && !follow {
				fmt.Fprintln(out, "No log entries")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new entries")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent entries to show first")
	cmd.Flags().StringVar(&filters.Component, "component", "", "Only entries from this component")
	cmd.Flags().StringVar(&filters.SessionID, "session", "", "Only entries for this playback session")
	cmd.Flags().Uint64Var(&filters.Activation, "activation", 0, "Only entries for this slide activation")
	cmd.Flags().StringVar(&filters.Level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&filters.Search, "search", "", "Only entries whose message contains this text")
	return cmd
}

func formatLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(evt.Level))
	if evt.Component != "" {
		b.WriteString(" [" + evt.Component + "]")
	}
	b.WriteString(" " + evt.Message)
	if evt.Activation > 0 {
		fmt.Fprintf(&b, " activation=%d", evt.Activation)
	}
	keys := make([]string, 0, len(evt.Fields))
	for key := range evt.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, evt.Fields[key])
	}
	return b.String()
}
