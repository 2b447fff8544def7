package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"kiosk/internal/api"
	"kiosk/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently played slides and per-source totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if !resp.Enabled {
					fmt.Fprintln(out, "Play log is disabled (history.enabled = false)")
					return nil
				}
				if len(resp.Records) == 0 {
					fmt.Fprintln(out, "No slides played yet")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"Started", "#", "Kind", "Source", "Duration", "Render"},
					historyRows(resp.Records),
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				if len(resp.Summary) > 0 {
					fmt.Fprintln(out)
					fmt.Fprint(out, renderTable(
						[]string{"Source", "Plays", "Failures"},
						summaryRows(resp.Summary),
						[]columnAlignment{alignLeft, alignRight, alignRight},
					))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of activations to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output history as JSON")
	return cmd
}

func historyRows(records []api.HistoryRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		started := rec.StartedAt
		if ts, ok := api.ParseTime(rec.StartedAt); ok {
			started = ts.Local().Format("2006-01-02 15:04:05")
		}
		render := titleLabel(rec.RenderStatus)
		if rec.RenderDetail != "" {
			render += ": " + rec.RenderDetail
		}
		rows = append(rows, []string{
			started,
			strconv.Itoa(rec.Index + 1),
			titleLabel(rec.Kind),
			rec.Source,
			(time.Duration(rec.DurationMS) * time.Millisecond).String(),
			render,
		})
	}
	return rows
}

func summaryRows(summary []api.HistorySummary) [][]string {
	rows := make([][]string, 0, len(summary))
	for _, row := range summary {
		rows = append(rows, []string{row.Source, strconv.Itoa(row.Plays), strconv.Itoa(row.Failures)})
	}
	return rows
}
