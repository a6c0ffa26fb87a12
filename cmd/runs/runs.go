// Package runs implements the command that lists recent scrape runs in
// a formatted table.
package runs

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/madebyarthouse/rental-monitor-sub000/cmd/common"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
)

const defaultLimit = 20

// Command returns the runs command.
func Command() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scrape runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := common.NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := app.RunRepository().ListRecent(ctx, limit)
			if err != nil {
				return err
			}

			renderTable(runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultLimit, "number of runs to show")

	return cmd
}

// renderTable formats the runs for the terminal.
func renderTable(runs []*domain.ScrapeRun) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{
		"Started", "Type", "Status", "Duration", "Pages", "Discovered", "Updated", "Not Found", "Error",
	})

	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.DateTime),
			run.Type,
			run.Status,
			formatDuration(run.DurationMs),
			formatMetric(run.PagesVisited),
			formatMetric(run.ListingsDiscovered),
			formatMetric(run.ListingsUpdated),
			formatMetric(run.ListingsNotFound),
			formatError(run.ErrorMessage),
		})
	}

	t.Render()
}

func formatMetric(n *int) any {
	if n == nil {
		return ""
	}
	return *n
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return ""
	}
	return (time.Duration(*ms) * time.Millisecond).String()
}

func formatError(msg *string) string {
	if msg == nil {
		return ""
	}

	const maxLen = 60
	if len(*msg) > maxLen {
		return (*msg)[:maxLen] + "…"
	}
	return *msg
}
