package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/ingest"
)

var ingestHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past ingestion runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, err := summaryFormat(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs := ingest.NewRunLog(st)
		if err := runs.Migrate(ctx); err != nil {
			return err
		}
		entries, err := runs.List(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "ingest history")
		}

		if len(entries) == 0 {
			zap.L().Info("no ingestion runs found, run 'securecheck ingest' first")
			return nil
		}
		return writeSummary(os.Stdout, format, entries, formatRunEntries)
	},
}

func init() {
	ingestHistoryCmd.Flags().Int("limit", 20, "max number of runs to display (0 for all)")
	ingestHistoryCmd.Flags().String("format", "table", "output format: table, json or yaml")

	ingestCmd.AddCommand(ingestHistoryCmd)
}

// formatRunEntries writes a tabular list of ingestion runs to w.
func formatRunEntries(out io.Writer, entries []ingest.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tSTARTED\tDURATION\tREAD\tLOADED\tDROPPED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t--------\t----\t------\t-------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			truncateID(e.ID),
			truncate(e.Source, 40),
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsRead,
			e.RowsLoaded,
			e.RowsDropped,
			truncate(e.Error, 60),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
