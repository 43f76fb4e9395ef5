package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
	"github.com/securecheck/securecheck-cli/internal/export"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show key totals, the most recent stops and highlight reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("reports"); err != nil {
			return err
		}
		format, err := summaryFormat(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cat, err := initCatalogue(st)
		if err != nil {
			return err
		}
		ov, err := cat.Overview(ctx)
		if err != nil {
			return err
		}
		return writeSummary(os.Stdout, format, ov, formatOverview)
	},
}

func init() {
	overviewCmd.Flags().String("format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(overviewCmd)
}

// formatOverview writes the totals followed by the recent stops and the
// highlight tables.
func formatOverview(out io.Writer, ov *catalogue.OverviewResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total stops:\t%d\n", ov.KeyStats.TotalStops)
	_, _ = fmt.Fprintf(w, "Total arrests:\t%d\n", ov.KeyStats.TotalArrests)
	_, _ = fmt.Fprintf(w, "Total searches:\t%d\n", ov.KeyStats.TotalSearches)
	_ = w.Flush()

	sections := append([]*catalogue.Result{ov.RecentStops}, ov.Highlights...)
	for i, res := range sections {
		if res == nil {
			continue
		}
		title := res.Report
		if i == 0 {
			title = "Recent stops"
		}
		_, _ = fmt.Fprintf(out, "\n== %s ==\n", title)
		_ = export.WriteTable(out, res.ColumnNames(), export.Cells(res.Rows))
	}
}
