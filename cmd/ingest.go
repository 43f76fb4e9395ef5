package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/securecheck/securecheck-cli/internal/export"
	"github.com/securecheck/securecheck-cli/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a traffic-stop extract into the stops table",
	Long: "Reads a CSV, TSV, XLSX, JSON or ZIP extract from a local path or an http(s)/ftp URL, " +
		"normalizes it and replaces the stops table with the result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyIngestFlags(cmd)
		if cfg.Ingest.Source == "" {
			return eris.New("ingest: --source is required (or SECURECHECK_INGEST_SOURCE)")
		}
		if err := cfg.Validate("ingest"); err != nil {
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

		delim, _ := utf8.DecodeRuneInString(cfg.Ingest.Delimiter)
		in, err := ingest.New(st, ingest.Options{
			Table: cfg.Store.Table,
			Source: ingest.SourceOptions{
				Delimiter: delim,
				Encoding:  cfg.Ingest.Encoding,
				Sheet:     cfg.Ingest.Sheet,
				TempDir:   cfg.Ingest.TempDir,
				Timeout:   time.Duration(cfg.Ingest.HTTPTimeoutSecs) * time.Second,
			},
			DateLayouts: cfg.Ingest.DateLayouts,
		})
		if err != nil {
			return err
		}

		res, err := in.Run(ctx, cfg.Ingest.Source)
		if err != nil {
			return err
		}
		return writeSummary(os.Stdout, format, res, formatIngestResult)
	},
}

func init() {
	ingestCmd.Flags().String("source", "", "extract path or http(s)/ftp URL (default from config)")
	ingestCmd.Flags().String("sheet", "", "worksheet name for XLSX extracts (default: first sheet)")
	ingestCmd.Flags().String("delimiter", "", "field delimiter for CSV extracts (default from config)")
	ingestCmd.Flags().String("encoding", "", "character encoding of CSV extracts, e.g. windows-1252 (default UTF-8)")
	ingestCmd.Flags().String("format", "table", "summary format: table, json or yaml")

	rootCmd.AddCommand(ingestCmd)
}

// applyIngestFlags overrides config values with flags the user set.
func applyIngestFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Ingest.Source, _ = flags.GetString("source")
	}
	if flags.Changed("sheet") {
		cfg.Ingest.Sheet, _ = flags.GetString("sheet")
	}
	if flags.Changed("delimiter") {
		d, _ := flags.GetString("delimiter")
		if d == `\t` {
			d = "\t"
		}
		cfg.Ingest.Delimiter = d
	}
	if flags.Changed("encoding") {
		cfg.Ingest.Encoding, _ = flags.GetString("encoding")
	}
}

// summaryFormat reads --format for commands that print a summary rather
// than a report.
func summaryFormat(cmd *cobra.Command) (export.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	f, err := export.ParseFormat(s)
	if err != nil {
		return "", err
	}
	switch f {
	case export.FormatTable, export.FormatJSON, export.FormatYAML:
		return f, nil
	default:
		return "", eris.Errorf("%s supports table, json or yaml output, not %s", cmd.Name(), f)
	}
}

func writeSummary[T any](out io.Writer, f export.Format, v T, table func(io.Writer, T)) error {
	switch f {
	case export.FormatJSON:
		return export.WriteJSON(out, v)
	case export.FormatYAML:
		return export.WriteYAML(out, v)
	default:
		table(out, v)
		return nil
	}
}

// formatIngestResult writes an ingestion summary to w.
func formatIngestResult(out io.Writer, r *ingest.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", r.Source)
	_, _ = fmt.Fprintf(w, "Table:\t%s\n", r.Table)
	_, _ = fmt.Fprintf(w, "Rows read:\t%d\n", r.RowsRead)
	_, _ = fmt.Fprintf(w, "Rows dropped:\t%d\n", r.RowsDropped)
	_, _ = fmt.Fprintf(w, "Rows loaded:\t%d\n", r.RowsLoaded)
	if len(r.DroppedColumns) > 0 {
		_, _ = fmt.Fprintf(w, "Empty columns dropped:\t%s\n", strings.Join(r.DroppedColumns, ", "))
	}
	if len(r.IgnoredColumns) > 0 {
		_, _ = fmt.Fprintf(w, "Columns not stored:\t%s\n", strings.Join(r.IgnoredColumns, ", "))
	}
	if len(r.Filled) > 0 {
		cols := make([]string, 0, len(r.Filled))
		for c := range r.Filled {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			_, _ = fmt.Fprintf(w, "  filled %s:\t%d\n", c, r.Filled[c])
		}
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", r.Duration.Round(time.Millisecond))
	_ = w.Flush()
}
