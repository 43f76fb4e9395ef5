package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
	"github.com/securecheck/securecheck-cli/internal/export"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List and run the analytical reports",
}

// -- reports list --

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the report catalogue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		showSQL, _ := cmd.Flags().GetBool("sql")

		// Listing needs no connection; the dialect only shapes --sql output.
		cat, err := catalogue.New(dialectOnly(cfg.Store.Driver), catalogue.Options{
			Table:     cfg.Store.Table,
			Durations: cfg.Catalogue.StopDurationMinutes,
		})
		if err != nil {
			return err
		}
		formatReportList(os.Stdout, cat, showSQL)
		return nil
	},
}

// -- reports run --

var reportsRunCmd = &cobra.Command{
	Use:   "run <name|slug>",
	Short: "Run one report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("reports"); err != nil {
			return err
		}
		format, err := reportFormat(cmd)
		if err != nil {
			return err
		}
		outPath, _ := cmd.Flags().GetString("out")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cat, err := initCatalogue(st)
		if err != nil {
			return err
		}
		rep, err := cat.Lookup(args[0])
		if err != nil {
			return err
		}
		res, err := cat.RunReport(ctx, rep)
		if err != nil {
			return err
		}
		return writeResult(os.Stdout, outPath, format, res)
	},
}

// -- reports all --

var reportsAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every report",
	Long:  "Runs the whole catalogue concurrently. A failing report is reported and does not stop the others.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("reports"); err != nil {
			return err
		}
		format, err := reportFormat(cmd)
		if err != nil {
			return err
		}
		outDir, _ := cmd.Flags().GetString("out-dir")
		if format.Binary() && outDir == "" {
			return eris.Errorf("reports all: --out-dir is required for %s output", format)
		}
		parallel, _ := cmd.Flags().GetInt("parallel")
		if parallel < 1 {
			parallel = cfg.Catalogue.Parallelism
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

		outcomes := cat.RunAll(ctx, nil, parallel)
		return writeOutcomes(os.Stdout, outDir, format, outcomes)
	},
}

func init() {
	reportsListCmd.Flags().Bool("sql", false, "print the SQL of each report")

	reportsRunCmd.Flags().String("format", "table", "output format: table, markdown, json, yaml, csv or xlsx")
	reportsRunCmd.Flags().String("out", "", "write to this file instead of stdout")

	reportsAllCmd.Flags().String("format", "table", "output format: table, markdown, json, yaml, csv or xlsx")
	reportsAllCmd.Flags().String("out-dir", "", "write one file per report into this directory")
	reportsAllCmd.Flags().Int("parallel", 0, "reports to run at once (default from config)")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsRunCmd)
	reportsCmd.AddCommand(reportsAllCmd)
	rootCmd.AddCommand(reportsCmd)
}

func reportFormat(cmd *cobra.Command) (export.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	return export.ParseFormat(s)
}

// writeResult writes res to path, or to stdout when path is empty.
func writeResult(stdout io.Writer, path string, f export.Format, res *catalogue.Result) error {
	if path == "" {
		if f.Binary() {
			return eris.Errorf("%s output needs --out", f)
		}
		return export.Write(stdout, f, res)
	}

	file, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output file")
	}
	if err := export.Write(file, f, res); err != nil {
		file.Close() //nolint:errcheck
		return err
	}
	if err := file.Close(); err != nil {
		return eris.Wrap(err, "close output file")
	}
	zap.L().Info("report written", zap.String("report", res.Report), zap.String("path", path))
	return nil
}

// writeOutcomes prints every result, or writes one file per report into
// dir. It returns an error naming the number of failed reports.
func writeOutcomes(stdout io.Writer, dir string, f export.Format, outcomes []catalogue.Outcome) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			zap.L().Error("report failed", zap.String("report", o.Name), zap.Error(o.Err))
			continue
		}
		if dir != "" {
			path := filepath.Join(dir, o.Result.Slug+"."+extension(f))
			if err := writeResult(stdout, path, f, o.Result); err != nil {
				return err
			}
			continue
		}
		if f == export.FormatTable || f == export.FormatMarkdown {
			_, _ = fmt.Fprintf(stdout, "== %s ==\n", o.Name)
		}
		if err := export.Write(stdout, f, o.Result); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout)
	}

	if failed > 0 {
		return eris.Errorf("reports all: %d of %d reports failed", failed, len(outcomes))
	}
	return nil
}

func extension(f export.Format) string {
	switch f {
	case export.FormatTable:
		return "txt"
	case export.FormatMarkdown:
		return "md"
	default:
		return string(f)
	}
}

// formatReportList writes the catalogue names and slugs to w.
func formatReportList(out io.Writer, cat *catalogue.Catalogue, showSQL bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tSLUG\tNAME")
	_, _ = fmt.Fprintln(w, "-\t----\t----")
	for i, r := range cat.Reports() {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, r.Slug(), r.Name)
	}
	_ = w.Flush()

	if !showSQL {
		return
	}
	for _, r := range cat.Reports() {
		sql, _ := cat.SQL(r)
		_, _ = fmt.Fprintf(out, "\n-- %s\n%s;\n", r.Name, sql)
	}
}
