package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
	"github.com/securecheck/securecheck-cli/internal/export"
	"github.com/securecheck/securecheck-cli/internal/ingest"
)

func sampleResult(name string) *catalogue.Result {
	return &catalogue.Result{
		Report:  name,
		Slug:    catalogue.Slugify(name),
		Columns: []catalogue.Column{{Name: "vehicle_number", Type: catalogue.TypeString}, {Name: "stop_count", Type: catalogue.TypeInt}},
		Rows:    [][]any{{"V1", int64(3)}},
	}
}

func TestFormatIngestResult(t *testing.T) {
	var buf bytes.Buffer
	formatIngestResult(&buf, &ingest.Result{
		RunID:          "0f8fad5b-d9cb-469f-a165-70867728950e",
		Source:         "stops.csv",
		Table:          "traffic_stops",
		RowsRead:       10,
		RowsDropped:    1,
		RowsLoaded:     9,
		DroppedColumns: []string{"search_type"},
		IgnoredColumns: []string{"officer_id"},
		Filled:         map[string]int{"driver_age": 2, "country_name": 1},
		Duration:       1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Rows read:")
	assert.Contains(t, out, "Rows loaded:")
	assert.Contains(t, out, "search_type")
	assert.Contains(t, out, "officer_id")
	assert.Contains(t, out, "1.5s")
	assert.Less(t, strings.Index(out, "filled country_name"), strings.Index(out, "filled driver_age"))
}

func TestFormatRunEntries(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	done := started.Add(90 * time.Second)

	var buf bytes.Buffer
	formatRunEntries(&buf, []ingest.RunEntry{
		{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Source: "stops.csv", Status: ingest.StatusComplete,
			StartedAt: started, CompletedAt: &done, RowsRead: 10, RowsLoaded: 9, RowsDropped: 1},
		{ID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Source: "broken.csv", Status: ingest.StatusRunning, StartedAt: started},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "SOURCE")
	assert.Contains(t, lines[2], "0f8fad5b")
	assert.NotContains(t, lines[2], "d9cb")
	assert.Contains(t, lines[2], "1m30s")
	assert.Contains(t, lines[3], ingest.StatusRunning)
	assert.Contains(t, lines[3], " - ")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
	assert.Equal(t, "abc", truncateID("abc"))
}

func TestWriteResult(t *testing.T) {
	var stdout bytes.Buffer
	res := sampleResult(catalogue.TopDrugVehicles)

	require.NoError(t, writeResult(&stdout, "", export.FormatCSV, res))
	assert.Equal(t, "vehicle_number,stop_count\nV1,3\n", stdout.String())

	err := writeResult(&stdout, "", export.FormatXLSX, res)
	assert.ErrorContains(t, err, "needs --out")

	path := filepath.Join(t.TempDir(), "top.json")
	require.NoError(t, writeResult(&stdout, path, export.FormatJSON, res))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slug": "top-10-drug-related-vehicles"`)
}

func TestWriteOutcomes(t *testing.T) {
	outcomes := []catalogue.Outcome{
		{Name: catalogue.TopDrugVehicles, Result: sampleResult(catalogue.TopDrugVehicles)},
		{Name: catalogue.BusiestHour, Err: errors.New("boom")},
		{Name: catalogue.MostSearchedVehicles, Result: sampleResult(catalogue.MostSearchedVehicles)},
	}

	var stdout bytes.Buffer
	err := writeOutcomes(&stdout, "", export.FormatTable, outcomes)
	assert.ErrorContains(t, err, "1 of 3 reports failed")
	assert.Contains(t, stdout.String(), "== "+catalogue.TopDrugVehicles+" ==")
	assert.Contains(t, stdout.String(), "== "+catalogue.MostSearchedVehicles+" ==")
	assert.NotContains(t, stdout.String(), catalogue.BusiestHour)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, writeOutcomes(&stdout, dir, export.FormatMarkdown, outcomes[:1]))
	_, err = os.Stat(filepath.Join(dir, "top-10-drug-related-vehicles.md"))
	assert.NoError(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "txt", extension(export.FormatTable))
	assert.Equal(t, "md", extension(export.FormatMarkdown))
	assert.Equal(t, "xlsx", extension(export.FormatXLSX))
	assert.Equal(t, "csv", extension(export.FormatCSV))
}

func TestFormatReportList(t *testing.T) {
	cat, err := catalogue.New(dialectOnly("sqlite"), catalogue.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	formatReportList(&buf, cat, true)
	out := buf.String()
	assert.Contains(t, out, "1   top-10-drug-related-vehicles")
	assert.Contains(t, out, "-- "+catalogue.TopDrugVehicles)
	assert.Contains(t, out, "FROM traffic_stops")
}

func TestFormatOverview(t *testing.T) {
	recent := sampleResult("recent")
	var buf bytes.Buffer
	formatOverview(&buf, &catalogue.OverviewResult{
		RecentStops: recent,
		KeyStats:    catalogue.KeyStats{TotalStops: 65535, TotalArrests: 1200, TotalSearches: 2400},
		Highlights:  []*catalogue.Result{sampleResult(catalogue.CountryDrugRate)},
	})

	out := buf.String()
	assert.Contains(t, out, "65535")
	assert.Contains(t, out, "== Recent stops ==")
	assert.Contains(t, out, "== "+catalogue.CountryDrugRate+" ==")
}

func TestIngestThenReport(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	t.Setenv("SECURECHECK_STORE_DRIVER", "sqlite")
	t.Setenv("SECURECHECK_STORE_DATABASE_URL", filepath.Join(dir, "stops.db"))
	t.Setenv("SECURECHECK_INGEST_TEMP_DIR", filepath.Join(dir, "work"))
	t.Setenv("SECURECHECK_LOG_LEVEL", "error")

	src := filepath.Join(dir, "stops.csv")
	require.NoError(t, os.WriteFile(src, []byte(
		"stop_date,vehicle_number,drugs_related_stop\n"+
			"2023-01-01,V1,true\n"+
			"2023-01-02,V2,false\n"+
			"garbage,V3,true\n"), 0o644))

	rootCmd.SetArgs([]string{"ingest", "--source", src, "--format", "json"})
	require.NoError(t, rootCmd.Execute())

	out := filepath.Join(dir, "top.csv")
	rootCmd.SetArgs([]string{"reports", "run", "top-10-drug-related-vehicles", "--format", "csv", "--out", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "vehicle_number,stop_count\nV1,1\n", string(data))

	rootCmd.SetArgs([]string{"reports", "run", "no-such-report"})
	assert.Error(t, rootCmd.Execute())
}
