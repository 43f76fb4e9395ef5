package ingest

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/normalize"
	"github.com/securecheck/securecheck-cli/internal/schema"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newTestReader(t *testing.T) *Reader {
	return NewReader(SourceOptions{TempDir: t.TempDir()})
}

func requireInputError(t *testing.T, err error) *IngestionInputError {
	t.Helper()
	var inErr *IngestionInputError
	require.True(t, errors.As(err, &inErr), "got %v", err)
	return inErr
}

func TestReader_CSV(t *testing.T) {
	p := writeFile(t, "stops.csv", "stop_date, violation ,officer_id\n2023-01-01,Speeding,\n2023-01-02\n")

	f, err := newTestReader(t).Read(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{schema.StopDate, schema.Violation, "officer_id"}, f.Columns)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, []any{"2023-01-01", "Speeding", nil}, f.Rows[0])
	assert.Equal(t, []any{"2023-01-02", nil, nil}, f.Rows[1])
}

func TestReader_DelimiterAndTSV(t *testing.T) {
	semi := writeFile(t, "stops.txt", "stop_date;violation\n2023-01-01;DUI\n")
	r := NewReader(SourceOptions{Delimiter: ';', TempDir: t.TempDir()})
	f, err := r.Read(context.Background(), semi)
	require.NoError(t, err)
	assert.Equal(t, "DUI", f.Value(0, schema.Violation))

	tsv := writeFile(t, "stops.tsv", "stop_date\tviolation\n2023-01-01\tSeatbelt\n")
	f, err = r.Read(context.Background(), tsv)
	require.NoError(t, err)
	assert.Equal(t, "Seatbelt", f.Value(0, schema.Violation))
}

func TestReader_Encoding(t *testing.T) {
	p := writeFile(t, "stops.csv", "country_name\nM\xe9xico\n")
	r := NewReader(SourceOptions{Encoding: "latin1", TempDir: t.TempDir()})

	f, err := r.Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "México", f.Value(0, schema.CountryName))
}

func TestReader_MalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "empty file", file: "empty.csv", content: "", want: "no header row"},
		{name: "too many fields", file: "wide.csv", content: "a,b\n1,2,3\n", want: "record 1 has 3 fields"},
		{name: "duplicate header", file: "dup.csv", content: "a,a\n1,2\n", want: `duplicate column "a"`},
		{name: "unsupported type", file: "stops.parquet", content: "PAR1", want: "unsupported file type"},
		{name: "json not an array", file: "stops.json", content: `{"a":1}`, want: "expected '['"},
		{name: "json element not an object", file: "list.json", content: `[1]`, want: "expected object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, tt.file, tt.content)
			_, err := newTestReader(t).Read(context.Background(), p)
			inErr := requireInputError(t, err)
			assert.Equal(t, p, inErr.Source)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReader_MissingSource(t *testing.T) {
	_, err := newTestReader(t).Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	requireInputError(t, err)
	assert.Contains(t, err.Error(), "no such file")

	_, err = newTestReader(t).Read(context.Background(), "  ")
	requireInputError(t, err)
}

func TestReader_JSON(t *testing.T) {
	p := writeFile(t, "stops.json", `[
		{"stop_date": "2023-01-01", "driver_age": 31, "is_arrested": true},
		{"stop_date": "2023-01-02", "violation": "DUI"},
		{"stop_date": "2023-01-03", "vehicle_number": 12345678}
	]`)

	f, err := newTestReader(t).Read(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{schema.StopDate, schema.DriverAge, schema.IsArrested, schema.Violation, schema.VehicleNumber}, f.Columns)
	assert.Equal(t, []any{"2023-01-01", json.Number("31"), true, nil, nil}, f.Rows[0])
	assert.Equal(t, []any{"2023-01-02", nil, nil, "DUI", nil}, f.Rows[1])

	out, _ := normalize.New().Normalize(f)
	vehicle := slices.Index(out.Columns, schema.VehicleNumber)
	age := slices.Index(out.Columns, schema.DriverAge)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, "12345678", out.Rows[2][vehicle])
	assert.Equal(t, int64(31), out.Rows[0][age])
}

func TestReader_XLSX(t *testing.T) {
	book := xlsx.NewFile()
	sheet, err := book.AddSheet("Stops")
	require.NoError(t, err)
	for _, cells := range [][]string{{"stop_date", "violation"}, {"2023-01-01", "Speeding"}} {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	p := filepath.Join(t.TempDir(), "stops.xlsx")
	require.NoError(t, book.Save(p))

	r := NewReader(SourceOptions{Sheet: "Stops", TempDir: t.TempDir()})
	f, err := r.Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{schema.StopDate, schema.Violation}, f.Columns)
	assert.Equal(t, "Speeding", f.Value(0, schema.Violation))

	r = NewReader(SourceOptions{Sheet: "Other", TempDir: t.TempDir()})
	_, err = r.Read(context.Background(), p)
	requireInputError(t, err)
}

func TestReader_ZIP(t *testing.T) {
	p := filepath.Join(t.TempDir(), "export.zip")
	out, err := os.Create(p)
	require.NoError(t, err)
	w := zip.NewWriter(out)
	for name, content := range map[string]string{
		"README.md":        "notes",
		"export/stops.csv": "stop_date,violation\n2023-01-01,DUI\n",
	} {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())

	tmp := t.TempDir()
	f, err := NewReader(SourceOptions{TempDir: tmp}).Read(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "DUI", f.Value(0, schema.Violation))

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left, "work files are removed")
}

func TestReader_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exports/stops.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("stop_date,violation\n2023-01-01,Speeding\n"))
	}))
	defer srv.Close()

	f, err := newTestReader(t).Read(context.Background(), srv.URL+"/exports/stops.csv")
	require.NoError(t, err)
	assert.Equal(t, "Speeding", f.Value(0, schema.Violation))

	_, err = newTestReader(t).Read(context.Background(), srv.URL+"/exports/missing.csv")
	requireInputError(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRemoteName(t *testing.T) {
	assert.Equal(t, "stops.csv", remoteName("https://example.com/data/stops.csv?token=x"))
	assert.Equal(t, "download", remoteName("https://example.com/"))
	assert.Equal(t, "download", remoteName("https://example.com"))
}
