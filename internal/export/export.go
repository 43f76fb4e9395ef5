// Package export renders report results for terminals and files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
)

// Format names an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatMarkdown, FormatJSON, FormatYAML, FormatCSV, FormatXLSX}

// ParseFormat resolves a format name. Empty input is FormatTable; "md" and
// "yml" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool { return f == FormatXLSX }

// Write renders res to w in format f.
func Write(w io.Writer, f Format, res *catalogue.Result) error {
	if res == nil {
		return eris.New("export: nil result")
	}
	switch f {
	case FormatTable:
		return WriteTable(w, res.ColumnNames(), Cells(res.Rows))
	case FormatMarkdown:
		return WriteMarkdown(w, res.ColumnNames(), Cells(res.Rows))
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatYAML:
		return WriteYAML(w, res)
	case FormatCSV:
		return WriteCSV(w, res)
	case FormatXLSX:
		return WriteXLSX(w, res)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "export: json")
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "export: yaml")
	}
	return eris.Wrap(enc.Close(), "export: yaml")
}

// WriteCSV writes the header and rows of res. NULL cells are empty.
func WriteCSV(w io.Writer, res *catalogue.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.ColumnNames()); err != nil {
		return eris.Wrap(err, "export: csv header")
	}
	for _, row := range Cells(res.Rows) {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: csv")
}

// Cells converts result rows to display strings.
func Cells(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = Cell(v)
		}
	}
	return out
}

// Cell formats one value. NULL is the empty string.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.DateOnly)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
