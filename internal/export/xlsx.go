package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
)

// maxSheetName is the Excel limit on worksheet names.
const maxSheetName = 31

// WriteXLSX writes res as a single-sheet workbook named after its slug.
// Numbers and booleans keep their cell types.
func WriteXLSX(w io.Writer, res *catalogue.Result) error {
	book := xlsx.NewFile()
	sheet, err := book.AddSheet(sheetName(res.Slug))
	if err != nil {
		return eris.Wrap(err, "export: xlsx add sheet")
	}

	header := sheet.AddRow()
	for _, name := range res.ColumnNames() {
		header.AddCell().SetString(name)
	}
	for _, values := range res.Rows {
		row := sheet.AddRow()
		for _, v := range values {
			setCell(row.AddCell(), v)
		}
	}

	return eris.Wrap(book.Write(w), "export: xlsx write")
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
		c.SetString("")
	case int64:
		c.SetInt64(x)
	case int:
		c.SetInt(x)
	case float64:
		c.SetFloat(x)
	case bool:
		c.SetBool(x)
	default:
		c.SetString(Cell(v))
	}
}

func sheetName(slug string) string {
	if slug == "" {
		return "report"
	}
	if len(slug) > maxSheetName {
		return slug[:maxSheetName]
	}
	return slug
}
