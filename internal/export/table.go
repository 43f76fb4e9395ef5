package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
)

// MaxCellWidth caps terminal table cells; longer values are elided.
const MaxCellWidth = 40

// WriteTable writes an aligned plain-text table with a dashed rule under the
// header. Widths are measured in terminal cells so wide runes line up.
func WriteTable(w io.Writer, header []string, rows [][]string) error {
	widths := columnWidths(header, rows, MaxCellWidth)
	bw := bufio.NewWriter(w)

	writeLine := func(cells []string, fill func(i int) string) {
		for i := range widths {
			if i > 0 {
				bw.WriteString("  ")
			}
			cell := fill(i)
			if i < len(cells) {
				cell = runewidth.Truncate(cells[i], MaxCellWidth, "...")
			}
			if i == len(widths)-1 {
				bw.WriteString(cell)
				continue
			}
			bw.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		bw.WriteString("\n")
	}

	blank := func(int) string { return "" }
	writeLine(header, blank)
	writeLine(nil, func(i int) string { return strings.Repeat("-", widths[i]) })
	for _, row := range rows {
		writeLine(row, blank)
	}
	return eris.Wrap(bw.Flush(), "export: table")
}

// WriteMarkdown writes a GitHub-flavored markdown table padded to display
// width.
func WriteMarkdown(w io.Writer, header []string, rows [][]string) error {
	widths := columnWidths(header, rows, 0)
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder
	line := func(cells []string, sep bool) {
		sb.WriteString("|")
		for i, width := range widths {
			sb.WriteString(" ")
			switch {
			case sep:
				sb.WriteString(strings.Repeat("-", width))
			case i < len(cells):
				sb.WriteString(runewidth.FillRight(escapePipes(cells[i]), width))
			default:
				sb.WriteString(strings.Repeat(" ", width))
			}
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	line(header, false)
	line(nil, true)
	for _, row := range rows {
		line(row, false)
	}
	_, err := io.WriteString(w, sb.String())
	return eris.Wrap(err, "export: markdown")
}

// columnWidths returns the display width of each column. A positive limit
// caps every width.
func columnWidths(header []string, rows [][]string, limit int) []int {
	widths := make([]int, len(header))
	measure := func(cells []string) {
		for i := 0; i < len(cells) && i < len(widths); i++ {
			s := cells[i]
			if limit <= 0 {
				s = escapePipes(s)
			}
			n := runewidth.StringWidth(s)
			if limit > 0 && n > limit {
				n = limit
			}
			if n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}
	return widths
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
