package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// maxCellWidth caps a rendered column; longer cells are cut with an ellipsis.
const maxCellWidth = 40

// TextTable renders rows as a boxed grid. Widths are measured in terminal
// cells, so wide runes line up.
type TextTable struct {
	writer  io.Writer
	headers []string
	rows    [][]string
}

func NewTable(w io.Writer) *TextTable {
	return &TextTable{writer: w}
}

func (t *TextTable) Header(headers []string) {
	t.headers = headers
}

func (t *TextTable) Row(row []string) {
	t.rows = append(t.rows, row)
}

func (t *TextTable) Bulk(rows [][]string) {
	t.rows = append(t.rows, rows...)
}

func (t *TextTable) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}

	widths := t.widths()
	separator := separatorLine(widths)

	fmt.Fprintln(t.writer, separator)
	if len(t.headers) > 0 {
		fmt.Fprintln(t.writer, formatLine(t.headers, widths))
		fmt.Fprintln(t.writer, separator)
	}
	for _, row := range t.rows {
		fmt.Fprintln(t.writer, formatLine(row, widths))
	}
	fmt.Fprintln(t.writer, separator)
}

func (t *TextTable) widths() []int {
	columns := len(t.headers)
	for _, row := range t.rows {
		columns = max(columns, len(row))
	}

	widths := make([]int, columns)
	measure := func(cells []string) {
		for i, cell := range cells {
			widths[i] = max(widths[i], min(runewidth.StringWidth(cell), maxCellWidth))
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}

	for i := range widths {
		widths[i] = max(widths[i], 1)
	}
	return widths
}

func separatorLine(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

func formatLine(row []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = strings.ReplaceAll(row[i], "\n", " ")
		}
		cell = runewidth.Truncate(cell, w, "…")
		parts[i] = " " + runewidth.FillRight(cell, w) + " "
	}
	return "|" + strings.Join(parts, "|") + "|"
}
