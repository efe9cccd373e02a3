package db

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/MandukyaDB/core"
)

// SimpleTable renders rows as an ASCII grid. Numeric cells are
// right-aligned, everything else left-aligned.
type SimpleTable struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	numeric [][]bool
}

func NewTable(w io.Writer) *SimpleTable {
	return &SimpleTable{writer: w}
}

func (t *SimpleTable) Header(headers []string) {
	t.headers = headers
}

// Row adds a typed row.
func (t *SimpleTable) Row(row core.Row) {
	cells := make([]string, len(row))
	numeric := make([]bool, len(row))
	for i, v := range row {
		cells[i] = v.String()
		numeric[i] = v.IsNumeric()
	}
	t.rows = append(t.rows, cells)
	t.numeric = append(t.numeric, numeric)
}

// Bulk adds rows of pre-rendered text.
func (t *SimpleTable) Bulk(rows [][]string) {
	for _, row := range rows {
		t.rows = append(t.rows, row)
		t.numeric = append(t.numeric, make([]bool, len(row)))
	}
}

func (t *SimpleTable) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}

	colWidths := t.calculateWidths()
	separator := t.buildSeparator(colWidths)

	fmt.Fprintln(t.writer, separator)
	if len(t.headers) > 0 {
		fmt.Fprintln(t.writer, t.formatRow(t.headers, nil, colWidths))
		fmt.Fprintln(t.writer, separator)
	}
	for i, row := range t.rows {
		fmt.Fprintln(t.writer, t.formatRow(row, t.numeric[i], colWidths))
	}
	fmt.Fprintln(t.writer, separator)
}

// calculateWidths measures columns in runes so multi-byte text lines up.
func (t *SimpleTable) calculateWidths() []int {
	numCols := len(t.headers)
	for _, row := range t.rows {
		numCols = max(numCols, len(row))
	}

	widths := make([]int, numCols)
	for i, h := range t.headers {
		widths[i] = max(widths[i], utf8.RuneCountInString(h))
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	for i := range widths {
		widths[i] = max(widths[i], 1)
	}
	return widths
}

func (t *SimpleTable) buildSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

func (t *SimpleTable) formatRow(row []string, numeric []bool, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := strings.Repeat(" ", w-utf8.RuneCountInString(cell))
		if i < len(numeric) && numeric[i] {
			parts[i] = " " + pad + cell + " "
		} else {
			parts[i] = " " + cell + pad + " "
		}
	}
	return "|" + strings.Join(parts, "|") + "|"
}
