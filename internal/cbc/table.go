package cbc

import "strings"

// Table is a rectangular grid of text cells. Names stays nil until a header
// row is promoted; rows are padded to a common width on construction.
type Table struct {
	Name  string
	Names []string
	Cells [][]string
}

func NewTable(name string, rows [][]string) *Table {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, w)
		copy(row, r)
		cells = append(cells, row)
	}
	return &Table{Name: name, Cells: cells}
}

func (t *Table) Width() int {
	if t.Names != nil {
		return len(t.Names)
	}
	if len(t.Cells) == 0 {
		return 0
	}
	return len(t.Cells[0])
}

func (t *Table) Height() int { return len(t.Cells) }

func (t *Table) Row(i int) []string { return t.Cells[i] }

func (t *Table) Column(i int) []string {
	col := make([]string, 0, len(t.Cells))
	for _, r := range t.Cells {
		col = append(col, r[i])
	}
	return col
}

func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, n := range t.Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Transpose flips rows and columns. It operates on Cells only; callers
// transpose before promoting a header.
func (t *Table) Transpose() {
	if len(t.Cells) == 0 {
		return
	}
	w := len(t.Cells[0])
	out := make([][]string, w)
	for i := 0; i < w; i++ {
		row := make([]string, len(t.Cells))
		for j := range t.Cells {
			row[j] = t.Cells[j][i]
		}
		out[i] = row
	}
	t.Cells = out
}

// PromoteHeader turns the first cell row into the column names.
func (t *Table) PromoteHeader() {
	if len(t.Cells) == 0 {
		return
	}
	t.Names = t.Cells[0]
	t.Cells = t.Cells[1:]
}

// DropColumns removes every column whose name contains marker and reports
// how many went.
func (t *Table) DropColumns(marker string) int {
	if t.Names == nil {
		return 0
	}
	keep := make([]int, 0, len(t.Names))
	for i, n := range t.Names {
		if !strings.Contains(n, marker) {
			keep = append(keep, i)
		}
	}
	dropped := len(t.Names) - len(keep)
	if dropped == 0 {
		return 0
	}
	names := make([]string, 0, len(keep))
	for _, i := range keep {
		names = append(names, t.Names[i])
	}
	for ri, r := range t.Cells {
		row := make([]string, 0, len(keep))
		for _, i := range keep {
			row = append(row, r[i])
		}
		t.Cells[ri] = row
	}
	t.Names = names
	return dropped
}

// DropRows removes every row whose cell in the named column satisfies pred.
func (t *Table) DropRows(column string, pred func(string) bool) int {
	ci, ok := t.ColumnIndex(column)
	if !ok {
		return 0
	}
	kept := t.Cells[:0]
	dropped := 0
	for _, r := range t.Cells {
		if pred(r[ci]) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	t.Cells = kept
	return dropped
}
