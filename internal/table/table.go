// Package table holds the in-memory tabular representation shared by the
// loaders, the join pipeline and the writer.
//
// A Table is an ordered list of column names plus positional rows. Cells are
// either a string or nil; nil means the value is missing (an empty CSV field,
// SQL NULL, or an unmatched right side of a join).
package table

import (
	"fmt"
	"strings"
)

// Row is a positional row aligned to Table.Columns.
type Row struct {
	V    []any
	Line int // 1-based source record number, 0 when synthesized
}

// Table is an ordered, column-named set of rows.
//
// Tables are not safe for concurrent mutation. The pipeline treats inputs as
// read-only and always builds new tables for derived results.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New returns an empty table with a copy of columns.
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1 if absent.
// The first match wins when names repeat.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether col exists.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Missing returns the subset of cols not present in t, in argument order.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Append adds a row. Values are copied; short rows are padded with nil and
// long rows are truncated to the column count.
func (t *Table) Append(line int, vals ...any) {
	v := make([]any, len(t.Columns))
	copy(v, vals)
	t.Rows = append(t.Rows, Row{V: v, Line: line})
}

// Value returns the cell at row i for col, or nil if col is absent.
func (t *Table) Value(i int, col string) any {
	ix := t.Index(col)
	if ix < 0 || i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i].V[ix]
}

// Column returns the cells of col in row order, or nil if col is absent.
func (t *Table) Column(col string) []any {
	ix := t.Index(col)
	if ix < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.V[ix]
	}
	return out
}

// Rename renames the column old to name. It reports false if old is absent.
func (t *Table) Rename(old, name string) bool {
	ix := t.Index(old)
	if ix < 0 {
		return false
	}
	t.Columns[ix] = name
	return true
}

// Select returns a new table holding only cols, in the given order.
//
// Errors:
//   - Returns a *MissingColumnsError listing every absent column.
func (t *Table) Select(cols ...string) (*Table, error) {
	if missing := t.Missing(cols...); len(missing) > 0 {
		return nil, &MissingColumnsError{Table: t.Name, Columns: missing}
	}

	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
	}

	out := New(t.Name, cols)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		v := make([]any, len(idx))
		for i, si := range idx {
			v[i] = r.V[si]
		}
		out.Rows = append(out.Rows, Row{V: v, Line: r.Line})
	}
	return out, nil
}

// Filter returns a new table with the rows for which keep returns true.
// Row cell slices are shared with t.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Name, t.Columns)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// MissingColumnsError reports required columns absent from a table.
type MissingColumnsError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	name := e.Table
	if name == "" {
		name = "table"
	}
	return fmt.Sprintf("%s: missing column(s) %s", name, strings.Join(quoteAll(e.Columns), ", "))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
