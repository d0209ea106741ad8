// Package table models the tabular snapshots passed between cleaning stages.
//
// A Table is an explicit schema (ordered, uniquely named, typed columns) plus
// row-major storage of Values. Tables are never modified after construction:
// every helper that changes rows or columns returns a new Table. Unchanged
// rows may be shared between the old and the new Table, which is safe because
// no code path writes into a row owned by a Table.
package table

import (
	"fmt"
	"strings"
)

// Kind is the declared type of a column.
type Kind uint8

const (
	KindString Kind = iota
	KindFloat
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return "string"
	}
}

// Numeric reports whether cells of the column are numbers or missing.
func (k Kind) Numeric() bool { return k == KindFloat || k == KindInt }

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an immutable snapshot of rows under a fixed schema.
type Table struct {
	cols  []Column
	index map[string]int
	rows  [][]Value
}

// New builds a Table. It takes ownership of rows; callers must not modify
// them afterwards. Duplicate column names and rows whose width differs from
// the schema are rejected with a *SchemaError.
func New(cols []Column, rows [][]Value) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c.Name]; dup {
			return nil, &SchemaError{Op: "table", Column: c.Name, Rows: len(rows), Detail: "duplicate column name"}
		}
		index[c.Name] = i
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, &SchemaError{
				Op:     "table",
				Rows:   len(rows),
				Detail: fmt.Sprintf("row %d has %d values, schema has %d columns", i, len(r), len(cols)),
			}
		}
	}
	return &Table{cols: append([]Column(nil), cols...), index: index, rows: rows}, nil
}

// MustNew is New for fixtures and literals; it panics on error.
func MustNew(cols []Column, rows [][]Value) *Table {
	t, err := New(cols, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Strings builds an all-string table from a header and raw cells. Empty
// cells become missing values.
func Strings(header []string, cells [][]string) (*Table, error) {
	cols := make([]Column, len(header))
	for i, h := range header {
		cols[i] = Column{Name: h, Kind: KindString}
	}
	rows := make([][]Value, len(cells))
	for i, rec := range cells {
		row := make([]Value, len(rec))
		for j, s := range rec {
			if s != "" {
				row[j] = Str(s)
			}
		}
		rows[i] = row
	}
	return New(cols, rows)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Columns returns a copy of the schema.
func (t *Table) Columns() []Column { return append([]Column(nil), t.cols...) }

// Column returns the j-th column.
func (t *Table) Column(j int) Column { return t.cols[j] }

// Names returns the column names in schema order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	j, ok := t.index[name]
	return j, ok
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// At returns the value at row i, column j.
func (t *Table) At(i, j int) Value { return t.rows[i][j] }

// Get returns the value at row i in the named column.
func (t *Table) Get(i int, name string) (Value, bool) {
	j, ok := t.index[name]
	if !ok {
		return Value{}, false
	}
	return t.rows[i][j], true
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value { return append([]Value(nil), t.rows[i]...) }

// Values returns a copy of the named column.
func (t *Table) Values(name string) ([]Value, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, true
}

// Select returns a table holding rows at the given positions, in that order.
func (t *Table) Select(rows []int) *Table {
	out := make([][]Value, len(rows))
	for i, r := range rows {
		out[i] = t.rows[r]
	}
	return &Table{cols: t.cols, index: t.index, rows: out}
}

// Filter returns a table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := make([][]Value, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(i) {
			out = append(out, r)
		}
	}
	return &Table{cols: t.cols, index: t.index, rows: out}
}

// WithColumns returns a table with the same rows under a new schema of equal
// width. It is used for renames and kind changes that do not touch values.
func (t *Table) WithColumns(cols []Column) (*Table, error) {
	if len(cols) != len(t.cols) {
		return nil, &SchemaError{
			Op:     "table",
			Rows:   len(t.rows),
			Detail: fmt.Sprintf("schema width %d does not match table width %d", len(cols), len(t.cols)),
		}
	}
	return New(cols, t.rows)
}

// ReplaceColumn returns a table where column name has kind and values vals.
// len(vals) must equal Len().
func (t *Table) ReplaceColumn(name string, kind Kind, vals []Value) (*Table, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, &SchemaError{Op: "table", Column: name, Rows: len(t.rows), Detail: "no such column"}
	}
	if len(vals) != len(t.rows) {
		return nil, &SchemaError{
			Op:     "table",
			Column: name,
			Rows:   len(t.rows),
			Detail: fmt.Sprintf("got %d values for %d rows", len(vals), len(t.rows)),
		}
	}
	cols := append([]Column(nil), t.cols...)
	cols[j].Kind = kind
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		if r[j].Equal(vals[i]) {
			rows[i] = r
			continue
		}
		nr := append([]Value(nil), r...)
		nr[j] = vals[i]
		rows[i] = nr
	}
	return &Table{cols: cols, index: t.index, rows: rows}, nil
}

// String renders a compact, aligned dump for logs and test failures.
func (t *Table) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Names(), " | "))
	for _, r := range t.rows {
		b.WriteByte('\n')
		for j, v := range r {
			if j > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(v.String())
		}
	}
	return b.String()
}
