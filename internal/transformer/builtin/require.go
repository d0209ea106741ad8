package builtin

import (
	"fmt"
	"math"

	"tbetl/internal/table"
	"tbetl/internal/transformer"
)

// Require removes any row missing a value in one of Fields.
type Require struct {
	Fields []string
}

func (Require) Name() string { return "require" }

func (r Require) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	idx, err := indexes(in, "require", r.Fields)
	if err != nil {
		return nil, transformer.Stats{}, err
	}
	out := in.Filter(func(i int) bool {
		for _, j := range idx {
			if in.At(i, j).IsNull() {
				return false
			}
		}
		return true
	})
	return out, transformer.Stats{}, nil
}

// YearRange drops rows whose Column holds a number outside [Min, Max]. Rows
// with a missing value are kept; whether they survive is up to the
// missing-value policy.
type YearRange struct {
	Column   string
	Min, Max int
}

func (YearRange) Name() string { return "year_range" }

func (y YearRange) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	if y.Min > y.Max {
		return nil, transformer.Stats{}, &table.ConfigError{
			Op:     "year_range",
			Param:  "range",
			Detail: fmt.Sprintf("min %d > max %d", y.Min, y.Max),
		}
	}
	col := y.Column
	if col == "" {
		col = "year"
	}
	j, ok := in.Index(col)
	if !ok {
		return nil, transformer.Stats{}, &table.SchemaError{Op: "year_range", Column: col, Rows: in.Len(), Detail: "column not found"}
	}
	lo, hi := float64(y.Min), float64(y.Max)
	out := in.Filter(func(i int) bool {
		f, ok := in.At(i, j).Float()
		return !ok || (f >= lo && f <= hi)
	})
	return out, transformer.Stats{}, nil
}

// DropAllMissing removes rows where every one of Columns that exists in the
// table is missing. It is a no-op when none of them exist.
type DropAllMissing struct {
	Columns []string
}

func (DropAllMissing) Name() string { return "drop_all_missing" }

func (d DropAllMissing) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	var idx []int
	for _, c := range d.Columns {
		if j, ok := in.Index(c); ok {
			idx = append(idx, j)
		}
	}
	if len(idx) == 0 {
		return in, transformer.Stats{}, nil
	}
	out := in.Filter(func(i int) bool {
		for _, j := range idx {
			if !in.At(i, j).IsNull() {
				return true
			}
		}
		return false
	})
	return out, transformer.Stats{}, nil
}

func indexes(in *table.Table, op string, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		j, ok := in.Index(n)
		if !ok {
			return nil, &table.SchemaError{Op: op, Column: n, Rows: in.Len(), Detail: "column not found"}
		}
		idx[i] = j
	}
	return idx, nil
}

func numericColumn(in *table.Table, op, name string) (int, error) {
	j, ok := in.Index(name)
	if !ok {
		return 0, &table.SchemaError{Op: op, Column: name, Rows: in.Len(), Detail: "column not found"}
	}
	if !in.Column(j).Kind.Numeric() {
		return 0, &table.SchemaError{
			Op:     op,
			Column: name,
			Rows:   in.Len(),
			Detail: fmt.Sprintf("column is %s, want a numeric column", in.Column(j).Kind),
		}
	}
	return j, nil
}

func badFloat(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }
