// Package report summarizes a cleaned table for logging: shape, per-column
// missing counts, outlier rows and coarse data-quality warnings. Reports are
// informational and never feed back into cleaning.
package report

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"tbetl/internal/table"
)

// ColumnStat is the missing-value tally of one column.
type ColumnStat struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// Validation is the read-only report of one table.
type Validation struct {
	Name    string       `json:"name"`
	Rows    int          `json:"rows"`
	Columns []ColumnStat `json:"columns"`

	// Outliers maps a column to the flagged row positions in the table.
	Outliers map[string][]int `json:"outliers,omitempty"`
	// OutlierRows is the sorted union of Outliers.
	OutlierRows []int `json:"outlier_rows,omitempty"`

	// YearMin and YearMax span the non-missing "year" values; both are zero
	// when the table has no year.
	YearMin int `json:"year_min"`
	YearMax int `json:"year_max"`
	// Countries is the number of distinct non-missing "country" values.
	Countries int `json:"countries"`
}

// Build tallies t. outliers may be nil.
func Build(name string, t *table.Table, outliers map[string][]int) Validation {
	v := Validation{
		Name:     name,
		Rows:     t.Len(),
		Columns:  make([]ColumnStat, t.Width()),
		Outliers: map[string][]int{},
	}
	for j, c := range t.Columns() {
		n := 0
		for i := 0; i < t.Len(); i++ {
			if t.At(i, j).IsNull() {
				n++
			}
		}
		v.Columns[j] = ColumnStat{Name: c.Name, Kind: c.Kind.String(), Missing: n}
	}

	union := map[int]struct{}{}
	for col, rows := range outliers {
		if len(rows) == 0 {
			continue
		}
		v.Outliers[col] = append([]int(nil), rows...)
		for _, r := range rows {
			union[r] = struct{}{}
		}
	}
	for r := range union {
		v.OutlierRows = append(v.OutlierRows, r)
	}
	sort.Ints(v.OutlierRows)

	if years, ok := t.Values("year"); ok {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, y := range years {
			if f, ok := y.Float(); ok {
				lo, hi = math.Min(lo, f), math.Max(hi, f)
			}
		}
		if lo <= hi {
			v.YearMin, v.YearMax = int(lo), int(hi)
		}
	}
	if countries, ok := t.Values("country"); ok {
		seen := map[string]struct{}{}
		for _, c := range countries {
			if !c.IsNull() {
				seen[c.Text()] = struct{}{}
			}
		}
		v.Countries = len(seen)
	}
	return v
}

// Width returns the number of columns.
func (v Validation) Width() int { return len(v.Columns) }

// Missing returns the missing count of the named column.
func (v Validation) Missing(name string) (int, bool) {
	for _, c := range v.Columns {
		if c.Name == name {
			return c.Missing, true
		}
	}
	return 0, false
}

// Warning is a data-quality finding on one column.
type Warning struct {
	Column  string
	Missing int
	Rows    int
	Empty   bool
}

func (w Warning) String() string {
	if w.Empty {
		return fmt.Sprintf("column %q is completely empty", w.Column)
	}
	return fmt.Sprintf("column %q is %.1f%% missing (%d of %d rows)",
		w.Column, 100*float64(w.Missing)/float64(w.Rows), w.Missing, w.Rows)
}

// Warnings lists columns that are completely empty or whose missing share is
// above threshold, in schema order. An empty table yields no warnings.
func (v Validation) Warnings(threshold float64) []Warning {
	if v.Rows == 0 {
		return nil
	}
	var out []Warning
	for _, c := range v.Columns {
		switch {
		case c.Missing == v.Rows:
			out = append(out, Warning{Column: c.Name, Missing: c.Missing, Rows: v.Rows, Empty: true})
		case float64(c.Missing)/float64(v.Rows) > threshold:
			out = append(out, Warning{Column: c.Name, Missing: c.Missing, Rows: v.Rows})
		}
	}
	return out
}

// Log writes the report and its warnings.
func (v Validation) Log(log *slog.Logger, threshold float64) {
	missing := 0
	for _, c := range v.Columns {
		missing += c.Missing
	}
	log.Info("validation report",
		"dataset", v.Name,
		"rows", v.Rows,
		"columns", v.Width(),
		"missing_cells", missing,
		"outlier_rows", len(v.OutlierRows),
		"countries", v.Countries,
		"year_min", v.YearMin,
		"year_max", v.YearMax,
	)
	for col, rows := range v.Outliers {
		log.Debug("outliers flagged", "dataset", v.Name, "column", col, "rows", rows)
	}
	for _, w := range v.Warnings(threshold) {
		log.Warn("data quality", "dataset", v.Name, "column", w.Column, "detail", w.String())
	}
}
