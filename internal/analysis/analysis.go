// Package analysis computes the summary series reported after cleaning:
// yearly means, top-N rankings, per-country series, WHO program coverage and
// the OWID/WHO inner merge.
//
// Inputs are cleaned tables; missing values never contribute to a mean or a
// ranking. A column the caller asks for that the table lacks is reported as
// a *table.SchemaError.
package analysis

import (
	"cmp"
	"fmt"
	"slices"

	"tbetl/internal/table"
)

// YearMean is the mean of one column over all countries for a year.
type YearMean struct {
	Year int
	Mean float64
	N    int
}

// Observation is one country-year value.
type Observation struct {
	Country string
	Year    int
	Value   float64
}

func need(op string, t *table.Table, cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return &table.SchemaError{Op: op, Column: c, Rows: t.Len(), Detail: "column not found"}
		}
	}
	return nil
}

// observations yields rows with a country, a year and a value in column.
func observations(t *table.Table, column string) []Observation {
	ci, _ := t.Index("country")
	yi, _ := t.Index("year")
	vi, _ := t.Index(column)
	out := make([]Observation, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		y, ok := t.At(i, yi).Float()
		if !ok {
			continue
		}
		v, ok := t.At(i, vi).Float()
		if !ok {
			continue
		}
		c := t.At(i, ci)
		if c.IsNull() {
			continue
		}
		out = append(out, Observation{Country: c.Text(), Year: int(y), Value: v})
	}
	return out
}

// GlobalTrend averages column per year, ascending by year. Years with no
// observed value are omitted.
func GlobalTrend(t *table.Table, column string) ([]YearMean, error) {
	if err := need("global_trend", t, "country", "year", column); err != nil {
		return nil, err
	}
	sums := map[int]*YearMean{}
	for _, o := range observations(t, column) {
		ym, ok := sums[o.Year]
		if !ok {
			ym = &YearMean{Year: o.Year}
			sums[o.Year] = ym
		}
		ym.Mean += o.Value
		ym.N++
	}
	out := make([]YearMean, 0, len(sums))
	for _, ym := range sums {
		ym.Mean /= float64(ym.N)
		out = append(out, *ym)
	}
	slices.SortFunc(out, func(a, b YearMean) int { return cmp.Compare(a.Year, b.Year) })
	return out, nil
}

// LatestYear returns the largest year with a value in column.
func LatestYear(t *table.Table, column string) (int, bool) {
	if need("latest_year", t, "country", "year", column) != nil {
		return 0, false
	}
	latest, found := 0, false
	for _, o := range observations(t, column) {
		if !found || o.Year > latest {
			latest, found = o.Year, true
		}
	}
	return latest, found
}

// TopN ranks countries by column in year, highest first, and keeps at most
// n. A year <= 0 selects the latest year with data. Ties keep table order.
// The year used is returned with the ranking.
func TopN(t *table.Table, column string, year, n int) ([]Observation, int, error) {
	if err := need("top_n", t, "country", "year", column); err != nil {
		return nil, 0, err
	}
	if n < 1 {
		return nil, 0, &table.ConfigError{Op: "top_n", Param: "n", Detail: fmt.Sprintf("must be >= 1, got %d", n)}
	}
	if year <= 0 {
		latest, ok := LatestYear(t, column)
		if !ok {
			return nil, 0, nil
		}
		year = latest
	}
	var picked []Observation
	for _, o := range observations(t, column) {
		if o.Year == year {
			picked = append(picked, o)
		}
	}
	slices.SortStableFunc(picked, func(a, b Observation) int { return cmp.Compare(b.Value, a.Value) })
	if len(picked) > n {
		picked = picked[:n]
	}
	return picked, year, nil
}

// CountryTrend returns the observed values of column for country, ascending
// by year.
func CountryTrend(t *table.Table, country, column string) ([]Observation, error) {
	if err := need("country_trend", t, "country", "year", column); err != nil {
		return nil, err
	}
	var out []Observation
	for _, o := range observations(t, column) {
		if o.Country == country {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b Observation) int { return cmp.Compare(a.Year, b.Year) })
	return out, nil
}

// CoverageColumns are the WHO program indicators ProgramCoverage averages.
var CoverageColumns = []string{"tb_treatment_coverage", "tb_cases_detected"}

// ProgramCoverage returns a table of year plus the yearly mean of each
// coverage column present in t. Years missing a column's values get a
// missing cell. At least one coverage column must exist.
func ProgramCoverage(t *table.Table, columns ...string) (*table.Table, error) {
	if len(columns) == 0 {
		columns = CoverageColumns
	}
	if err := need("program_coverage", t, "country", "year"); err != nil {
		return nil, err
	}
	var present []string
	for _, c := range columns {
		if t.Has(c) {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return nil, &table.SchemaError{Op: "program_coverage", Rows: t.Len(), Detail: fmt.Sprintf("none of %v found", columns)}
	}

	means := make([]map[int]YearMean, len(present))
	years := map[int]bool{}
	for j, c := range present {
		trend, err := GlobalTrend(t, c)
		if err != nil {
			return nil, err
		}
		means[j] = make(map[int]YearMean, len(trend))
		for _, ym := range trend {
			means[j][ym.Year] = ym
			years[ym.Year] = true
		}
	}
	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	slices.Sort(sorted)

	cols := []table.Column{{Name: "year", Kind: table.KindInt}}
	for _, c := range present {
		cols = append(cols, table.Column{Name: c, Kind: table.KindFloat})
	}
	rows := make([][]table.Value, len(sorted))
	for i, y := range sorted {
		row := make([]table.Value, len(cols))
		row[0] = table.Num(float64(y))
		for j := range present {
			if ym, ok := means[j][y]; ok {
				row[j+1] = table.Num(ym.Mean)
			}
		}
		rows[i] = row
	}
	return table.New(cols, rows)
}

// Merge inner-joins owid and who on (country, year), keeping owidCol from
// owid and whoCol from who. The WHO column is prefixed "who_" so the two
// never collide. Rows without a year never match. The result is sorted by
// country then year.
func Merge(owid, who *table.Table, owidCol, whoCol string) (*table.Table, error) {
	if err := need("merge", owid, "country", "year", owidCol); err != nil {
		return nil, fmt.Errorf("owid: %w", err)
	}
	if err := need("merge", who, "country", "year", whoCol); err != nil {
		return nil, fmt.Errorf("who: %w", err)
	}

	type key struct {
		country string
		year    int
	}
	keyOf := func(t *table.Table, i int) (key, bool) {
		c, _ := t.Get(i, "country")
		y, _ := t.Get(i, "year")
		yf, ok := y.Float()
		if !ok || c.IsNull() {
			return key{}, false
		}
		return key{c.Text(), int(yf)}, true
	}

	index := make(map[key][]int, who.Len())
	for i := 0; i < who.Len(); i++ {
		if k, ok := keyOf(who, i); ok {
			index[k] = append(index[k], i)
		}
	}

	type joined struct {
		k    key
		l, r table.Value
	}
	var out []joined
	for i := 0; i < owid.Len(); i++ {
		k, ok := keyOf(owid, i)
		if !ok {
			continue
		}
		l, _ := owid.Get(i, owidCol)
		for _, j := range index[k] {
			r, _ := who.Get(j, whoCol)
			out = append(out, joined{k, l, r})
		}
	}
	slices.SortStableFunc(out, func(a, b joined) int {
		if c := cmp.Compare(a.k.country, b.k.country); c != 0 {
			return c
		}
		return cmp.Compare(a.k.year, b.k.year)
	})

	rows := make([][]table.Value, len(out))
	for i, j := range out {
		rows[i] = []table.Value{table.Str(j.k.country), table.Num(float64(j.k.year)), j.l, j.r}
	}
	return table.New([]table.Column{
		{Name: "country", Kind: table.KindString},
		{Name: "year", Kind: table.KindInt},
		{Name: owidCol, Kind: kindOf(owid, owidCol)},
		{Name: "who_" + whoCol, Kind: kindOf(who, whoCol)},
	}, rows)
}

func kindOf(t *table.Table, name string) table.Kind {
	j, _ := t.Index(name)
	return t.Column(j).Kind
}

// Table renders observations as a country/year/column table.
func Table(column string, obs []Observation) *table.Table {
	rows := make([][]table.Value, len(obs))
	for i, o := range obs {
		rows[i] = []table.Value{table.Str(o.Country), table.Num(float64(o.Year)), table.Num(o.Value)}
	}
	return table.MustNew([]table.Column{
		{Name: "country", Kind: table.KindString},
		{Name: "year", Kind: table.KindInt},
		{Name: column, Kind: table.KindFloat},
	}, rows)
}

// TrendTable renders a yearly trend as a year/avg_<column> table.
func TrendTable(column string, trend []YearMean) *table.Table {
	rows := make([][]table.Value, len(trend))
	for i, ym := range trend {
		rows[i] = []table.Value{table.Num(float64(ym.Year)), table.Num(ym.Mean)}
	}
	return table.MustNew([]table.Column{
		{Name: "year", Kind: table.KindInt},
		{Name: "avg_" + column, Kind: table.KindFloat},
	}, rows)
}
