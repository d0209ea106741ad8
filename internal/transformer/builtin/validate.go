package builtin

import (
	"fmt"
	"sort"

	"tbetl/internal/stats"
	"tbetl/internal/table"
	"tbetl/internal/transformer"
)

// DefaultZThreshold is the z-score above which a value is flagged.
const DefaultZThreshold = 3.0

// ClipRange clamps the numeric column to [low, high]. Missing values stay
// missing and in-range values are untouched. It returns the number of
// clipped cells.
func ClipRange(in *table.Table, column string, low, high float64) (*table.Table, int, error) {
	if badFloat(low) || badFloat(high) || low > high {
		return nil, 0, &table.ConfigError{
			Op:     "clip_range",
			Param:  "range",
			Detail: fmt.Sprintf("need finite low <= high, got [%v, %v]", low, high),
		}
	}
	j, err := numericColumn(in, "clip_range", column)
	if err != nil {
		return nil, 0, err
	}
	vals, _ := in.Values(column)
	clipped := 0
	for i, v := range vals {
		f, ok := v.Float()
		if !ok {
			continue
		}
		switch {
		case f < low:
			vals[i] = table.Num(low)
		case f > high:
			vals[i] = table.Num(high)
		default:
			continue
		}
		clipped++
	}
	if clipped == 0 {
		return in, 0, nil
	}
	out, err := in.ReplaceColumn(column, in.Column(j).Kind, vals)
	return out, clipped, err
}

// FlagOutliers returns the positions of rows whose value in column lies more
// than zThreshold standard deviations from the mean. Each value is scored
// against the mean and sample standard deviation of the column's other
// non-missing values, so a single extreme value cannot mask itself by
// inflating the deviation it is measured with. zThreshold applies to this
// leave-one-out score, which is larger than the whole-column z-score, so on
// large samples more values are flagged than a whole-column threshold would
// flag. Rows whose remaining values are fewer than two or constant are never
// flagged.
//
// The table is returned unchanged; flags are informational.
func FlagOutliers(in *table.Table, column string, zThreshold float64) (*table.Table, []int, error) {
	if badFloat(zThreshold) || zThreshold <= 0 {
		return nil, nil, &table.ConfigError{
			Op:     "flag_outliers",
			Param:  "z_threshold",
			Detail: fmt.Sprintf("must be a positive number, got %v", zThreshold),
		}
	}
	j, err := numericColumn(in, "flag_outliers", column)
	if err != nil {
		return nil, nil, err
	}
	var (
		rows []int
		xs   []float64
	)
	for i := 0; i < in.Len(); i++ {
		if f, ok := in.At(i, j).Float(); ok {
			rows = append(rows, i)
			xs = append(xs, f)
		}
	}
	z, ok := stats.LeaveOneOutZ(xs)
	var flagged []int
	for k, r := range rows {
		if ok[k] && z[k] > zThreshold {
			flagged = append(flagged, r)
		}
	}
	return in, flagged, nil
}

// Clip applies ClipRange to Columns and to every numeric column whose name
// satisfies Match.
type Clip struct {
	Columns   []string
	Match     func(name string) bool
	Low, High float64
}

func (Clip) Name() string { return "clip_range" }

func (c Clip) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	var st transformer.Stats
	out := in
	for _, name := range selectColumns(in, c.Columns, c.Match) {
		next, n, err := ClipRange(out, name, c.Low, c.High)
		if err != nil {
			return nil, st, err
		}
		out = next
		st.Changed += n
	}
	return out, st, nil
}

// Outliers flags Columns and every numeric column whose name satisfies
// Match. Z defaults to DefaultZThreshold.
type Outliers struct {
	Columns []string
	Match   func(name string) bool
	Z       float64
}

func (Outliers) Name() string { return "flag_outliers" }

func (o Outliers) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	st := transformer.Stats{Flagged: map[string][]int{}}
	z := o.Z
	if z == 0 {
		z = DefaultZThreshold
	}
	for _, name := range selectColumns(in, o.Columns, o.Match) {
		_, rows, err := FlagOutliers(in, name, z)
		if err != nil {
			return nil, st, err
		}
		if len(rows) > 0 {
			st.Flagged[name] = rows
		}
	}
	return in, st, nil
}

// FlaggedRows merges per-column flags into one sorted, de-duplicated list.
func FlaggedRows(flagged map[string][]int) []int {
	set := map[int]struct{}{}
	for _, rows := range flagged {
		for _, r := range rows {
			set[r] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// selectColumns returns listed columns followed by matching numeric ones, in
// schema order and without repeats.
func selectColumns(in *table.Table, listed []string, match func(string) bool) []string {
	seen := make(map[string]struct{}, len(listed))
	out := make([]string, 0, len(listed))
	for _, n := range listed {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if match == nil {
		return out
	}
	for _, c := range in.Columns() {
		if _, dup := seen[c.Name]; dup || !c.Kind.Numeric() || !match(c.Name) {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c.Name)
	}
	return out
}
