package builtin

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"tbetl/internal/table"
	"tbetl/internal/transformer"
)

// naTokens are spellings of "no data" seen in public health exports. They
// become missing without counting as invalid.
var naTokens = map[string]struct{}{
	"na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "..": {}, "-": {}, "—": {},
}

// Coerce converts string columns into typed columns.
//
// Int columns must hold whole numbers; Float columns any number. Listed
// columns that exist are always converted and unparsable cells become
// missing (counted in Stats.Invalid). With Infer, every other string column
// not in Skip whose non-missing cells all parse as numbers becomes a float
// column.
type Coerce struct {
	Int   []string
	Float []string
	Infer bool
	Skip  []string
}

func (Coerce) Name() string { return "coerce" }

func (c Coerce) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	var st transformer.Stats
	out := in
	done := make(map[string]struct{}, len(c.Int)+len(c.Float)+len(c.Skip))
	for _, s := range c.Skip {
		done[s] = struct{}{}
	}

	convert := func(name string, kind table.Kind) error {
		done[name] = struct{}{}
		vals, ok := out.Values(name)
		if !ok {
			return nil
		}
		changed, invalid := coerceValues(vals, kind)
		if changed == 0 && invalid == 0 && columnKind(out, name) == kind {
			return nil
		}
		next, err := out.ReplaceColumn(name, kind, vals)
		if err != nil {
			return err
		}
		st.Changed += changed
		st.Invalid += invalid
		out = next
		return nil
	}

	for _, name := range c.Int {
		if err := convert(name, table.KindInt); err != nil {
			return nil, st, err
		}
	}
	for _, name := range c.Float {
		if err := convert(name, table.KindFloat); err != nil {
			return nil, st, err
		}
	}
	if c.Infer {
		for _, col := range out.Columns() {
			if _, skip := done[col.Name]; skip || col.Kind != table.KindString {
				continue
			}
			vals, _ := out.Values(col.Name)
			if !allNumeric(vals) {
				continue
			}
			if err := convert(col.Name, table.KindFloat); err != nil {
				return nil, st, err
			}
		}
	}
	return out, st, nil
}

func columnKind(t *table.Table, name string) table.Kind {
	j, _ := t.Index(name)
	return t.Column(j).Kind
}

// coerceValues rewrites vals in place to numbers or missing.
func coerceValues(vals []table.Value, kind table.Kind) (changed, invalid int) {
	for i, v := range vals {
		if v.IsNull() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			var parsed bool
			f, parsed = parseNumber(v.Text())
			if !parsed {
				if !isNA(v.Text()) {
					invalid++
				}
				vals[i] = table.Null()
				changed++
				continue
			}
			changed++
		}
		if kind == table.KindInt && f != math.Trunc(f) {
			vals[i] = table.Null()
			invalid++
			continue
		}
		vals[i] = table.Num(f)
	}
	return changed, invalid
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || isNA(s) {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isNA(s string) bool {
	_, ok := naTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// allNumeric reports whether at least one cell is present and every present
// cell is a number, a numeric string, or an NA token.
func allNumeric(vals []table.Value) bool {
	seen := false
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		if v.IsNumber() {
			seen = true
			continue
		}
		if isNA(v.Text()) {
			continue
		}
		if _, ok := parseNumber(v.Text()); !ok {
			return false
		}
		seen = true
	}
	return seen
}
